package sample

const (
	// ADCMax is the full-scale 10-bit ADC reading.
	ADCMax = 1023
	// VRef is the ADC reference voltage (V).
	VRef = 3.3
)

// ToVoltage converts a raw 10-bit ADC reading to volts.
// 0 maps to exactly 0 V and 1023 to exactly 3.3 V.
func ToVoltage(raw int) float64 {
	return float64(raw) / ADCMax * VRef
}

// Point collects the repeated measurements taken at one output level.
type Point struct {
	Level    int       // Output level the samples were taken at
	Voltages []float64 // Voltage across the device under test (V)
	Currents []float64 // Current through the device under test (A)
}

// NewPoint creates an empty point for the given output level with room for n samples.
func NewPoint(level, n int) *Point {
	return &Point{
		Level:    level,
		Voltages: make([]float64, 0, n),
		Currents: make([]float64, 0, n),
	}
}

// Add derives device voltage and current from the two input voltages and
// appends them. u1 is the supply side, u2 is the voltage across the sense
// resistor of the given resistance.
func (p *Point) Add(u1, u2, resistor float64) {
	p.Voltages = append(p.Voltages, u1-u2)
	p.Currents = append(p.Currents, u2/resistor)
}

// Len returns the number of collected samples.
func (p *Point) Len() int {
	return len(p.Voltages)
}

// Reduce reduces the collected samples to mean and standard error.
func (p *Point) Reduce() Reduced {
	return Reduced{
		Level:   p.Level,
		Voltage: Reduce(p.Voltages),
		Current: Reduce(p.Currents),
	}
}

// Reduced is a Point after reduction.
type Reduced struct {
	Level   int
	Voltage Statistic
	Current Statistic
}
