package sweep

import "github.com/itohio/gopv/pkg/sample"

// Result holds one reduced entry per visited output level, in ascending
// level order. All slices have the same length.
type Result struct {
	Levels        []int     // Output level of each entry
	Voltages      []float64 // Mean voltage across the device (V)
	Currents      []float64 // Mean current through the device (A)
	VoltageErrors []float64 // Standard error of Voltages (V)
	CurrentErrors []float64 // Standard error of Currents (A)
}

func newResult(capacity int) *Result {
	return &Result{
		Levels:        make([]int, 0, capacity),
		Voltages:      make([]float64, 0, capacity),
		Currents:      make([]float64, 0, capacity),
		VoltageErrors: make([]float64, 0, capacity),
		CurrentErrors: make([]float64, 0, capacity),
	}
}

func (r *Result) append(p sample.Reduced) {
	r.Levels = append(r.Levels, p.Level)
	r.Voltages = append(r.Voltages, p.Voltage.Mean)
	r.Currents = append(r.Currents, p.Current.Mean)
	r.VoltageErrors = append(r.VoltageErrors, p.Voltage.StdErr)
	r.CurrentErrors = append(r.CurrentErrors, p.Current.StdErr)
}

// Len returns the number of entries.
func (r *Result) Len() int {
	return len(r.Levels)
}
