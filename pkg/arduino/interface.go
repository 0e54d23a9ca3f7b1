package arduino

// Channel identifies an output or input line on the instrument.
// Valid channels are defined by the instrument firmware.
type Channel uint

// Instrument defines the query/response operations of an instrument session.
//
// Every method performs exactly one request and consumes exactly one response
// line, including SetOutput. Skipping a response would leave it in the
// transport and desynchronize every following exchange.
type Instrument interface {
	Identify() (string, error)
	SetOutput(ch Channel, value int) error
	GetOutput(ch Channel) (int, error)
	GetRawInput(ch Channel) (int, error)
	GetInputVoltage(ch Channel) (float64, error)
	Close() error
}

// Ensure Session implements Instrument.
var _ Instrument = (*Session)(nil)
