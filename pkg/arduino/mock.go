package arduino

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/itohio/gopv/pkg/config"
	"github.com/itohio/gopv/pkg/sample"
)

// Mock simulates the instrument firmware for testing and development.
//
// It is a transport: wrap it with NewSession. The simulated circuit is the
// output channel 0 DAC driving an LED in series with a sense resistor.
// Input channel 1 reads the DAC side of the LED and input channel 2 reads
// the voltage across the resistor.
type Mock struct {
	cfg *config.MockConfig

	mu      sync.Mutex
	rng     *rand.Rand
	outputs map[Channel]int
	rx      bytes.Buffer // Received, not yet terminated command bytes
	tx      bytes.Buffer // Responses waiting to be read
	closed  bool
}

// Ensure Mock is a usable transport.
var _ io.ReadWriteCloser = (*Mock)(nil)

const (
	mockOutputChannels = 1
	mockInputChannels  = 3
)

// NewMock creates a new simulated instrument.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	seed := uint64(cfg.Seed)

	return &Mock{
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		outputs: make(map[Channel]int, mockOutputChannels),
	}
}

// Write accepts command bytes. Each complete command queues one response.
func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}

	m.rx.Write(p)
	for {
		line, err := m.rx.ReadString('\n')
		if err != nil {
			// Incomplete command, keep it for the next write
			m.rx.Reset()
			m.rx.WriteString(line)
			break
		}
		m.tx.WriteString(m.handle(strings.TrimRight(line, "\r\n")))
		m.tx.WriteString(ReadTerminator)
	}

	return len(p), nil
}

// Read returns queued responses. With nothing queued it returns zero bytes
// and no error, the way a serial port reports a read timeout.
func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}
	if m.tx.Len() == 0 {
		return 0, nil
	}
	return m.tx.Read(p)
}

// Close closes the simulated port.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Output returns the programmed level of an output channel.
func (m *Mock) Output(ch Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputs[ch]
}

// handle executes one command and returns the response line.
func (m *Mock) handle(cmd string) string {
	switch {
	case cmd == "*IDN?":
		return m.cfg.Identity

	case strings.HasPrefix(cmd, "OUT:CH"):
		rest := strings.TrimPrefix(cmd, "OUT:CH")
		if chStr, ok := strings.CutSuffix(rest, "?"); ok {
			ch, ok := parseChannel(chStr, mockOutputChannels)
			if !ok {
				return "ERR: invalid channel"
			}
			return strconv.Itoa(m.outputs[ch])
		}

		chStr, valStr, ok := strings.Cut(rest, " ")
		if !ok {
			return "ERR: missing value"
		}
		ch, ok := parseChannel(chStr, mockOutputChannels)
		if !ok {
			return "ERR: invalid channel"
		}
		value, err := strconv.Atoi(valStr)
		if err != nil || value < MinLevel || value > MaxLevel {
			return "ERR: invalid value"
		}
		m.outputs[ch] = value
		return strconv.Itoa(value)

	case strings.HasPrefix(cmd, "MEAS:CH") && strings.HasSuffix(cmd, "?"):
		chStr := strings.TrimSuffix(strings.TrimPrefix(cmd, "MEAS:CH"), "?")
		ch, ok := parseChannel(chStr, mockInputChannels)
		if !ok {
			return "ERR: invalid channel"
		}
		return strconv.Itoa(m.measure(ch))
	}

	return fmt.Sprintf("ERR: unknown command %q", cmd)
}

// measure returns the simulated raw reading of an input channel.
func (m *Mock) measure(ch Channel) int {
	supply := float64(m.outputs[0]) / sample.ADCMax * m.cfg.Supply
	current := m.solveCurrent(supply)

	var v float64
	switch ch {
	case 0, 1:
		v = supply
	case 2:
		v = current * m.cfg.Resistor
	}

	if m.cfg.NoiseLevel > 0 {
		v += m.rng.NormFloat64() * m.cfg.NoiseLevel
	}

	raw := int(math.Round(v / sample.VRef * sample.ADCMax))
	return max(MinLevel, min(MaxLevel, raw))
}

// solveCurrent finds the series current for an LED and resistor driven at
// supply volts. The Shockley diode equation is solved by bisection on the
// diode voltage, where supply = Vd + I(Vd)*R is monotonic in Vd.
func (m *Mock) solveCurrent(supply float64) float64 {
	if supply <= 0 {
		return 0
	}

	nvt := m.cfg.IdealityFactor * m.cfg.ThermalVoltage
	diode := func(vd float64) float64 {
		return m.cfg.SaturationCurrent * math.Expm1(vd/nvt)
	}

	lo, hi := 0.0, supply
	for range 100 {
		mid := (lo + hi) / 2
		if mid+diode(mid)*m.cfg.Resistor > supply {
			hi = mid
		} else {
			lo = mid
		}
	}

	return diode(lo)
}

func parseChannel(s string, count int) (Channel, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= count {
		return 0, false
	}
	return Channel(n), true
}
