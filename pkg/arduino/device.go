package arduino

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/itohio/gopv/pkg/sample"
)

const (
	// DefaultBaudRate is the baud rate of the instrument firmware.
	DefaultBaudRate = 9600
	// DefaultReadTimeout bounds a single response read.
	DefaultReadTimeout = 2 * time.Second
	// WriteTerminator ends every outgoing command.
	WriteTerminator = "\n"
	// ReadTerminator delimits every incoming response.
	ReadTerminator = "\r\n"

	// MinLevel and MaxLevel bound the 10-bit output level.
	MinLevel = 0
	MaxLevel = 1023

	// MaxResponseLen bounds a response line, terminator excluded.
	MaxResponseLen = 256

	readChunk = 64
)

var (
	// ErrTimeout is the cause reported when no complete response arrives in time.
	ErrTimeout = errors.New("timeout waiting for response")
	// ErrClosed is the cause reported when using a closed session.
	ErrClosed = errors.New("session closed")
	// ErrResponseTooLong is the cause reported when no terminator arrives
	// within MaxResponseLen bytes.
	ErrResponseTooLong = errors.New("response too long")
)

type options struct {
	baudRate    int
	readTimeout time.Duration
	writeTerm   string
	readTerm    string
	log         logrus.FieldLogger
}

// Option configures a Session.
type Option func(*options)

// WithBaudRate sets the serial baud rate used by Open.
func WithBaudRate(baudRate int) Option {
	return func(o *options) {
		if baudRate > 0 {
			o.baudRate = baudRate
		}
	}
}

// WithReadTimeout sets the transport read timeout used by Open.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithTerminators overrides the write and read line terminators.
func WithTerminators(write, read string) Option {
	return func(o *options) {
		if write != "" {
			o.writeTerm = write
		}
		if read != "" {
			o.readTerm = read
		}
	}
}

// WithLogger sets the logger for exchange tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		baudRate:    DefaultBaudRate,
		readTimeout: DefaultReadTimeout,
		writeTerm:   WriteTerminator,
		readTerm:    ReadTerminator,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Session is an exclusive query/response session with one instrument.
//
// A Session is not safe for concurrent use. The protocol has no request
// identifiers, so exactly one exchange may be in flight at a time.
type Session struct {
	resource  string
	port      io.ReadWriteCloser
	writeTerm string
	readTerm  string
	log       logrus.FieldLogger

	pending []byte // Received bytes not yet returned as a line
	buf     []byte
}

// Open opens the serial port named by resource and returns a session on it.
// It fails with ErrConnection if the port cannot be opened or configured.
func Open(resource string, opts ...Option) (*Session, error) {
	o := newOptions(opts)

	port, err := serial.Open(resource, &serial.Mode{
		BaudRate: o.baudRate,
	})
	if err != nil {
		return nil, newError(ErrConnection, "open", nil, nil, "",
			fmt.Errorf("failed to open serial port %s: %w", resource, err))
	}

	if err := port.SetReadTimeout(o.readTimeout); err != nil {
		port.Close()
		return nil, newError(ErrConnection, "open", nil, nil, "",
			fmt.Errorf("failed to set read timeout on %s: %w", resource, err))
	}

	if err := port.ResetInputBuffer(); err != nil {
		o.log.WithField("resource", resource).Warnf("Failed to flush input buffer: %v", err)
	}

	return newSession(resource, port, o), nil
}

// NewSession wraps an already open transport. The transport must signal a
// read timeout by returning zero bytes and a nil error, as serial ports do.
func NewSession(port io.ReadWriteCloser, opts ...Option) *Session {
	return newSession("", port, newOptions(opts))
}

func newSession(resource string, port io.ReadWriteCloser, o options) *Session {
	log := o.log
	if resource != "" {
		log = log.WithField("resource", resource)
	}

	return &Session{
		resource:  resource,
		port:      port,
		writeTerm: o.writeTerm,
		readTerm:  o.readTerm,
		log:       log,
		buf:       make([]byte, readChunk),
	}
}

// Identify sends *IDN? and returns the response verbatim.
// Consumes one response line. An empty response is an ErrProtocol.
func (s *Session) Identify() (string, error) {
	const cmd = "*IDN?"

	line, err := s.query("identify", nil, nil, cmd)
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", newError(ErrProtocol, "identify", nil, nil, cmd, errors.New("empty response"))
	}
	return line, nil
}

// SetOutput programs output channel ch to value.
//
// Values outside [MinLevel, MaxLevel] fail with ErrValidation and nothing is
// written. Otherwise sends OUT:CH{ch} {value} and consumes the acknowledgement
// line, whatever its content.
func (s *Session) SetOutput(ch Channel, value int) error {
	cmd := fmt.Sprintf("OUT:CH%d %d", ch, value)

	if value < MinLevel || value > MaxLevel {
		return newError(ErrValidation, "set output", chanRef(ch), intRef(value), cmd,
			fmt.Errorf("value must be between %d and %d", MinLevel, MaxLevel))
	}

	_, err := s.query("set output", chanRef(ch), intRef(value), cmd)
	return err
}

// GetOutput queries the programmed level of output channel ch.
// Consumes one response line.
func (s *Session) GetOutput(ch Channel) (int, error) {
	return s.queryLevel("get output", ch, fmt.Sprintf("OUT:CH%d?", ch))
}

// GetRawInput queries the raw 10-bit reading of input channel ch.
// Consumes one response line.
func (s *Session) GetRawInput(ch Channel) (int, error) {
	return s.queryLevel("get raw input", ch, fmt.Sprintf("MEAS:CH%d?", ch))
}

// GetInputVoltage reads input channel ch and converts it to volts.
// Errors from the raw read are returned unchanged.
func (s *Session) GetInputVoltage(ch Channel) (float64, error) {
	raw, err := s.GetRawInput(ch)
	if err != nil {
		return 0, err
	}
	return sample.ToVoltage(raw), nil
}

// Close releases the transport. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	s.pending = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", s.resource, err)
	}
	return nil
}

// queryLevel performs a query whose response is a 10-bit integer.
func (s *Session) queryLevel(op string, ch Channel, cmd string) (int, error) {
	line, err := s.query(op, chanRef(ch), nil, cmd)
	if err != nil {
		return 0, err
	}

	value, err := parseLevel(line)
	if err != nil {
		return 0, newError(ErrProtocol, op, chanRef(ch), nil, cmd, err)
	}
	return value, nil
}

// query writes one command and reads exactly one response line.
func (s *Session) query(op string, ch *Channel, value *int, cmd string) (string, error) {
	if s.port == nil {
		return "", newError(ErrConnection, op, ch, value, cmd, ErrClosed)
	}

	if _, err := io.WriteString(s.port, cmd+s.writeTerm); err != nil {
		return "", newError(ErrConnection, op, ch, value, cmd, fmt.Errorf("write failed: %w", err))
	}

	line, err := s.readLine()
	if err != nil {
		return "", newError(ErrProtocol, op, ch, value, cmd, err)
	}

	s.log.WithFields(logrus.Fields{
		"command":  cmd,
		"response": line,
	}).Debug("Instrument exchange")

	return line, nil
}

// readLine returns the next response with the read terminator stripped.
// Bytes received after the terminator are kept for the next call.
func (s *Session) readLine() (string, error) {
	term := []byte(s.readTerm)

	for {
		if i := bytes.Index(s.pending, term); i >= 0 {
			line := string(s.pending[:i])
			s.pending = s.pending[i+len(term):]
			return line, nil
		}
		if len(s.pending) > MaxResponseLen+len(term) {
			s.log.Warnf("Discarding %d bytes without terminator", len(s.pending))
			s.pending = s.pending[:0]
			return "", ErrResponseTooLong
		}

		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read failed: %w", err)
		}

		// Zero bytes without error is how serial ports report a timeout.
		// A partial line would corrupt the next exchange, so drop it.
		if len(s.pending) > 0 {
			s.log.Warnf("Discarding partial response %q", s.pending)
			s.pending = s.pending[:0]
		}
		return "", ErrTimeout
	}
}

// parseLevel parses a response holding a 10-bit integer.
func parseLevel(line string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid integer response %q: %w", line, err)
	}
	if value < MinLevel || value > MaxLevel {
		return 0, fmt.Errorf("response out of range: %d (max %d)", value, MaxLevel)
	}
	return value, nil
}
