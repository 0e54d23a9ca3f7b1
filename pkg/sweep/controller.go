package sweep

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/itohio/gopv/pkg/arduino"
	"github.com/itohio/gopv/pkg/config"
	"github.com/itohio/gopv/pkg/sample"
)

const (
	// OutputChannel drives the device under test.
	OutputChannel arduino.Channel = 0
	// SupplyChannel reads the driven side of the device (u1).
	SupplyChannel arduino.Channel = 1
	// SenseChannel reads the voltage across the sense resistor (u2).
	SenseChannel arduino.Channel = 2
)

// Opener opens an instrument session for a resource identifier.
type Opener func(resource string) (arduino.Instrument, error)

// Controller runs sweeps against one instrument.
//
// The session is opened on first use and kept until Close. A Controller is
// not safe for concurrent use.
type Controller struct {
	resource string
	resistor float64
	open     Opener
	log      logrus.FieldLogger

	sessionOpts []arduino.Option
	inst        arduino.Instrument
}

// Option configures a Controller.
type Option func(*Controller)

// WithOpener replaces the serial opener, e.g. with a simulated instrument.
func WithOpener(open Opener) Option {
	return func(c *Controller) {
		c.open = open
	}
}

// WithLogger sets the logger. It is also passed to serial sessions.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSessionOptions sets options for sessions opened on the serial port.
func WithSessionOptions(opts ...arduino.Option) Option {
	return func(c *Controller) {
		c.sessionOpts = append(c.sessionOpts, opts...)
	}
}

// New creates a controller for the instrument at resource with a sense
// resistor of the given resistance in ohm. Nothing is opened here.
func New(resource string, resistor float64, opts ...Option) *Controller {
	c := &Controller{
		resource: resource,
		resistor: resistor,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.open == nil {
		c.open = c.openSerial
	}
	return c
}

// NewFromConfig creates a controller from the serial, sweep and log sections
// of cfg. Extra options are applied last.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Controller, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithLogger(logger),
		WithSessionOptions(
			arduino.WithBaudRate(cfg.Serial.BaudRate),
			arduino.WithReadTimeout(cfg.Serial.ReadTimeout),
		),
	}

	return New(cfg.Serial.Port, cfg.Sweep.Resistor, append(base, opts...)...), nil
}

func (c *Controller) openSerial(resource string) (arduino.Instrument, error) {
	opts := append([]arduino.Option{arduino.WithLogger(c.log)}, c.sessionOpts...)
	s, err := arduino.Open(resource, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// session returns the open instrument, opening it on first use.
func (c *Controller) session() (arduino.Instrument, error) {
	if c.inst != nil {
		return c.inst, nil
	}

	inst, err := c.open(c.resource)
	if err != nil {
		return nil, err
	}

	c.log.WithField("resource", c.resource).Info("Instrument session opened")
	c.inst = inst
	return inst, nil
}

// Identify returns the identification string of the instrument.
func (c *Controller) Identify() (string, error) {
	inst, err := c.session()
	if err != nil {
		return "", err
	}
	return inst.Identify()
}

// Scan sweeps the output level from p.Start to p.Stop in steps of p.Step.
//
// At every level the output is programmed once, then p.N pairs of input
// voltages are read and reduced to mean and standard error of the LED
// voltage (u1-u2) and current (u2/resistor). The output is reset to 0 after
// each level is measured.
//
// Any instrument failure aborts the sweep and no result is returned. The
// last programmed level is then left as is.
func (c *Controller) Scan(p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !(c.resistor > 0) || math.IsInf(c.resistor, 0) {
		return nil, fmt.Errorf("%w: resistor must be positive and finite, got %g ohm", ErrValidation, c.resistor)
	}

	inst, err := c.session()
	if err != nil {
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{
		"n":     p.N,
		"start": p.Start,
		"stop":  p.Stop,
		"step":  p.Step,
	})
	log.Info("Sweep started")

	result := newResult(p.capacity())

	for level := p.Start; level <= p.Stop; level += p.Step {
		point, err := c.measure(inst, level, p.N)
		if err != nil {
			return nil, fmt.Errorf("sweep aborted at level %d: %w", level, err)
		}

		reduced := point.Reduce()
		result.append(reduced)

		log.WithFields(logrus.Fields{
			"level":   level,
			"voltage": reduced.Voltage.Mean,
			"current": reduced.Current.Mean,
		}).Debug("Point measured")

		if err := inst.SetOutput(OutputChannel, 0); err != nil {
			return nil, fmt.Errorf("sweep aborted resetting output after level %d: %w", level, err)
		}
	}

	log.WithField("points", result.Len()).Info("Sweep finished")

	return result, nil
}

// measure programs one level and collects n samples.
func (c *Controller) measure(inst arduino.Instrument, level, n int) (*sample.Point, error) {
	if err := inst.SetOutput(OutputChannel, level); err != nil {
		return nil, err
	}

	point := sample.NewPoint(level, n)
	for range n {
		u1, err := inst.GetInputVoltage(SupplyChannel)
		if err != nil {
			return nil, err
		}
		u2, err := inst.GetInputVoltage(SenseChannel)
		if err != nil {
			return nil, err
		}
		point.Add(u1, u2, c.resistor)
	}

	return point, nil
}

// Close closes the instrument session if one was opened.
func (c *Controller) Close() error {
	if c.inst == nil {
		return nil
	}

	err := c.inst.Close()
	c.inst = nil
	if err != nil {
		return err
	}

	c.log.WithField("resource", c.resource).Info("Instrument session closed")
	return nil
}
