package sweep

import (
	"fmt"
	"math"

	"github.com/itohio/gopv/pkg/arduino"
	"github.com/itohio/gopv/pkg/config"
)

// ErrValidation is returned for invalid sweep parameters. It is the same
// value the instrument session uses for out-of-range output levels.
var ErrValidation = arduino.ErrValidation

// Params describes one sweep.
type Params struct {
	N     int // Repetitions per output level, >= 1
	Start int // First output level
	Stop  int // Last output level, inclusive
	Step  int // Level increment, >= 1
}

// DefaultParams returns a full-range sweep with two repetitions per level.
func DefaultParams() Params {
	return Params{
		N:     2,
		Start: arduino.MinLevel,
		Stop:  arduino.MaxLevel,
		Step:  1,
	}
}

// ParamsFromConfig returns the sweep parameters of a configuration.
func ParamsFromConfig(cfg *config.SweepConfig) Params {
	return Params{
		N:     cfg.N,
		Start: cfg.Start,
		Stop:  cfg.Stop,
		Step:  cfg.Step,
	}
}

// Validate checks the structural preconditions of a sweep.
// Start and Stop are not checked against the instrument range; an
// out-of-range level fails when it is programmed.
func (p Params) Validate() error {
	if p.N < 1 {
		return fmt.Errorf("%w: n must be >= 1, got %d", ErrValidation, p.N)
	}
	if p.Step < 1 {
		return fmt.Errorf("%w: step must be >= 1, got %d", ErrValidation, p.Step)
	}
	if p.Start > p.Stop {
		return fmt.Errorf("%w: start %d is greater than stop %d", ErrValidation, p.Start, p.Stop)
	}
	return nil
}

// Points returns the number of output levels the sweep visits, saturating
// at math.MaxInt.
func (p Params) Points() int {
	if p.Step < 1 || p.Start > p.Stop {
		return 0
	}
	// Stop >= Start, so the unsigned difference is exact even when Stop-Start
	// overflows int.
	span := uint(p.Stop) - uint(p.Start)
	steps := span / uint(p.Step)
	if steps >= math.MaxInt {
		return math.MaxInt
	}
	return int(steps) + 1
}

// capacity bounds Points by the number of levels the instrument accepts.
// Levels beyond that abort the sweep before they are stored.
func (p Params) capacity() int {
	return min(p.Points(), arduino.MaxLevel-arduino.MinLevel+1)
}
