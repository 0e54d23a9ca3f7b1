package sample

import (
	"math"

	timestats "github.com/cwbudde/algo-dsp/stats/time"
)

// Statistic is the mean of repeated samples and its uncertainty.
type Statistic struct {
	Mean   float64
	StdErr float64 // Standard error of the mean
}

// Reduce returns the arithmetic mean and the standard error of the mean of values.
//
// The standard error is the population standard deviation (divide by n, not
// n-1) over sqrt(n). Identical samples, including a single sample, give
// exactly zero. An empty slice gives a zero Statistic.
func Reduce(values []float64) Statistic {
	n := len(values)
	if n == 0 {
		return Statistic{}
	}

	mean, variance, _, _ := timestats.Moments(values)

	return Statistic{
		Mean:   mean,
		StdErr: math.Sqrt(variance) / math.Sqrt(float64(n)),
	}
}
