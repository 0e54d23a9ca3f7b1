package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToVoltage(t *testing.T) {
	assert.Equal(t, 0.0, ToVoltage(0))
	assert.Equal(t, 3.3, ToVoltage(1023))

	for _, raw := range []int{1, 300, 512, 700, 1022} {
		f := float64(raw)
		assert.Equal(t, f/1023*3.3, ToVoltage(raw), "raw %d", raw)
	}
}

func TestPoint_Add(t *testing.T) {
	p := NewPoint(100, 2)
	p.Add(2.0, 0.5, 220)
	p.Add(2.2, 0.6, 220)

	require.Equal(t, 2, p.Len())
	assert.Equal(t, 100, p.Level)
	assert.InDelta(t, 1.5, p.Voltages[0], 1e-12)
	assert.InDelta(t, 1.6, p.Voltages[1], 1e-12)
	assert.InDelta(t, 0.5/220, p.Currents[0], 1e-15)
	assert.InDelta(t, 0.6/220, p.Currents[1], 1e-15)
}

func TestPoint_Reduce(t *testing.T) {
	u1 := ToVoltage(700)
	u2 := ToVoltage(300)

	p := NewPoint(42, 3)
	for range 3 {
		p.Add(u1, u2, 1.5)
	}

	r := p.Reduce()
	assert.Equal(t, 42, r.Level)
	assert.Equal(t, u1-u2, r.Voltage.Mean)
	assert.Equal(t, u2/1.5, r.Current.Mean)
	assert.Equal(t, 0.0, r.Voltage.StdErr)
	assert.Equal(t, 0.0, r.Current.StdErr)
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		wantMean   float64
		wantStdErr float64
	}{
		{
			name:       "empty",
			values:     nil,
			wantMean:   0,
			wantStdErr: 0,
		},
		{
			name:       "single sample",
			values:     []float64{1.25},
			wantMean:   1.25,
			wantStdErr: 0,
		},
		{
			name:       "identical samples",
			values:     []float64{0.7, 0.7, 0.7, 0.7},
			wantMean:   0.7,
			wantStdErr: 0,
		},
		{
			// population std of {1,2,3} is sqrt(2/3)
			name:       "population form",
			values:     []float64{1, 2, 3},
			wantMean:   2,
			wantStdErr: math.Sqrt(2.0/3.0) / math.Sqrt(3),
		},
		{
			name:       "two samples",
			values:     []float64{1, 3},
			wantMean:   2,
			wantStdErr: 1 / math.Sqrt(2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.values)
			assert.InDelta(t, tt.wantMean, got.Mean, 1e-12)
			assert.InDelta(t, tt.wantStdErr, got.StdErr, 1e-12)
			assert.False(t, math.IsNaN(got.StdErr))
		})
	}
}

func TestReduce_NotSampleStdDev(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	got := Reduce(values)

	// sample std (n-1) would give sqrt(5/3)/2
	sampleForm := math.Sqrt(5.0/3.0) / 2
	populationForm := math.Sqrt(5.0/4.0) / 2

	assert.InDelta(t, populationForm, got.StdErr, 1e-12)
	assert.NotEqual(t, sampleForm, got.StdErr)
}
