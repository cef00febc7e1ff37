package epidemic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func constantSchedule(t *testing.T, days int, m float64) Schedule {
	t.Helper()
	s, err := NewSchedule(days, Mitigation{Intervals: []Interval{{0, days}}, Multipliers: []float64{m}})
	require.NoError(t, err)
	return s
}

func TestSIRDerivative(t *testing.T) {
	rates := Rates{R0: 3, Beta: 0.6, Gamma: 0.2}
	f := SIRDerivative(rates, constantSchedule(t, 10, 0.5))

	y := []float64{0.9, 0.1, 0}
	dy := make([]float64, 3)
	f(1, y, dy)

	infection := 0.6 * 0.5 * 0.9 * 0.1
	assert.InDelta(t, -infection, dy[0], 1e-15)
	assert.InDelta(t, infection-0.02, dy[1], 1e-15)
	assert.InDelta(t, 0.02, dy[2], 1e-15)
	assert.InDelta(t, 0, floats.Sum(dy), 1e-15)
	assert.Equal(t, []float64{0.9, 0.1, 0}, y)
}

func TestSEIRDerivative(t *testing.T) {
	rates := Rates{R0: 2, Beta: 0.4, Gamma: 0.2, Sigma: 0.25}
	f := SEIRDerivative(rates, constantSchedule(t, 10, 1))

	dy := make([]float64, 3)
	f(0, []float64{0.8, 0.1, 0.1}, dy)

	infection := 0.4 * 0.8 * 0.1
	assert.InDelta(t, -infection, dy[0], 1e-15)
	assert.InDelta(t, infection-0.025, dy[1], 1e-15)
	assert.InDelta(t, 0.025-0.02, dy[2], 1e-15)
}

func TestSEIR2Derivative(t *testing.T) {
	rates := SEIR2Rates{
		Rates:  Rates{R0: 2, Beta: 0.4, Gamma: 0.2, Sigma: 0.25},
		Phi:    0.1,
		G:      0.5,
		Lambda: 0.05,
	}
	f := SEIR2Derivative(rates, constantSchedule(t, 10, 1))

	y := []float64{0.7, 0.1, 0.1, 0.05, 0.02, 0.3}
	dy := make([]float64, 6)
	f(2, y, dy)

	infection := 0.4 * 0.7 * 0.1
	assert.InDelta(t, -infection, dy[0], 1e-15)
	assert.InDelta(t, infection-0.025, dy[1], 1e-15)
	assert.InDelta(t, 0.025-0.02, dy[2], 1e-15)
	assert.InDelta(t, 0.9*0.02, dy[3], 1e-15)
	assert.InDelta(t, 0.1*0.02-0.5*0.02, dy[4], 1e-15)
	assert.InDelta(t, 0.5*0.02-0.05*0.3, dy[5], 1e-15)

	// Deaths leave D and enter the derived M compartment, so the
	// integrated population only loses what D passes on.
	population := dy[0] + dy[1] + dy[2] + dy[3] + dy[4]
	assert.InDelta(t, -0.5*0.02, population, 1e-15)
}

func TestDerivatives_AreRepeatable(t *testing.T) {
	f := SEIRDerivative(Rates{Beta: 0.5, Gamma: 0.1, Sigma: 0.2}, constantSchedule(t, 5, 0.7))
	y := []float64{0.99, 0.005, 0.005}

	first := make([]float64, 3)
	second := make([]float64, 3)
	f(2.5, y, first)
	f(2.5, y, second)

	assert.Equal(t, first, second)
}
