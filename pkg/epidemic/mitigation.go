package epidemic

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/interp"
)

// Interval is a half-open day range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Mitigation lists the intervals of a schedule and the transmission
// multiplier applied in each. The zero value means no mitigation.
type Mitigation struct {
	Intervals   []Interval
	Multipliers []float64
}

// StepMitigation applies no mitigation before onset and multiplier from
// onset to the end of the horizon.
func StepMitigation(onset, days int, multiplier float64) Mitigation {
	return Mitigation{
		Intervals:   []Interval{{0, onset}, {onset, days}},
		Multipliers: []float64{1, multiplier},
	}
}

// StrengthMultiplier converts a percent reduction of transmission into a
// multiplier.
func StrengthMultiplier(percent float64) float64 {
	return 1 - percent/100
}

func (m Mitigation) IsZero() bool {
	return len(m.Intervals) == 0 && len(m.Multipliers) == 0
}

// Schedule is a validated piecewise multiplier over [0, days]. It is safe for
// concurrent use.
type Schedule struct {
	days        int
	intervals   []Interval
	multipliers []float64
	lattice     []float64
	fn          interp.PiecewiseLinear
}

// NewSchedule validates m against the horizon and builds the per-day lattice.
// A zero Mitigation yields a constant multiplier of 1.
func NewSchedule(days int, m Mitigation) (Schedule, error) {
	if days <= 0 {
		return Schedule{}, configError("days", "must be positive, got %d", days)
	}
	if m.IsZero() {
		m = Mitigation{Intervals: []Interval{{0, days}}, Multipliers: []float64{1}}
	}
	if err := validateMitigation(days, m); err != nil {
		return Schedule{}, err
	}

	lattice := make([]float64, days+1)
	for i := range lattice {
		lattice[i] = 1
	}
	for i, iv := range m.Intervals {
		for d := iv.Start; d < iv.End; d++ {
			lattice[d] = m.Multipliers[i]
		}
	}
	lattice[days] = m.Multipliers[len(m.Multipliers)-1]

	xs := make([]float64, days+1)
	for i := range xs {
		xs[i] = float64(i)
	}

	var fn interp.PiecewiseLinear
	if err := fn.Fit(xs, lattice); err != nil {
		return Schedule{}, configError("mitigation", "%v", err)
	}

	return Schedule{
		days:        days,
		intervals:   slices.Clone(m.Intervals),
		multipliers: slices.Clone(m.Multipliers),
		lattice:     lattice,
		fn:          fn,
	}, nil
}

func validateMitigation(days int, m Mitigation) error {
	if len(m.Intervals) == 0 {
		return configError("mitigation", "no intervals")
	}
	if len(m.Intervals) != len(m.Multipliers) {
		return configError("mitigation", "%d intervals but %d multipliers",
			len(m.Intervals), len(m.Multipliers))
	}
	if m.Intervals[0].Start != 0 {
		return configError("mitigation", "first interval starts at day %d, want 0", m.Intervals[0].Start)
	}
	for i, iv := range m.Intervals {
		if iv.Start > iv.End {
			return configError("mitigation", "interval %d ends (%d) before it starts (%d)", i, iv.End, iv.Start)
		}
		if i > 0 && iv.Start != m.Intervals[i-1].End {
			return configError("mitigation", "interval %d starts at day %d, previous ends at %d",
				i, iv.Start, m.Intervals[i-1].End)
		}
		mult := m.Multipliers[i]
		if math.IsNaN(mult) || mult < 0 || mult > 1 {
			return configError("mitigation", "multiplier %d is %v, want a value in [0, 1]", i, mult)
		}
	}
	if end := m.Intervals[len(m.Intervals)-1].End; end != days {
		return configError("mitigation", "last interval ends at day %d, want %d", end, days)
	}
	return nil
}

// Evaluate returns the multiplier at time t, holding the boundary values
// outside [0, days].
func (s Schedule) Evaluate(t float64) float64 {
	if len(s.lattice) == 0 {
		return 1
	}
	return s.fn.Predict(t)
}

func (s Schedule) Days() int {
	return s.days
}

func (s Schedule) Intervals() []Interval {
	return slices.Clone(s.intervals)
}

func (s Schedule) Multipliers() []float64 {
	return slices.Clone(s.multipliers)
}

// Lattice returns the per-day multipliers the interpolant passes through.
func (s Schedule) Lattice() []float64 {
	return slices.Clone(s.lattice)
}
