// Package ode integrates initial value problems with an adaptive
// Dormand–Prince 5(4) scheme and samples the solution at requested times.
package ode

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrStepTooSmall = errors.New("step size underflow")
	ErrMaxSteps     = errors.New("maximum number of steps exceeded")
	ErrNonFinite    = errors.New("non-finite state")
)

// Func evaluates dy/dt at (t, y) and writes it into dydt.
// It must not retain or modify y.
type Func func(t float64, y, dydt []float64)

type Options struct {
	RelTol float64
	AbsTol float64
	// InitialStep of zero selects a step from the problem scale.
	InitialStep float64
	MaxStep     float64
	MinStep     float64
	MaxSteps    int
}

func DefaultOptions() Options {
	return Options{
		RelTol:   1e-8,
		AbsTol:   1e-10,
		MaxStep:  1,
		MinStep:  1e-12,
		MaxSteps: 100000,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.RelTol <= 0 {
		o.RelTol = def.RelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = def.AbsTol
	}
	if o.MaxStep <= 0 {
		o.MaxStep = def.MaxStep
	}
	if o.MinStep <= 0 {
		o.MinStep = def.MinStep
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = def.MaxSteps
	}
	return o
}

// Dormand–Prince tableau.
const (
	c2, c3, c4, c5 = 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9

	a21 = 1.0 / 5

	a31, a32 = 3.0 / 40, 9.0 / 40

	a41, a42, a43 = 44.0 / 45, -56.0 / 15, 32.0 / 9

	a51, a52, a53, a54 = 19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729

	a61, a62, a63, a64, a65 = 9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656

	b1, b3, b4, b5, b6 = 35.0 / 384, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84

	e1, e3, e4, e5, e6, e7 = 71.0 / 57600, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40
)

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 10.0
)

// Solver holds no state between calls; each Solve allocates its own
// workspace so a Solver may be shared between goroutines.
type Solver struct {
	opts Options
}

func NewSolver(opts Options) *Solver {
	return &Solver{opts: opts.withDefaults()}
}

func (s *Solver) Options() Options {
	return s.opts
}

// Solve integrates f from ts[0] with state y0 and returns the state at every
// time in ts. ts must be strictly increasing. Row k of the result is the
// state at ts[k]; row 0 is a copy of y0.
func (s *Solver) Solve(f Func, y0 []float64, ts []float64) ([][]float64, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("empty time grid")
	}
	if len(y0) == 0 {
		return nil, fmt.Errorf("empty initial state")
	}
	for i := 1; i < len(ts); i++ {
		if !(ts[i] > ts[i-1]) {
			return nil, fmt.Errorf("time grid not strictly increasing at index %d", i)
		}
	}
	if !allFinite(y0) {
		return nil, fmt.Errorf("initial state: %w", ErrNonFinite)
	}

	w := newWorkspace(len(y0))
	out := make([][]float64, len(ts))
	out[0] = append([]float64(nil), y0...)

	y := append([]float64(nil), y0...)
	t := ts[0]
	f(t, y, w.k1)

	h := s.opts.InitialStep
	if h <= 0 {
		h = s.initialStep(f, t, y, w)
	}

	steps := 0
	for k := 1; k < len(ts); k++ {
		target := ts[k]
		for t < target {
			if steps >= s.opts.MaxSteps {
				return nil, fmt.Errorf("at t=%g: %w", t, ErrMaxSteps)
			}
			steps++

			h = math.Min(h, s.opts.MaxStep)
			last := false
			if t+h >= target {
				h = target - t
				last = true
			}

			errNorm := s.step(f, t, h, y, w)
			if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
				h *= minFactor
				if h < s.opts.MinStep {
					return nil, fmt.Errorf("at t=%g: %w", t, ErrNonFinite)
				}
				continue
			}

			if errNorm <= 1 {
				if last {
					t = target
				} else {
					t += h
				}
				copy(y, w.ynew)
				// First-same-as-last: k7 is the derivative at the new point.
				w.k1, w.k7 = w.k7, w.k1
				h *= clampFactor(errNorm, maxFactor)
				continue
			}

			h *= clampFactor(errNorm, 1)
			if h < s.opts.MinStep {
				return nil, fmt.Errorf("at t=%g: %w", t, ErrStepTooSmall)
			}
		}
		out[k] = append([]float64(nil), y...)
	}
	return out, nil
}

func clampFactor(errNorm, upper float64) float64 {
	if errNorm == 0 {
		return upper
	}
	factor := safety * math.Pow(errNorm, -0.2)
	return math.Max(minFactor, math.Min(upper, factor))
}

// step advances y by h using w.k1 = f(t, y) and leaves the candidate state
// in w.ynew and f(t+h, ynew) in w.k7. It returns the scaled RMS error.
func (s *Solver) step(f Func, t, h float64, y []float64, w *workspace) float64 {
	n := len(y)
	for i := 0; i < n; i++ {
		w.tmp[i] = y[i] + h*a21*w.k1[i]
	}
	f(t+c2*h, w.tmp, w.k2)
	for i := 0; i < n; i++ {
		w.tmp[i] = y[i] + h*(a31*w.k1[i]+a32*w.k2[i])
	}
	f(t+c3*h, w.tmp, w.k3)
	for i := 0; i < n; i++ {
		w.tmp[i] = y[i] + h*(a41*w.k1[i]+a42*w.k2[i]+a43*w.k3[i])
	}
	f(t+c4*h, w.tmp, w.k4)
	for i := 0; i < n; i++ {
		w.tmp[i] = y[i] + h*(a51*w.k1[i]+a52*w.k2[i]+a53*w.k3[i]+a54*w.k4[i])
	}
	f(t+c5*h, w.tmp, w.k5)
	for i := 0; i < n; i++ {
		w.tmp[i] = y[i] + h*(a61*w.k1[i]+a62*w.k2[i]+a63*w.k3[i]+a64*w.k4[i]+a65*w.k5[i])
	}
	f(t+h, w.tmp, w.k6)
	for i := 0; i < n; i++ {
		w.ynew[i] = y[i] + h*(b1*w.k1[i]+b3*w.k3[i]+b4*w.k4[i]+b5*w.k5[i]+b6*w.k6[i])
	}
	if !allFinite(w.ynew) {
		return math.Inf(1)
	}
	f(t+h, w.ynew, w.k7)

	var sum float64
	for i := 0; i < n; i++ {
		errI := h * (e1*w.k1[i] + e3*w.k3[i] + e4*w.k4[i] + e5*w.k5[i] + e6*w.k6[i] + e7*w.k7[i])
		scale := s.opts.AbsTol + s.opts.RelTol*math.Max(math.Abs(y[i]), math.Abs(w.ynew[i]))
		r := errI / scale
		sum += r * r
	}
	return math.Sqrt(sum / float64(n))
}

// initialStep follows the usual scale heuristic: a step small enough that an
// explicit Euler step changes y by about one percent of its magnitude.
func (s *Solver) initialStep(f Func, t float64, y []float64, w *workspace) float64 {
	n := len(y)
	for i := 0; i < n; i++ {
		w.tmp[i] = s.opts.AbsTol + s.opts.RelTol*math.Abs(y[i])
	}
	d0 := rmsRatio(y, w.tmp)
	d1 := rmsRatio(w.k1, w.tmp)

	h0 := 1e-6
	if d0 > 1e-5 && d1 > 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	return math.Max(s.opts.MinStep, math.Min(h0, s.opts.MaxStep))
}

func rmsRatio(v, scale []float64) float64 {
	var sum float64
	for i := range v {
		r := v[i] / scale[i]
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(v)))
}

func allFinite(v []float64) bool {
	if floats.HasNaN(v) {
		return false
	}
	for _, x := range v {
		if math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

type workspace struct {
	k1, k2, k3, k4, k5, k6, k7 []float64
	tmp, ynew                  []float64
}

func newWorkspace(n int) *workspace {
	buf := make([]float64, 9*n)
	return &workspace{
		k1:   buf[0*n : 1*n],
		k2:   buf[1*n : 2*n],
		k3:   buf[2*n : 3*n],
		k4:   buf[3*n : 4*n],
		k5:   buf[4*n : 5*n],
		k6:   buf[5*n : 6*n],
		k7:   buf[6*n : 7*n],
		tmp:  buf[7*n : 8*n],
		ynew: buf[8*n : 9*n],
	}
}
