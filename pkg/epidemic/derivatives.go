package epidemic

import "github.com/de-tools/epi-atlas/pkg/ode"

// Rates are the rate constants derived from the model periods.
type Rates struct {
	R0    float64
	Beta  float64
	Gamma float64
	// Sigma is zero for SIR.
	Sigma float64
}

// SEIR2Rates extends Rates with the fatality and perceived-risk constants.
type SEIR2Rates struct {
	Rates
	Phi    float64
	G      float64
	Lambda float64
}

// SIRDerivative returns dS, dI, dR for state (S, I, R).
func SIRDerivative(r Rates, m Schedule) ode.Func {
	return func(t float64, y, dy []float64) {
		s, i := y[0], y[1]
		infection := r.Beta * m.Evaluate(t) * s * i
		recovery := r.Gamma * i
		dy[0] = -infection
		dy[1] = infection - recovery
		dy[2] = recovery
	}
}

// SEIRDerivative returns dS, dE, dI for state (S, E, I). R is derived from
// the closed population after integration.
func SEIRDerivative(r Rates, m Schedule) ode.Func {
	return func(t float64, y, dy []float64) {
		s, e, i := y[0], y[1], y[2]
		infection := r.Beta * m.Evaluate(t) * s * i
		onset := r.Sigma * e
		dy[0] = -infection
		dy[1] = infection - onset
		dy[2] = onset - r.Gamma*i
	}
}

// SEIR2Derivative returns the rates for state (S, E, I, R, D, P). Cumulative
// deaths are derived from the closed population after integration. P does
// not feed back into transmission.
func SEIR2Derivative(r SEIR2Rates, m Schedule) ode.Func {
	return func(t float64, y, dy []float64) {
		s, e, i, d, p := y[0], y[1], y[2], y[4], y[5]
		infection := r.Beta * m.Evaluate(t) * s * i
		onset := r.Sigma * e
		removal := r.Gamma * i
		deaths := r.G * d
		dy[0] = -infection
		dy[1] = infection - onset
		dy[2] = onset - removal
		dy[3] = (1 - r.Phi) * removal
		dy[4] = r.Phi*removal - deaths
		dy[5] = deaths - r.Lambda*p
	}
}
