package epidemic

import "slices"

type Model string

const (
	ModelSIR   Model = "SIR"
	ModelSEIR  Model = "SEIR"
	ModelSEIR2 Model = "SEIR2"
)

// Compartment names.
const (
	Susceptible = "S"
	Exposed     = "E"
	Infected    = "I"
	Recovered   = "R"
	Dying       = "D"
	Dead        = "M"
	Perception  = "P"
)

// Result is the view shared by every model run. Accessors return copies; a
// Result never changes after the driver returns it.
type Result interface {
	Model() Model
	Time() []float64
	Compartments() []string
	Compartment(name string) ([]float64, bool)
	Rates() Rates
	Population() int
	Absolute() bool
}

type trajectory struct {
	t      []float64
	names  []string
	series map[string][]float64
}

func newTrajectory(t []float64, names []string, columns [][]float64) trajectory {
	series := make(map[string][]float64, len(names))
	for i, name := range names {
		series[name] = columns[i]
	}
	return trajectory{t: t, names: names, series: series}
}

func (tr trajectory) Time() []float64 {
	return slices.Clone(tr.t)
}

func (tr trajectory) Compartments() []string {
	return slices.Clone(tr.names)
}

func (tr trajectory) Compartment(name string) ([]float64, bool) {
	s, ok := tr.series[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(s), true
}

func (tr trajectory) get(name string) []float64 {
	return slices.Clone(tr.series[name])
}

// Len is the number of samples, days+1.
func (tr trajectory) Len() int {
	return len(tr.t)
}

type SIRResult struct {
	trajectory
	rates      Rates
	population int
	absolute   bool
}

func (r *SIRResult) Model() Model { return ModelSIR }
func (r *SIRResult) Rates() Rates { return r.rates }
func (r *SIRResult) Population() int { return r.population }
func (r *SIRResult) Absolute() bool { return r.absolute }
func (r *SIRResult) S() []float64 { return r.get(Susceptible) }
func (r *SIRResult) I() []float64 { return r.get(Infected) }
func (r *SIRResult) R() []float64 { return r.get(Recovered) }

type SEIRResult struct {
	trajectory
	rates      Rates
	population int
	absolute   bool
}

func (r *SEIRResult) Model() Model { return ModelSEIR }
func (r *SEIRResult) Rates() Rates { return r.rates }
func (r *SEIRResult) Population() int { return r.population }
func (r *SEIRResult) Absolute() bool { return r.absolute }
func (r *SEIRResult) S() []float64 { return r.get(Susceptible) }
func (r *SEIRResult) E() []float64 { return r.get(Exposed) }
func (r *SEIRResult) I() []float64 { return r.get(Infected) }
func (r *SEIRResult) R() []float64 { return r.get(Recovered) }

type SEIR2Result struct {
	trajectory
	rates      SEIR2Rates
	k          float64
	population int
	absolute   bool
}

func (r *SEIR2Result) Model() Model { return ModelSEIR2 }
func (r *SEIR2Result) Rates() Rates { return r.rates.Rates }
func (r *SEIR2Result) ExtendedRates() SEIR2Rates { return r.rates }
func (r *SEIR2Result) ResponseIntensity() float64 { return r.k }
func (r *SEIR2Result) Population() int { return r.population }
func (r *SEIR2Result) Absolute() bool { return r.absolute }
func (r *SEIR2Result) S() []float64 { return r.get(Susceptible) }
func (r *SEIR2Result) E() []float64 { return r.get(Exposed) }
func (r *SEIR2Result) I() []float64 { return r.get(Infected) }
func (r *SEIR2Result) R() []float64 { return r.get(Recovered) }
func (r *SEIR2Result) D() []float64 { return r.get(Dying) }
func (r *SEIR2Result) M() []float64 { return r.get(Dead) }
func (r *SEIR2Result) P() []float64 { return r.get(Perception) }
