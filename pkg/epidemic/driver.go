package epidemic

import (
	"fmt"
	"math"

	"github.com/de-tools/epi-atlas/pkg/ode"
	"gonum.org/v1/gonum/floats"
)

const (
	// MaxDays bounds the horizon of a single run.
	MaxDays = 3650

	sirSeedInfected  = 1e-5
	seirSeedInfected = 1e-4
	seirSeedExposed  = 1e-4
)

type SIRConfig struct {
	R0 float64
	// InfectiousPeriod is the mean infectious period T in days.
	InfectiousPeriod float64
	Days             int
	Population       int
	Absolute         bool
	Mitigation       Mitigation
}

type SEIRConfig struct {
	R0               float64
	InfectiousPeriod float64
	// IncubationPeriod is the mean incubation period Ti in days.
	IncubationPeriod float64
	Days             int
	Population       int
	Absolute         bool
	Mitigation       Mitigation
}

type SEIR2Config struct {
	R0                 float64
	InfectiousPeriod   float64
	IncubationPeriod   float64
	FatalityProportion float64
	// DeathDelay is the mean time in days from leaving I to death (1/g).
	DeathDelay float64
	// ImpactDuration is the mean duration in days of a death's effect on
	// behaviour (1/lambda).
	ImpactDuration float64
	// ResponseIntensity is carried with the result; it does not alter
	// transmission.
	ResponseIntensity float64
	Days              int
	Population        int
	Absolute          bool
	Mitigation        Mitigation
}

// Driver integrates the compartment models on a one-day grid. It keeps no
// state between runs.
type Driver struct {
	solver *ode.Solver
}

func NewDriver(opts ode.Options) *Driver {
	return &Driver{solver: ode.NewSolver(opts)}
}

var defaultDriver = NewDriver(ode.DefaultOptions())

func RunSIR(cfg SIRConfig) (*SIRResult, error) {
	return defaultDriver.RunSIR(cfg)
}

func RunSEIR(cfg SEIRConfig) (*SEIRResult, error) {
	return defaultDriver.RunSEIR(cfg)
}

func RunSEIR2(cfg SEIR2Config) (*SEIR2Result, error) {
	return defaultDriver.RunSEIR2(cfg)
}

func (d *Driver) RunSIR(cfg SIRConfig) (*SIRResult, error) {
	if err := validateCommon(cfg.R0, cfg.InfectiousPeriod, cfg.Days, cfg.Population, cfg.Absolute); err != nil {
		return nil, err
	}
	schedule, err := NewSchedule(cfg.Days, cfg.Mitigation)
	if err != nil {
		return nil, err
	}

	gamma := 1 / cfg.InfectiousPeriod
	rates := Rates{R0: cfg.R0, Beta: gamma * cfg.R0, Gamma: gamma}
	if err := checkRates(rates); err != nil {
		return nil, err
	}

	y0 := []float64{1 - sirSeedInfected, sirSeedInfected, 0}
	cols, err := d.integrate(ModelSIR, SIRDerivative(rates, schedule), y0, cfg.Days)
	if err != nil {
		return nil, err
	}
	if cfg.Absolute {
		scaleAll(float64(cfg.Population), cols...)
	}

	return &SIRResult{
		trajectory: newTrajectory(timeGrid(cfg.Days), []string{Susceptible, Infected, Recovered}, cols),
		rates:      rates,
		population: cfg.Population,
		absolute:   cfg.Absolute,
	}, nil
}

func (d *Driver) RunSEIR(cfg SEIRConfig) (*SEIRResult, error) {
	if err := validateCommon(cfg.R0, cfg.InfectiousPeriod, cfg.Days, cfg.Population, cfg.Absolute); err != nil {
		return nil, err
	}
	if err := validatePeriod("Ti", cfg.IncubationPeriod); err != nil {
		return nil, err
	}
	schedule, err := NewSchedule(cfg.Days, cfg.Mitigation)
	if err != nil {
		return nil, err
	}

	gamma := 1 / cfg.InfectiousPeriod
	rates := Rates{R0: cfg.R0, Beta: gamma * cfg.R0, Gamma: gamma, Sigma: 1 / cfg.IncubationPeriod}
	if err := checkRates(rates); err != nil {
		return nil, err
	}

	y0 := []float64{1 - seirSeedInfected - seirSeedExposed, seirSeedExposed, seirSeedInfected}
	cols, err := d.integrate(ModelSEIR, SEIRDerivative(rates, schedule), y0, cfg.Days)
	if err != nil {
		return nil, err
	}
	s, e, i := cols[0], cols[1], cols[2]
	r := closure(s, e, i)
	if cfg.Absolute {
		scaleAll(float64(cfg.Population), s, e, i, r)
	}

	return &SEIRResult{
		trajectory: newTrajectory(timeGrid(cfg.Days),
			[]string{Susceptible, Exposed, Infected, Recovered},
			[][]float64{s, e, i, r}),
		rates:      rates,
		population: cfg.Population,
		absolute:   cfg.Absolute,
	}, nil
}

func (d *Driver) RunSEIR2(cfg SEIR2Config) (*SEIR2Result, error) {
	if err := validateCommon(cfg.R0, cfg.InfectiousPeriod, cfg.Days, cfg.Population, cfg.Absolute); err != nil {
		return nil, err
	}
	if err := validatePeriod("Ti", cfg.IncubationPeriod); err != nil {
		return nil, err
	}
	if err := validatePeriod("death_delay", cfg.DeathDelay); err != nil {
		return nil, err
	}
	if err := validatePeriod("impact_duration", cfg.ImpactDuration); err != nil {
		return nil, err
	}
	if phi := cfg.FatalityProportion; math.IsNaN(phi) || phi < 0 || phi > 1 {
		return nil, configError("phi", "must be in [0, 1], got %v", phi)
	}
	if k := cfg.ResponseIntensity; math.IsNaN(k) || math.IsInf(k, 0) || k < 0 {
		return nil, configError("k", "must be a finite non-negative number, got %v", k)
	}
	schedule, err := NewSchedule(cfg.Days, cfg.Mitigation)
	if err != nil {
		return nil, err
	}

	gamma := 1 / cfg.InfectiousPeriod
	rates := SEIR2Rates{
		Rates:  Rates{R0: cfg.R0, Beta: gamma * cfg.R0, Gamma: gamma, Sigma: 1 / cfg.IncubationPeriod},
		Phi:    cfg.FatalityProportion,
		G:      1 / cfg.DeathDelay,
		Lambda: 1 / cfg.ImpactDuration,
	}
	if err := checkRates(rates.Rates); err != nil {
		return nil, err
	}

	y0 := []float64{1 - seirSeedInfected - seirSeedExposed, seirSeedExposed, seirSeedInfected, 0, 0, 0}
	cols, err := d.integrate(ModelSEIR2, SEIR2Derivative(rates, schedule), y0, cfg.Days)
	if err != nil {
		return nil, err
	}
	s, e, i, r, dy, p := cols[0], cols[1], cols[2], cols[3], cols[4], cols[5]
	m := closure(s, e, i, r, dy)
	if cfg.Absolute {
		// P is a behavioural signal, not a share of the population.
		scaleAll(float64(cfg.Population), s, e, i, r, dy, m)
	}

	return &SEIR2Result{
		trajectory: newTrajectory(timeGrid(cfg.Days),
			[]string{Susceptible, Exposed, Infected, Recovered, Dying, Dead, Perception},
			[][]float64{s, e, i, r, dy, m, p}),
		rates:      rates,
		k:          cfg.ResponseIntensity,
		population: cfg.Population,
		absolute:   cfg.Absolute,
	}, nil
}

// integrate returns one column per state variable sampled at days 0..days.
func (d *Driver) integrate(model Model, f ode.Func, y0 []float64, days int) ([][]float64, error) {
	rows, err := d.solver.Solve(f, y0, timeGrid(days))
	if err != nil {
		return nil, &NumericalError{Model: model, Err: err}
	}

	cols := make([][]float64, len(y0))
	for j := range cols {
		col := make([]float64, len(rows))
		for k, row := range rows {
			col[k] = row[j]
		}
		if !finite(col) {
			return nil, &NumericalError{Model: model, Err: fmt.Errorf("compartment %d: %w", j, ode.ErrNonFinite)}
		}
		cols[j] = col
	}
	return cols, nil
}

func validateCommon(r0, period float64, days, population int, absolute bool) error {
	if math.IsNaN(r0) || math.IsInf(r0, 0) || r0 < 0 {
		return configError("R0", "must be a finite non-negative number, got %v", r0)
	}
	if err := validatePeriod("T", period); err != nil {
		return err
	}
	if days <= 0 || days > MaxDays {
		return configError("days", "must be in [1, %d], got %d", MaxDays, days)
	}
	if population < 0 || (absolute && population == 0) {
		return configError("N", "must be positive, got %d", population)
	}
	return nil
}

func validatePeriod(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return configError(field, "must be a finite positive number of days, got %v", v)
	}
	return nil
}

func checkRates(r Rates) error {
	for _, v := range []float64{r.Beta, r.Gamma, r.Sigma} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configError("rates", "derived rate is not finite (beta=%v gamma=%v sigma=%v)", r.Beta, r.Gamma, r.Sigma)
		}
	}
	return nil
}

// CheckOnset validates a mitigation onset day against the horizon.
func CheckOnset(onset, days int) error {
	if onset < 0 || onset > days {
		return configError("Tm", "must be in [0, %d], got %d", days, onset)
	}
	return nil
}

// CheckStrength validates a mitigation strength given in percent.
func CheckStrength(percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return configError("Q", "must be in [0, 100], got %v", percent)
	}
	return nil
}

func timeGrid(days int) []float64 {
	ts := make([]float64, days+1)
	for i := range ts {
		ts[i] = float64(i)
	}
	return ts
}

// closure returns 1 minus the sum of the given columns at every sample,
// floored at zero so rounding never yields a negative compartment.
func closure(cols ...[]float64) []float64 {
	out := make([]float64, len(cols[0]))
	for k := range out {
		rest := 1.0
		for _, c := range cols {
			rest -= c[k]
		}
		out[k] = math.Max(0, rest)
	}
	return out
}

func scaleAll(n float64, cols ...[]float64) {
	for _, c := range cols {
		floats.Scale(n, c)
	}
}

func finite(v []float64) bool {
	if floats.HasNaN(v) {
		return false
	}
	return !math.IsInf(floats.Max(v), 1) && !math.IsInf(floats.Min(v), -1)
}
