// Package beds scales a national epidemic trajectory down to regions and
// estimates ICU bed demand against each region's share of capacity.
package beds

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrNormalization = errors.New("normalization failure")

type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string {
	return "bed projection: " + e.Reason
}

func (e *NormalizationError) Unwrap() error {
	return ErrNormalization
}

func normalizationError(format string, args ...interface{}) error {
	return &NormalizationError{Reason: fmt.Sprintf(format, args...)}
}

// Normalization states what the national series are measured in.
type Normalization int

const (
	// Fractional series are shares of the national population; a region's
	// curve is the series times the region's own population.
	Fractional Normalization = iota
	// Absolute series are head counts over NationalPopulation; a region's
	// curve is the series times its population share.
	Absolute
)

func (n Normalization) String() string {
	switch n {
	case Fractional:
		return "fractional"
	case Absolute:
		return "absolute"
	default:
		return fmt.Sprintf("Normalization(%d)", int(n))
	}
}

// Series is the part of a national trajectory the projection needs.
// Recovered is optional.
type Series struct {
	Time      []float64
	Infected  []float64
	Recovered []float64
}

type Options struct {
	Normalization      Normalization
	NationalPopulation float64
	ICUFraction        float64
	TotalBeds          float64
}

func DefaultOptions() Options {
	return Options{
		Normalization: Fractional,
		ICUFraction:   DefaultICUFraction,
		TotalBeds:     DefaultTotalBeds,
	}
}

// Demand is the projected ICU load of one region.
type Demand struct {
	Name       string
	Population float64
	Capacity   float64
	Infected   []float64
	Recovered  []float64
	Occupied   []float64
	// PeakOccupied is reached first on PeakDay.
	PeakOccupied float64
	PeakDay      int
	// OverflowDay is the first day occupied beds exceed capacity, or -1.
	OverflowDay int
}

func (d Demand) Overflows() bool {
	return d.OverflowDay >= 0
}

type Projection struct {
	Time          []float64
	Regions       []Demand
	TotalCapacity float64
}

func (p *Projection) Region(name string) (Demand, bool) {
	for _, d := range p.Regions {
		if d.Name == name {
			return d, true
		}
	}
	return Demand{}, false
}

// Capacities splits total beds across the table by population share.
func Capacities(table Table, totalBeds float64) ([]float64, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(totalBeds) || math.IsInf(totalBeds, 0) || totalBeds < 0 {
		return nil, normalizationError("total beds must be a finite non-negative number, got %v", totalBeds)
	}
	perCapita := totalBeds / table.TotalPopulation()
	out := make([]float64, len(table))
	for i, r := range table {
		out[i] = perCapita * r.Population
	}
	return out, nil
}

// Project computes per-region infected curves, ICU occupancy and capacity.
func Project(series Series, table Table, opts Options) (*Projection, error) {
	if err := validate(series, opts); err != nil {
		return nil, err
	}
	capacity, err := Capacities(table, opts.TotalBeds)
	if err != nil {
		return nil, err
	}

	proj := &Projection{
		Time:          append([]float64(nil), series.Time...),
		Regions:       make([]Demand, len(table)),
		TotalCapacity: floats.Sum(capacity),
	}
	for idx, region := range table {
		weight := region.Population
		if opts.Normalization == Absolute {
			weight = region.Population / opts.NationalPopulation
		}

		infected := scaled(series.Infected, weight)
		occupied := scaled(infected, opts.ICUFraction)
		var recovered []float64
		if series.Recovered != nil {
			recovered = scaled(series.Recovered, weight)
		}

		peakDay := floats.MaxIdx(occupied)
		proj.Regions[idx] = Demand{
			Name:         region.Name,
			Population:   region.Population,
			Capacity:     capacity[idx],
			Infected:     infected,
			Recovered:    recovered,
			Occupied:     occupied,
			PeakOccupied: occupied[peakDay],
			PeakDay:      peakDay,
			OverflowDay:  firstAbove(occupied, capacity[idx]),
		}
	}
	return proj, nil
}

func validate(series Series, opts Options) error {
	if len(series.Time) == 0 {
		return normalizationError("empty trajectory")
	}
	if len(series.Infected) != len(series.Time) {
		return normalizationError("infected series has %d samples, time axis has %d",
			len(series.Infected), len(series.Time))
	}
	if series.Recovered != nil && len(series.Recovered) != len(series.Time) {
		return normalizationError("recovered series has %d samples, time axis has %d",
			len(series.Recovered), len(series.Time))
	}
	switch opts.Normalization {
	case Fractional:
	case Absolute:
		if !(opts.NationalPopulation > 0) || math.IsInf(opts.NationalPopulation, 0) {
			return normalizationError("absolute series need a positive national population, got %v",
				opts.NationalPopulation)
		}
	default:
		return normalizationError("unknown normalization %v", opts.Normalization)
	}
	if math.IsNaN(opts.ICUFraction) || opts.ICUFraction < 0 || opts.ICUFraction > 1 {
		return normalizationError("ICU fraction must be in [0, 1], got %v", opts.ICUFraction)
	}
	return nil
}

func scaled(v []float64, c float64) []float64 {
	out := make([]float64, len(v))
	floats.ScaleTo(out, c, v)
	return out
}

func firstAbove(v []float64, limit float64) int {
	for i, x := range v {
		if x > limit {
			return i
		}
	}
	return -1
}
