package adapters

import (
	"fmt"

	"github.com/de-tools/epi-atlas/pkg/beds"
	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/de-tools/epi-atlas/pkg/models/api"
)

func MapSIRResultToApi(res *epidemic.SIRResult) api.SIRResponse {
	return api.SIRResponse{
		T: res.Time(),
		S: res.S(),
		I: res.I(),
		R: res.R(),
	}
}

func MapSEIRResultToApi(res *epidemic.SEIRResult) api.SEIRResponse {
	return api.SEIRResponse{
		T: res.Time(),
		S: res.S(),
		E: res.E(),
		I: res.I(),
		R: res.R(),
	}
}

func MapSEIR2ResultToApi(res *epidemic.SEIR2Result) api.SEIR2Response {
	return api.SEIR2Response{
		T: res.Time(),
		S: res.S(),
		E: res.E(),
		I: res.I(),
		R: res.R(),
		D: res.D(),
		M: res.M(),
		P: res.P(),
	}
}

func MapResultToApi(res epidemic.Result) (interface{}, error) {
	switch r := res.(type) {
	case *epidemic.SIRResult:
		return MapSIRResultToApi(r), nil
	case *epidemic.SEIRResult:
		return MapSEIRResultToApi(r), nil
	case *epidemic.SEIR2Result:
		return MapSEIR2ResultToApi(r), nil
	default:
		return nil, fmt.Errorf("unsupported result type %T", res)
	}
}

func MapBedsProjectionToApi(p *beds.Projection) api.BedsResponse {
	resp := api.BedsResponse{
		T:       append([]float64(nil), p.Time...),
		Regions: make([]api.NamedRegionBeds, 0, len(p.Regions)),
	}
	for _, d := range p.Regions {
		resp.Regions = append(resp.Regions, api.NamedRegionBeds{
			Name: d.Name,
			RegionBeds: api.RegionBeds{
				Capacity:     d.Capacity,
				Camas:        append([]float64(nil), d.Occupied...),
				Infected:     append([]float64(nil), d.Infected...),
				Recovered:    append([]float64(nil), d.Recovered...),
				PeakOccupied: d.PeakOccupied,
				PeakDay:      d.PeakDay,
				OverflowDay:  d.OverflowDay,
			},
		})
	}
	return resp
}

func MapTableConfigToApi(cfg beds.TableConfig) (api.RegionTable, error) {
	capacity, err := beds.Capacities(cfg.Table, cfg.TotalBeds)
	if err != nil {
		return api.RegionTable{}, err
	}

	table := api.RegionTable{
		TotalBeds:   cfg.TotalBeds,
		ICUFraction: cfg.ICUFraction,
		Regions:     make([]api.Region, 0, len(cfg.Table)),
	}
	for i, r := range cfg.Table {
		table.Regions = append(table.Regions, api.Region{
			Name:       r.Name,
			Population: r.Population,
			Capacity:   capacity[i],
		})
	}
	return table, nil
}
