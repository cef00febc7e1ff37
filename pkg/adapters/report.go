package adapters

import (
	"fmt"

	"github.com/de-tools/epi-atlas/pkg/beds"
	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/de-tools/epi-atlas/pkg/models/domain"
	"gonum.org/v1/gonum/floats"
)

// MapResultToReport samples a trajectory every `every` days. The last day is
// always included.
func MapResultToReport(res epidemic.Result, every int) *domain.Report {
	ts := res.Time()
	days := len(ts) - 1
	rates := res.Rates()

	unit := "fraction"
	if res.Absolute() {
		unit = "people"
	}

	details := []domain.ReportDetail{
		{Name: "R0", Value: rates.R0, Description: "basic reproduction number"},
		{Name: "beta", Value: rates.Beta, Unit: "1/day", Description: "transmission rate"},
		{Name: "gamma", Value: rates.Gamma, Unit: "1/day", Description: "recovery rate"},
	}
	if res.Model() != epidemic.ModelSIR {
		details = append(details, domain.ReportDetail{
			Name: "sigma", Value: rates.Sigma, Unit: "1/day", Description: "incubation rate",
		})
	}

	infected, _ := res.Compartment(epidemic.Infected)
	peak := floats.MaxIdx(infected)
	summary := map[string]interface{}{
		"Peak day":      peak,
		"Peak infected": fmt.Sprintf("%.6g %s", infected[peak], unit),
	}
	if res.Absolute() {
		summary["Population"] = res.Population()
	}

	names := res.Compartments()
	columns := make([][]float64, len(names))
	for i, name := range names {
		columns[i], _ = res.Compartment(name)
	}

	return &domain.Report{
		Title:   fmt.Sprintf("%s projection", res.Model()),
		Model:   string(res.Model()),
		Horizon: days,
		Sections: []domain.ReportSection{
			{Title: "Parameters", Details: details},
			{Title: "Trajectory", Summary: summary, Series: sample(names, columns, days, every)},
		},
	}
}

func MapBedsProjectionToReport(p *beds.Projection) *domain.Report {
	details := make([]domain.ReportDetail, 0, len(p.Regions))
	overflowing := 0
	for _, d := range p.Regions {
		desc := "within capacity"
		if d.Overflows() {
			overflowing++
			desc = fmt.Sprintf("exceeds capacity from day %d", d.OverflowDay)
		}
		details = append(details, domain.ReportDetail{
			Name:        d.Name,
			Value:       fmt.Sprintf("%.1f / %.1f", d.PeakOccupied, d.Capacity),
			Unit:        "beds",
			Description: fmt.Sprintf("peak on day %d, %s", d.PeakDay, desc),
		})
	}

	return &domain.Report{
		Title:   "ICU bed demand",
		Model:   "beds",
		Horizon: len(p.Time) - 1,
		Sections: []domain.ReportSection{{
			Title: "Regions (peak occupied / capacity)",
			Summary: map[string]interface{}{
				"Total capacity":      fmt.Sprintf("%.0f", p.TotalCapacity),
				"Regions":             len(p.Regions),
				"Regions overflowing": overflowing,
			},
			Details: details,
		}},
	}
}

func sample(names []string, columns [][]float64, days, every int) *domain.SeriesTable {
	if every <= 0 {
		every = 1
	}
	table := &domain.SeriesTable{Columns: names}
	for day := 0; day <= days; day += every {
		table.Days = append(table.Days, day)
	}
	if table.Days[len(table.Days)-1] != days {
		table.Days = append(table.Days, days)
	}
	for _, day := range table.Days {
		row := make([]float64, len(columns))
		for i, c := range columns {
			row[i] = c[day]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
