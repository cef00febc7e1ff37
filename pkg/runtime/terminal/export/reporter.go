package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/epi-atlas/pkg/models/domain"
)

type TableConfig struct {
	NameWidth        int
	ValueWidth       int
	UnitWidth        int
	DescriptionWidth int
	// SeriesWidth is the width of one trajectory column.
	SeriesWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		NameWidth:        24,
		ValueWidth:       24,
		UnitWidth:        10,
		DescriptionWidth: 48,
		SeriesWidth:      14,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

const reportTemplate = `
{{.Title}} ({{.Horizon}} days)
{{range .Sections}}
=== {{.Title}} ===
{{range $key, $value := .Summary}}{{$key}}: {{$value}}
{{end}}{{if .Details}}
{{separator}}
{{formatRow "Name" "Value" "Unit" "Description"}}
{{separator}}
{{range .Details}}{{formatRow .Name .Value .Unit .Description}}
{{end}}{{separator}}
{{end}}{{with .Series}}{{$series := .}}
{{seriesHeader .Columns}}
{{range $i, $day := .Days}}{{seriesRow $day (index $series.Rows $i)}}
{{end}}{{end}}{{end}}`

// Handle renders report as text tables.
func (c *Reporter) Handle(report *domain.Report) error {
	funcMap := template.FuncMap{
		"formatRow": func(name string, value interface{}, unit string, desc string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %-*s |",
				c.config.NameWidth, name,
				c.config.ValueWidth, formatValue(value),
				c.config.UnitWidth, unit,
				c.config.DescriptionWidth, desc)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.ValueWidth+2),
				strings.Repeat("-", c.config.UnitWidth+2),
				strings.Repeat("-", c.config.DescriptionWidth+2))
		},
		"seriesHeader": func(columns []string) string {
			var b strings.Builder
			fmt.Fprintf(&b, "%6s", "day")
			for _, col := range columns {
				fmt.Fprintf(&b, " %*s", c.config.SeriesWidth, col)
			}
			return b.String()
		},
		"seriesRow": func(day int, row []float64) string {
			var b strings.Builder
			fmt.Fprintf(&b, "%6d", day)
			for _, v := range row {
				fmt.Fprintf(&b, " %*.6g", c.config.SeriesWidth, v)
			}
			return b.String()
		},
	}

	t, err := template.New("report").Funcs(funcMap).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}

// HandleJSON writes v as indented JSON.
func (c *Reporter) HandleJSON(v interface{}) error {
	enc := json.NewEncoder(c.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.6g", x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
