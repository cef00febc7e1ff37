package commands

import (
	"fmt"

	"github.com/de-tools/epi-atlas/pkg/models/domain"
	"github.com/de-tools/epi-atlas/pkg/runtime/terminal/export"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Output holds the persistent output flags shared by every command.
type Output struct {
	Format   string
	Every    int
	Reporter *export.Reporter
}

func (o *Output) emit(report *domain.Report, payload interface{}) error {
	switch o.Format {
	case FormatText, "":
		return o.Reporter.Handle(report)
	case FormatJSON:
		return o.Reporter.HandleJSON(payload)
	default:
		return fmt.Errorf("unsupported output format %q (want %s or %s)", o.Format, FormatText, FormatJSON)
	}
}
