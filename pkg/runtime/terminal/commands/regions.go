package commands

import (
	"fmt"
	"strings"

	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/spf13/cobra"
)

type RegionsCmd struct {
	svc *projection.Service
	out *Output
}

func NewRegionsCmd(svc *projection.Service, out *Output) *cobra.Command {
	rc := &RegionsCmd{svc: svc, out: out}
	return &cobra.Command{
		Use:   "regions",
		Short: "List the configured regions and their ICU capacity",
		RunE:  rc.run,
	}
}

func (rc *RegionsCmd) run(cmd *cobra.Command, _ []string) error {
	table, err := rc.svc.Regions()
	if err != nil {
		return fmt.Errorf("failed to build region table: %w", err)
	}
	if rc.out.Format == FormatJSON {
		return rc.out.Reporter.HandleJSON(table)
	}

	lines := make([]string, 0, len(table.Regions))
	for _, r := range table.Regions {
		lines = append(lines, fmt.Sprintf("%-20s %12.0f %8.1f", r.Name, r.Population, r.Capacity))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Regions (%.0f ICU beds, ICU fraction %g):\n%s\n",
		table.TotalBeds, table.ICUFraction, strings.Join(lines, "\n"))
	return nil
}
