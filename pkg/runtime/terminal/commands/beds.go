package commands

import (
	"github.com/de-tools/epi-atlas/pkg/adapters"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/spf13/cobra"
)

type BedsCmd struct {
	svc *projection.Service
	out *Output
	in  projection.BedsInput
}

func NewBedsCmd(svc *projection.Service, out *Output) *cobra.Command {
	bc := &BedsCmd{svc: svc, out: out}
	cmd := &cobra.Command{
		Use:   "beds",
		Short: "Project regional ICU bed demand from a national SEIR run",
		RunE:  bc.run,
	}

	cmd.Flags().Float64Var(&bc.in.R0, "r0", 3, "Basic reproduction number R0")
	cmd.Flags().Float64Var(&bc.in.T, "infectious-period", 7, "Mean infectious period T in days")
	cmd.Flags().Float64Var(&bc.in.Ti, "incubation-period", 5, "Mean incubation period Ti in days")
	cmd.Flags().IntVar(&bc.in.Days, "days", 100, "Projection horizon in days")
	cmd.Flags().IntVar(&bc.in.Tm, "onset", 15, "Day the mitigation starts (Tm)")
	cmd.Flags().Float64Var(&bc.in.M, "multiplier", 1, "Transmission multiplier applied from the onset day (M)")

	return cmd
}

func (bc *BedsCmd) run(cmd *cobra.Command, _ []string) error {
	res, err := bc.svc.Beds(cmd.Context(), bc.in)
	if err != nil {
		return err
	}
	return bc.out.emit(
		adapters.MapBedsProjectionToReport(res.Projection),
		adapters.MapBedsProjectionToApi(res.Projection),
	)
}
