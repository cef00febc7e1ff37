package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/de-tools/epi-atlas/pkg/adapters"
	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ProjectionCmd struct {
	svc *projection.Service
	out *Output

	sir   projection.SIRInput
	ti    float64
	seir2 projection.SEIR2Input

	intervals   []string
	multipliers []float64
}

func bindSIRFlags(flags *pflag.FlagSet, in *projection.SIRInput) {
	flags.Float64Var(&in.R0, "r0", 3, "Basic reproduction number R0")
	flags.Float64Var(&in.T, "infectious-period", 7, "Mean infectious period T in days")
	flags.IntVar(&in.Tm, "onset", 15, "Day the mitigation starts (Tm)")
	flags.Float64Var(&in.Q, "strength", 0, "Mitigation strength Q in percent")
	flags.IntVar(&in.Days, "days", 100, "Projection horizon in days")
	flags.IntVar(&in.N, "population", 47000000, "Population size N")
	flags.BoolVar(&in.Absolute, "absolute", false, "Report compartments in people instead of fractions")
}

func (pc *ProjectionCmd) bindScheduleFlags(flags *pflag.FlagSet) {
	flags.StringSliceVar(&pc.intervals, "intervals", nil,
		"Explicit schedule intervals as start:end day pairs, e.g. 0:15,15:100 (overrides --onset and --strength)")
	flags.Float64SliceVar(&pc.multipliers, "multipliers", nil,
		"Transmission multiplier per interval, e.g. 1,0.5")
}

// schedule builds the explicit mitigation from --intervals and --multipliers.
// It returns nil when neither flag is set.
func (pc *ProjectionCmd) schedule() (*epidemic.Mitigation, error) {
	if len(pc.intervals) == 0 && len(pc.multipliers) == 0 {
		return nil, nil
	}
	if len(pc.intervals) == 0 {
		return nil, &epidemic.ConfigurationError{Field: "intervals", Reason: "required with --multipliers"}
	}
	if len(pc.multipliers) == 0 {
		return nil, &epidemic.ConfigurationError{Field: "multipliers", Reason: "required with --intervals"}
	}

	m := epidemic.Mitigation{Multipliers: append([]float64(nil), pc.multipliers...)}
	for _, raw := range pc.intervals {
		iv, err := parseInterval(raw)
		if err != nil {
			return nil, err
		}
		m.Intervals = append(m.Intervals, iv)
	}
	return &m, nil
}

func parseInterval(raw string) (epidemic.Interval, error) {
	start, end, ok := strings.Cut(raw, ":")
	if !ok {
		return epidemic.Interval{}, &epidemic.ConfigurationError{
			Field:  "intervals",
			Reason: fmt.Sprintf("%q is not a start:end pair", raw),
		}
	}
	s, err1 := strconv.Atoi(strings.TrimSpace(start))
	e, err2 := strconv.Atoi(strings.TrimSpace(end))
	if err1 != nil || err2 != nil {
		return epidemic.Interval{}, &epidemic.ConfigurationError{
			Field:  "intervals",
			Reason: fmt.Sprintf("%q is not a pair of integer days", raw),
		}
	}
	return epidemic.Interval{Start: s, End: e}, nil
}

func NewSIRCmd(svc *projection.Service, out *Output) *cobra.Command {
	pc := &ProjectionCmd{svc: svc, out: out}
	cmd := &cobra.Command{
		Use:   "sir",
		Short: "Project an SIR epidemic",
		RunE:  pc.runSIR,
	}
	bindSIRFlags(cmd.Flags(), &pc.sir)
	pc.bindScheduleFlags(cmd.Flags())
	return cmd
}

func NewSEIRCmd(svc *projection.Service, out *Output) *cobra.Command {
	pc := &ProjectionCmd{svc: svc, out: out}
	cmd := &cobra.Command{
		Use:   "seir",
		Short: "Project an SEIR epidemic",
		RunE:  pc.runSEIR,
	}
	bindSIRFlags(cmd.Flags(), &pc.sir)
	pc.bindScheduleFlags(cmd.Flags())
	cmd.Flags().Float64Var(&pc.ti, "incubation-period", 5, "Mean incubation period Ti in days")
	return cmd
}

func NewSEIR2Cmd(svc *projection.Service, out *Output) *cobra.Command {
	pc := &ProjectionCmd{svc: svc, out: out}
	cmd := &cobra.Command{
		Use:   "seir2",
		Short: "Project an SEIR epidemic with deaths and risk perception",
		RunE:  pc.runSEIR2,
	}
	bindSIRFlags(cmd.Flags(), &pc.sir)
	pc.bindScheduleFlags(cmd.Flags())
	cmd.Flags().Float64Var(&pc.ti, "incubation-period", 5, "Mean incubation period Ti in days")
	cmd.Flags().Float64Var(&pc.seir2.Phi, "fatality", projection.DefaultFatalityProportion,
		"Proportion of removed cases that die (phi)")
	cmd.Flags().Float64Var(&pc.seir2.DeathDelay, "death-delay", projection.DefaultDeathDelay,
		"Mean days from leaving I to death")
	cmd.Flags().Float64Var(&pc.seir2.ImpactDuration, "impact-duration", projection.DefaultImpactDuration,
		"Mean days a death weighs on perceived risk")
	cmd.Flags().Float64Var(&pc.seir2.K, "response", 0, "Response intensity k")
	return cmd
}

func (pc *ProjectionCmd) seirInput() projection.SEIRInput {
	return projection.SEIRInput{
		R0:       pc.sir.R0,
		T:        pc.sir.T,
		Ti:       pc.ti,
		Tm:       pc.sir.Tm,
		Q:        pc.sir.Q,
		Days:     pc.sir.Days,
		N:        pc.sir.N,
		Absolute: pc.sir.Absolute,

		Mitigation: pc.sir.Mitigation,
	}
}

func (pc *ProjectionCmd) runSIR(cmd *cobra.Command, _ []string) error {
	if err := pc.resolveSchedule(); err != nil {
		return err
	}
	res, err := pc.svc.SIR(cmd.Context(), pc.sir)
	if err != nil {
		return err
	}
	return pc.emitResult(res)
}

func (pc *ProjectionCmd) runSEIR(cmd *cobra.Command, _ []string) error {
	if err := pc.resolveSchedule(); err != nil {
		return err
	}
	res, err := pc.svc.SEIR(cmd.Context(), pc.seirInput())
	if err != nil {
		return err
	}
	return pc.emitResult(res)
}

func (pc *ProjectionCmd) runSEIR2(cmd *cobra.Command, _ []string) error {
	if err := pc.resolveSchedule(); err != nil {
		return err
	}
	in := pc.seir2
	in.SEIRInput = pc.seirInput()

	res, err := pc.svc.SEIR2(cmd.Context(), in)
	if err != nil {
		return err
	}
	return pc.emitResult(res)
}

func (pc *ProjectionCmd) resolveSchedule() error {
	m, err := pc.schedule()
	if err != nil {
		return err
	}
	pc.sir.Mitigation = m
	return nil
}

func (pc *ProjectionCmd) emitResult(res epidemic.Result) error {
	payload, err := adapters.MapResultToApi(res)
	if err != nil {
		return err
	}
	return pc.out.emit(adapters.MapResultToReport(res, pc.out.Every), payload)
}
