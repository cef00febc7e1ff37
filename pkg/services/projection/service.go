package projection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/de-tools/epi-atlas/pkg/adapters"
	"github.com/de-tools/epi-atlas/pkg/beds"
	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/de-tools/epi-atlas/pkg/models/api"
	"github.com/de-tools/epi-atlas/pkg/observability"
	"github.com/de-tools/epi-atlas/pkg/ode"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	ModelSIR   = string(epidemic.ModelSIR)
	ModelSEIR  = string(epidemic.ModelSEIR)
	ModelSEIR2 = string(epidemic.ModelSEIR2)
	ModelBeds  = "beds"

	DefaultMaxBatch    = 32
	DefaultParallelism = 4

	DefaultFatalityProportion = 0.01
	DefaultDeathDelay         = 14
	DefaultImpactDuration     = 30
)

// Dispatcher is what the HTTP layer needs from the service.
type Dispatcher interface {
	Dispatch(ctx context.Context, model string, params map[string]interface{}) (interface{}, error)
	Batch(ctx context.Context, reqs []api.ProjectionRequest) ([]interface{}, error)
	Models() []string
	Regions() (api.RegionTable, error)
}

type Config struct {
	Solver      ode.Options
	Beds        beds.TableConfig
	Metrics     *observability.Metrics
	MaxBatch    int
	Parallelism int
}

type Service struct {
	driver      *epidemic.Driver
	beds        beds.TableConfig
	metrics     *observability.Metrics
	registry    Registry
	maxBatch    int
	parallelism int
}

func NewService(cfg Config) (*Service, error) {
	if len(cfg.Beds.Table) == 0 {
		cfg.Beds = beds.DefaultTableConfig()
	}
	if _, err := beds.Capacities(cfg.Beds.Table, cfg.Beds.TotalBeds); err != nil {
		return nil, fmt.Errorf("invalid region table: %w", err)
	}
	if f := cfg.Beds.ICUFraction; math.IsNaN(f) || f < 0 || f > 1 {
		return nil, fmt.Errorf("invalid ICU fraction %v", f)
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}

	s := &Service{
		driver:      epidemic.NewDriver(cfg.Solver),
		beds:        cfg.Beds,
		metrics:     cfg.Metrics,
		registry:    NewRegistry(),
		maxBatch:    cfg.MaxBatch,
		parallelism: cfg.Parallelism,
	}

	runners := map[string]Runner{
		ModelSIR:   s.runSIR,
		ModelSEIR:  s.runSEIR,
		ModelSEIR2: s.runSEIR2,
		ModelBeds:  s.runBeds,
	}
	for model, runner := range runners {
		if err := s.registry.Register(model, runner); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type SIRInput struct {
	R0       float64
	T        float64
	Tm       int
	Q        float64
	Days     int
	N        int
	Absolute bool
	// Mitigation overrides Tm and Q when set.
	Mitigation *epidemic.Mitigation
}

type SEIRInput struct {
	R0         float64
	T          float64
	Ti         float64
	Tm         int
	Q          float64
	Days       int
	N          int
	Absolute   bool
	Mitigation *epidemic.Mitigation
}

type SEIR2Input struct {
	SEIRInput
	Phi            float64
	DeathDelay     float64
	ImpactDuration float64
	K              float64
}

type BedsInput struct {
	R0   float64
	T    float64
	Ti   float64
	Days int
	Tm   int
	// M is the raw transmission multiplier applied from Tm on.
	M float64
}

type BedsResult struct {
	SEIR       *epidemic.SEIRResult
	Projection *beds.Projection
}

func (s *Service) SIR(ctx context.Context, in SIRInput) (*epidemic.SIRResult, error) {
	start := time.Now()
	res, err := func() (*epidemic.SIRResult, error) {
		m, err := strengthMitigation(in.Tm, in.Q, in.Days, in.Mitigation)
		if err != nil {
			return nil, err
		}
		return s.driver.RunSIR(epidemic.SIRConfig{
			R0:               in.R0,
			InfectiousPeriod: in.T,
			Days:             in.Days,
			Population:       in.N,
			Absolute:         in.Absolute,
			Mitigation:       m,
		})
	}()
	s.observe(ctx, ModelSIR, in.Days, start, err)
	return res, err
}

func (s *Service) SEIR(ctx context.Context, in SEIRInput) (*epidemic.SEIRResult, error) {
	start := time.Now()
	res, err := s.seir(in)
	s.observe(ctx, ModelSEIR, in.Days, start, err)
	return res, err
}

func (s *Service) seir(in SEIRInput) (*epidemic.SEIRResult, error) {
	m, err := strengthMitigation(in.Tm, in.Q, in.Days, in.Mitigation)
	if err != nil {
		return nil, err
	}
	return s.driver.RunSEIR(seirConfig(in, m))
}

func (s *Service) SEIR2(ctx context.Context, in SEIR2Input) (*epidemic.SEIR2Result, error) {
	start := time.Now()
	res, err := func() (*epidemic.SEIR2Result, error) {
		m, err := strengthMitigation(in.Tm, in.Q, in.Days, in.Mitigation)
		if err != nil {
			return nil, err
		}
		return s.driver.RunSEIR2(epidemic.SEIR2Config{
			R0:                 in.R0,
			InfectiousPeriod:   in.T,
			IncubationPeriod:   in.Ti,
			FatalityProportion: in.Phi,
			DeathDelay:         in.DeathDelay,
			ImpactDuration:     in.ImpactDuration,
			ResponseIntensity:  in.K,
			Days:               in.Days,
			Population:         in.N,
			Absolute:           in.Absolute,
			Mitigation:         m,
		})
	}()
	s.observe(ctx, ModelSEIR2, in.Days, start, err)
	return res, err
}

// Beds runs a fractional SEIR projection and spreads it over the configured
// region table.
func (s *Service) Beds(ctx context.Context, in BedsInput) (*BedsResult, error) {
	start := time.Now()
	res, err := func() (*BedsResult, error) {
		if math.IsNaN(in.M) || in.M < 0 || in.M > 1 {
			return nil, &epidemic.ConfigurationError{Field: "M", Reason: fmt.Sprintf("must be in [0, 1], got %v", in.M)}
		}
		if in.Days > 0 {
			if err := epidemic.CheckOnset(in.Tm, in.Days); err != nil {
				return nil, err
			}
		}

		m := epidemic.StepMitigation(in.Tm, in.Days, in.M)
		seir, err := s.driver.RunSEIR(epidemic.SEIRConfig{
			R0:               in.R0,
			InfectiousPeriod: in.T,
			IncubationPeriod: in.Ti,
			Days:             in.Days,
			Population:       int(math.Round(s.beds.Table.TotalPopulation())),
			Mitigation:       m,
		})
		if err != nil {
			return nil, err
		}

		proj, err := beds.Project(beds.Series{
			Time:      seir.Time(),
			Infected:  seir.I(),
			Recovered: seir.R(),
		}, s.beds.Table, beds.Options{
			Normalization: beds.Fractional,
			ICUFraction:   s.beds.ICUFraction,
			TotalBeds:     s.beds.TotalBeds,
		})
		if err != nil {
			return nil, err
		}
		return &BedsResult{SEIR: seir, Projection: proj}, nil
	}()
	s.observe(ctx, ModelBeds, in.Days, start, err)
	return res, err
}

func (s *Service) Dispatch(ctx context.Context, model string, params map[string]interface{}) (interface{}, error) {
	runner, err := s.registry.Get(model)
	if err != nil {
		return nil, err
	}
	return runner(ctx, Params(params))
}

// Batch runs independent projections concurrently and returns their payloads
// in request order. The first failure cancels the rest.
func (s *Service) Batch(ctx context.Context, reqs []api.ProjectionRequest) ([]interface{}, error) {
	if len(reqs) == 0 {
		return nil, &epidemic.ConfigurationError{Field: "projections", Reason: "empty batch"}
	}
	if len(reqs) > s.maxBatch {
		return nil, &epidemic.ConfigurationError{
			Field:  "projections",
			Reason: fmt.Sprintf("%d projections exceed the limit of %d", len(reqs), s.maxBatch),
		}
	}

	results := make([]interface{}, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.Dispatch(gctx, req.Model, req.Params)
			if err != nil {
				return fmt.Errorf("projection %d (%s): %w", i, req.Model, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) Models() []string {
	return s.registry.ListModels()
}

func (s *Service) Regions() (api.RegionTable, error) {
	return adapters.MapTableConfigToApi(s.beds)
}

func (s *Service) runSIR(ctx context.Context, p Params) (interface{}, error) {
	in, err := parseSIR(p)
	if err != nil {
		return nil, err
	}
	res, err := s.SIR(ctx, in)
	if err != nil {
		return nil, err
	}
	return adapters.MapSIRResultToApi(res), nil
}

func (s *Service) runSEIR(ctx context.Context, p Params) (interface{}, error) {
	in, err := parseSEIR(p)
	if err != nil {
		return nil, err
	}
	res, err := s.SEIR(ctx, in)
	if err != nil {
		return nil, err
	}
	return adapters.MapSEIRResultToApi(res), nil
}

func (s *Service) runSEIR2(ctx context.Context, p Params) (interface{}, error) {
	in, err := parseSEIR2(p)
	if err != nil {
		return nil, err
	}
	res, err := s.SEIR2(ctx, in)
	if err != nil {
		return nil, err
	}
	return adapters.MapSEIR2ResultToApi(res), nil
}

func (s *Service) runBeds(ctx context.Context, p Params) (interface{}, error) {
	in, err := parseBeds(p)
	if err != nil {
		return nil, err
	}
	res, err := s.Beds(ctx, in)
	if err != nil {
		return nil, err
	}
	return adapters.MapBedsProjectionToApi(res.Projection), nil
}

func (s *Service) observe(ctx context.Context, model string, days int, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := Outcome(err)
	s.metrics.ObserveProjection(model, outcome, elapsed)

	logger := zerolog.Ctx(ctx)
	switch outcome {
	case "ok":
		logger.Debug().
			Str("model", model).
			Int("days", days).
			Dur("elapsed", elapsed).
			Msg("projection computed")
	case "configuration_error":
		logger.Warn().
			Err(err).
			Str("model", model).
			Msg("projection rejected")
	default:
		logger.Error().
			Err(err).
			Str("model", model).
			Int("days", days).
			Msg("projection failed")
	}
}

// Outcome classifies err for metrics and status mapping.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, epidemic.ErrConfiguration), errors.Is(err, ErrUnknownModel):
		return "configuration_error"
	case errors.Is(err, epidemic.ErrNumerical):
		return "numerical_error"
	case errors.Is(err, beds.ErrNormalization):
		return "normalization_error"
	default:
		return "error"
	}
}

func seirConfig(in SEIRInput, m epidemic.Mitigation) epidemic.SEIRConfig {
	return epidemic.SEIRConfig{
		R0:               in.R0,
		InfectiousPeriod: in.T,
		IncubationPeriod: in.Ti,
		Days:             in.Days,
		Population:       in.N,
		Absolute:         in.Absolute,
		Mitigation:       m,
	}
}

func strengthMitigation(tm int, q float64, days int, explicit *epidemic.Mitigation) (epidemic.Mitigation, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if err := epidemic.CheckStrength(q); err != nil {
		return epidemic.Mitigation{}, err
	}
	// A bad horizon is reported by the driver.
	if days > 0 {
		if err := epidemic.CheckOnset(tm, days); err != nil {
			return epidemic.Mitigation{}, err
		}
	}
	return epidemic.StepMitigation(tm, days, epidemic.StrengthMultiplier(q)), nil
}
