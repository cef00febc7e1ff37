package projection

import (
	"context"
	"errors"
	"testing"

	"github.com/de-tools/epi-atlas/pkg/adapters"
	"github.com/de-tools/epi-atlas/pkg/beds"
	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/de-tools/epi-atlas/pkg/models/api"
	"github.com/de-tools/epi-atlas/pkg/observability"
	"github.com/de-tools/epi-atlas/pkg/ode"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, metrics *observability.Metrics) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Solver:  ode.DefaultOptions(),
		Metrics: metrics,
	})
	require.NoError(t, err)
	return svc
}

func sirParams() map[string]interface{} {
	return map[string]interface{}{
		"R0":   3.0,
		"T":    10.0,
		"Tm":   30,
		"Q":    50.0,
		"days": 100,
		"N":    1000,
	}
}

func seirParams() map[string]interface{} {
	p := sirParams()
	p["Ti"] = 5.0
	return p
}

func bedsParams() map[string]interface{} {
	return map[string]interface{}{
		"R0":   2.5,
		"T":    10.0,
		"Ti":   5.0,
		"days": 120,
		"Tm":   40,
		"M":    0.5,
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := newTestService(t, nil)

	assert.Equal(t, []string{ModelSEIR, ModelSEIR2, ModelSIR, ModelBeds}, svc.Models())

	table, err := svc.Regions()
	require.NoError(t, err)
	assert.Equal(t, float64(beds.DefaultTotalBeds), table.TotalBeds)
	assert.Len(t, table.Regions, len(beds.SpainRegions))
}

func TestNewService_InvalidTable(t *testing.T) {
	_, err := NewService(Config{
		Beds: beds.TableConfig{
			Table:       beds.Table{{Name: "A", Population: 0}},
			TotalBeds:   10,
			ICUFraction: 0.05,
		},
	})
	assert.Error(t, err)

	_, err = NewService(Config{
		Beds: beds.TableConfig{
			Table:       beds.Table{{Name: "A", Population: 10}},
			TotalBeds:   10,
			ICUFraction: 2,
		},
	})
	assert.Error(t, err)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		params  map[string]interface{}
		check   func(t *testing.T, out interface{})
		wantErr error
	}{
		{
			name:   "SIR",
			model:  ModelSIR,
			params: sirParams(),
			check: func(t *testing.T, out interface{}) {
				resp, ok := out.(api.SIRResponse)
				require.True(t, ok)
				assert.Len(t, resp.T, 101)
				assert.Len(t, resp.S, 101)
				assert.Len(t, resp.R, 101)
				assert.InDelta(t, 1.0, resp.S[0]+resp.I[0]+resp.R[0], 1e-9)
			},
		},
		{
			name:   "SEIR",
			model:  ModelSEIR,
			params: seirParams(),
			check: func(t *testing.T, out interface{}) {
				resp, ok := out.(api.SEIRResponse)
				require.True(t, ok)
				assert.Len(t, resp.E, 101)
				assert.Equal(t, 100.0, resp.T[100])
			},
		},
		{
			name:   "SEIR2 with defaults",
			model:  ModelSEIR2,
			params: seirParams(),
			check: func(t *testing.T, out interface{}) {
				resp, ok := out.(api.SEIR2Response)
				require.True(t, ok)
				assert.Len(t, resp.P, 101)
				assert.Len(t, resp.M, 101)
			},
		},
		{
			name:   "beds",
			model:  ModelBeds,
			params: bedsParams(),
			check: func(t *testing.T, out interface{}) {
				resp, ok := out.(api.BedsResponse)
				require.True(t, ok)
				assert.Len(t, resp.T, 121)
				require.Len(t, resp.Regions, len(beds.SpainRegions))
				assert.Equal(t, beds.SpainRegions[0].Name, resp.Regions[0].Name)
				assert.Len(t, resp.Regions[0].Camas, 121)
				assert.Len(t, resp.Regions[0].Infected, 121)
				assert.Len(t, resp.Regions[0].Recovered, 121)
			},
		},
		{
			name:    "unknown model",
			model:   "SIS",
			params:  sirParams(),
			wantErr: ErrUnknownModel,
		},
		{
			name:  "missing parameter",
			model: ModelSEIR,
			params: func() map[string]interface{} {
				p := seirParams()
				delete(p, "Ti")
				return p
			}(),
			wantErr: epidemic.ErrConfiguration,
		},
		{
			name:  "strength out of range",
			model: ModelSIR,
			params: func() map[string]interface{} {
				p := sirParams()
				p["Q"] = 150.0
				return p
			}(),
			wantErr: epidemic.ErrConfiguration,
		},
		{
			name:  "onset beyond horizon",
			model: ModelSIR,
			params: func() map[string]interface{} {
				p := sirParams()
				p["Tm"] = 500
				return p
			}(),
			wantErr: epidemic.ErrConfiguration,
		},
		{
			name:  "beds multiplier out of range",
			model: ModelBeds,
			params: func() map[string]interface{} {
				p := bedsParams()
				p["M"] = 1.5
				return p
			}(),
			wantErr: epidemic.ErrConfiguration,
		},
	}

	svc := newTestService(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Dispatch(context.Background(), tt.model, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestDispatch_ExplicitScheduleOverridesStrength(t *testing.T) {
	svc := newTestService(t, nil)

	explicit := sirParams()
	delete(explicit, "Tm")
	delete(explicit, "Q")
	explicit["intervals"] = []interface{}{[]interface{}{0, 30}, []interface{}{30, 100}}
	explicit["multipliers"] = []interface{}{1.0, 0.5}

	got, err := svc.Dispatch(context.Background(), ModelSIR, explicit)
	require.NoError(t, err)
	want, err := svc.Dispatch(context.Background(), ModelSIR, sirParams())
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestDispatch_StringNumbers(t *testing.T) {
	svc := newTestService(t, nil)

	p := sirParams()
	p["R0"] = "3"
	p["days"] = "100"

	out, err := svc.Dispatch(context.Background(), ModelSIR, p)
	require.NoError(t, err)
	assert.Len(t, out.(api.SIRResponse).T, 101)
}

func TestBeds_UsesFractionalSeries(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.Beds(context.Background(), BedsInput{R0: 2.5, T: 10, Ti: 5, Days: 120, Tm: 40, M: 0.5})
	require.NoError(t, err)
	assert.False(t, res.SEIR.Absolute())

	madrid, ok := res.Projection.Region("Madrid")
	require.True(t, ok)
	infected := res.SEIR.I()
	for day := range infected {
		assert.InDelta(t, infected[day]*madrid.Population*beds.DefaultICUFraction, madrid.Occupied[day], 1e-6)
	}

	resp := adapters.MapBedsProjectionToApi(res.Projection)
	recovered := res.SEIR.R()
	for _, region := range resp.Regions {
		if region.Name != "Madrid" {
			continue
		}
		for day := range recovered {
			assert.InDelta(t, infected[day]*madrid.Population, region.Infected[day], 1e-6)
			assert.InDelta(t, recovered[day]*madrid.Population, region.Recovered[day], 1e-6)
		}
	}
}

func TestBatch(t *testing.T) {
	svc := newTestService(t, nil)

	results, err := svc.Batch(context.Background(), []api.ProjectionRequest{
		{Model: ModelSEIR, Params: seirParams()},
		{Model: ModelSIR, Params: sirParams()},
		{Model: ModelBeds, Params: bedsParams()},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.IsType(t, api.SEIRResponse{}, results[0])
	assert.IsType(t, api.SIRResponse{}, results[1])
	assert.IsType(t, api.BedsResponse{}, results[2])
}

func TestBatch_Errors(t *testing.T) {
	svc, err := NewService(Config{MaxBatch: 2})
	require.NoError(t, err)

	_, err = svc.Batch(context.Background(), nil)
	assert.ErrorIs(t, err, epidemic.ErrConfiguration)

	_, err = svc.Batch(context.Background(), []api.ProjectionRequest{
		{Model: ModelSIR, Params: sirParams()},
		{Model: ModelSIR, Params: sirParams()},
		{Model: ModelSIR, Params: sirParams()},
	})
	assert.ErrorIs(t, err, epidemic.ErrConfiguration)

	_, err = svc.Batch(context.Background(), []api.ProjectionRequest{
		{Model: ModelSIR, Params: sirParams()},
		{Model: "nope", Params: sirParams()},
	})
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Contains(t, err.Error(), "projection 1")
}

func TestBatch_CancelledContext(t *testing.T) {
	svc := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Batch(ctx, []api.ProjectionRequest{{Model: ModelSIR, Params: sirParams()}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := newTestService(t, metrics)

	_, err := svc.Dispatch(context.Background(), ModelSIR, sirParams())
	require.NoError(t, err)

	bad := sirParams()
	bad["T"] = -1.0
	_, err = svc.Dispatch(context.Background(), ModelSIR, bad)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(metrics.Registry(), "projections_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&epidemic.ConfigurationError{Field: "R0", Reason: "negative"}, "configuration_error"},
		{ErrUnknownModel, "configuration_error"},
		{&epidemic.NumericalError{Model: epidemic.ModelSIR, Err: ode.ErrMaxSteps}, "numerical_error"},
		{&beds.NormalizationError{Reason: "zero population"}, "normalization_error"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}
