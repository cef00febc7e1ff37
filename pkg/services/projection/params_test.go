package projection

import (
	"context"
	"testing"

	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Scalars(t *testing.T) {
	p := Params{
		"float":  2.5,
		"string": "7",
		"bool":   "true",
		"bad":    "seven",
		"nil":    nil,
	}

	v, err := p.Float("float")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	n, err := p.Int("string")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	b, err := p.Bool("bool")
	require.NoError(t, err)
	assert.True(t, b)

	def, err := p.FloatOr("nil", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, def)

	_, err = p.Float("bad")
	var cfgErr *epidemic.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "bad", cfgErr.Field)

	_, err = p.Int("absent")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "absent", cfgErr.Field)
	assert.Equal(t, "missing", cfgErr.Reason)
}

func TestParams_IntIsDecimal(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int
		wantErr bool
	}{
		{name: "zero padded", value: "010", want: 10},
		{name: "zero padded eight", value: "08", want: 8},
		{name: "padded with spaces", value: " 15 ", want: 15},
		{name: "json number", value: 15.0, want: 15},
		{name: "int", value: 7, want: 7},
		{name: "hex is not a day", value: "0x10", wantErr: true},
		{name: "fraction text", value: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Params{"Tm": tt.value}.Int("Tm")
			if tt.wantErr {
				var cfgErr *epidemic.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "Tm", cfgErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_Mitigation(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		want      epidemic.Mitigation
		wantOK    bool
		wantField string
	}{
		{
			name:   "absent",
			params: Params{},
		},
		{
			name: "explicit",
			params: Params{
				"intervals":   []interface{}{[]interface{}{0.0, 10.0}, []interface{}{10.0, 20.0}},
				"multipliers": []interface{}{1.0, "0.25"},
			},
			want: epidemic.Mitigation{
				Intervals:   []epidemic.Interval{{Start: 0, End: 10}, {Start: 10, End: 20}},
				Multipliers: []float64{1, 0.25},
			},
			wantOK: true,
		},
		{
			name: "zero padded days",
			params: Params{
				"intervals":   []interface{}{[]interface{}{"0", "010"}, []interface{}{"010", "20"}},
				"multipliers": []interface{}{1.0, 0.5},
			},
			want: epidemic.Mitigation{
				Intervals:   []epidemic.Interval{{Start: 0, End: 10}, {Start: 10, End: 20}},
				Multipliers: []float64{1, 0.5},
			},
			wantOK: true,
		},
		{
			name:      "intervals without multipliers",
			params:    Params{"intervals": []interface{}{[]interface{}{0, 10}}},
			wantField: "multipliers",
		},
		{
			name:      "multipliers without intervals",
			params:    Params{"multipliers": []interface{}{1.0}},
			wantField: "intervals",
		},
		{
			name: "malformed pair",
			params: Params{
				"intervals":   []interface{}{[]interface{}{0, 10, 20}},
				"multipliers": []interface{}{1.0},
			},
			wantField: "intervals",
		},
		{
			name: "malformed multiplier",
			params: Params{
				"intervals":   []interface{}{[]interface{}{0, 10}},
				"multipliers": []interface{}{"half"},
			},
			wantField: "multipliers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := tt.params.Mitigation()
			if tt.wantField != "" {
				var cfgErr *epidemic.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.wantField, cfgErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestParseSEIR2_Defaults(t *testing.T) {
	in, err := parseSEIR2(Params(seirParams()))
	require.NoError(t, err)

	assert.Equal(t, DefaultFatalityProportion, in.Phi)
	assert.Equal(t, float64(DefaultDeathDelay), in.DeathDelay)
	assert.Equal(t, float64(DefaultImpactDuration), in.ImpactDuration)
	assert.Zero(t, in.K)
	assert.Equal(t, 5.0, in.Ti)
	assert.Nil(t, in.Mitigation)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	noop := func(ctx context.Context, p Params) (interface{}, error) { return "ok", nil }

	require.NoError(t, reg.Register("b", noop))
	require.NoError(t, reg.Register("a", noop))
	assert.Error(t, reg.Register("a", noop))
	assert.Error(t, reg.Register("", noop))
	assert.Error(t, reg.Register("c", nil))

	assert.Equal(t, []string{"a", "b"}, reg.ListModels())

	runner, err := reg.Get("a")
	require.NoError(t, err)
	out, err := runner(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownModel)
}
