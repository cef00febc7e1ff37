package terminal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/de-tools/epi-atlas/pkg/beds"
	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/de-tools/epi-atlas/pkg/models/api"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T, args ...string) (*CLI, *bytes.Buffer) {
	t.Helper()
	svc, err := projection.NewService(projection.Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	cli := NewCLI(Options{Service: svc, Output: &buf})
	cli.SetArgs(args)
	return cli, &buf
}

func TestCLI_SIRText(t *testing.T) {
	cli, out := newTestCLI(t, "sir", "--r0", "3.5", "--strength", "50", "--days", "30", "--every", "15")
	require.NoError(t, cli.Execute())

	text := out.String()
	assert.Contains(t, text, "SIR projection (30 days)")
	assert.Contains(t, text, "=== Trajectory ===")
	assert.Contains(t, text, "Peak day")
}

func TestCLI_SEIRJSON(t *testing.T) {
	cli, out := newTestCLI(t, "seir", "--days", "20", "--output", "json")
	require.NoError(t, cli.Execute())

	var resp api.SEIRResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Len(t, resp.T, 21)
	assert.Len(t, resp.E, 21)
}

func TestCLI_SEIR2JSON(t *testing.T) {
	cli, out := newTestCLI(t, "seir2", "--days", "20", "-o", "json", "--response", "2")
	require.NoError(t, cli.Execute())

	var resp api.SEIR2Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Len(t, resp.P, 21)
}

func TestCLI_BedsJSON(t *testing.T) {
	cli, out := newTestCLI(t, "beds", "--r0", "3", "--days", "100", "--onset", "15", "--multiplier", "0.35", "-o", "json")
	require.NoError(t, cli.Execute())

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &raw))
	assert.Len(t, raw, len(beds.SpainRegions)+1)
}

func TestCLI_Regions(t *testing.T) {
	cli, out := newTestCLI(t, "regions")
	require.NoError(t, cli.Execute())

	assert.Contains(t, out.String(), "4404 ICU beds")
	assert.Contains(t, out.String(), "Madrid")
}

func TestCLI_Errors(t *testing.T) {
	cli, _ := newTestCLI(t, "sir", "--infectious-period=-1")
	assert.ErrorIs(t, cli.Execute(), epidemic.ErrConfiguration)

	cli, _ = newTestCLI(t, "sir", "--output", "yaml")
	assert.Error(t, cli.Execute())
}

func TestCLI_ExplicitSchedule(t *testing.T) {
	for _, model := range []string{"sir", "seir", "seir2"} {
		t.Run(model, func(t *testing.T) {
			cli, step := newTestCLI(t, model, "--onset", "15", "--strength", "50", "--days", "30", "-o", "json")
			require.NoError(t, cli.Execute())

			cli, explicit := newTestCLI(t, model, "--intervals", "0:15,15:30", "--multipliers", "1,0.5",
				"--days", "30", "-o", "json")
			require.NoError(t, cli.Execute())

			assert.JSONEq(t, step.String(), explicit.String())
		})
	}

	t.Run("overrides onset and strength", func(t *testing.T) {
		cli, none := newTestCLI(t, "sir", "--days", "30", "-o", "json")
		require.NoError(t, cli.Execute())

		cli, explicit := newTestCLI(t, "sir", "--onset", "5", "--strength", "90",
			"--intervals", "0:30", "--multipliers", "1", "--days", "30", "-o", "json")
		require.NoError(t, cli.Execute())

		assert.JSONEq(t, none.String(), explicit.String())
	})
}

func TestCLI_ExplicitScheduleErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{name: "intervals alone", args: []string{"--intervals", "0:15,15:30"}, field: "multipliers"},
		{name: "multipliers alone", args: []string{"--multipliers", "1,0.5"}, field: "intervals"},
		{name: "not a pair", args: []string{"--intervals", "0-15,15-30", "--multipliers", "1,0.5"}, field: "intervals"},
		{name: "fractional day", args: []string{"--intervals", "0:1.5,1.5:30", "--multipliers", "1,0.5"}, field: "intervals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"seir", "--days", "30"}, tt.args...)
			cli, _ := newTestCLI(t, args...)

			err := cli.Execute()
			require.ErrorIs(t, err, epidemic.ErrConfiguration)
			var cfg *epidemic.ConfigurationError
			require.ErrorAs(t, err, &cfg)
			assert.Equal(t, tt.field, cfg.Field)
		})
	}

	t.Run("gap in schedule", func(t *testing.T) {
		cli, _ := newTestCLI(t, "sir", "--days", "30", "--intervals", "0:10,15:30", "--multipliers", "1,0.5")
		assert.ErrorIs(t, cli.Execute(), epidemic.ErrConfiguration)
	})
}
