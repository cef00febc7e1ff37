package projection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/spf13/cast"
)

// Params is a flat request parameter set. Numeric values may arrive as JSON
// numbers or as strings.
type Params map[string]interface{}

func missing(key string) error {
	return &epidemic.ConfigurationError{Field: key, Reason: "missing"}
}

func malformed(key string, v interface{}, want string) error {
	return &epidemic.ConfigurationError{Field: key, Reason: fmt.Sprintf("cannot use %v as %s", v, want)}
}

func (p Params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

func (p Params) Float(key string) (float64, error) {
	if !p.has(key) {
		return 0, missing(key)
	}
	v, err := cast.ToFloat64E(p[key])
	if err != nil {
		return 0, malformed(key, p[key], "a number")
	}
	return v, nil
}

func (p Params) FloatOr(key string, def float64) (float64, error) {
	if !p.has(key) {
		return def, nil
	}
	return p.Float(key)
}

func (p Params) Int(key string) (int, error) {
	if !p.has(key) {
		return 0, missing(key)
	}
	v, err := toInt(p[key])
	if err != nil {
		return 0, malformed(key, p[key], "an integer")
	}
	return v, nil
}

// toInt reads strings as base-10 text; cast would treat "010" as octal.
func toInt(v interface{}) (int, error) {
	if s, ok := v.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	return cast.ToIntE(v)
}

func (p Params) Bool(key string) (bool, error) {
	if !p.has(key) {
		return false, missing(key)
	}
	v, err := cast.ToBoolE(p[key])
	if err != nil {
		return false, malformed(key, p[key], "a boolean")
	}
	return v, nil
}

func (p Params) BoolOr(key string, def bool) (bool, error) {
	if !p.has(key) {
		return def, nil
	}
	return p.Bool(key)
}

// Mitigation reads an explicit schedule from "intervals" ([[start, end], ...])
// and "multipliers". ok is false when the request does not carry one.
func (p Params) Mitigation() (m epidemic.Mitigation, ok bool, err error) {
	if !p.has("intervals") && !p.has("multipliers") {
		return epidemic.Mitigation{}, false, nil
	}
	if !p.has("intervals") {
		return m, false, missing("intervals")
	}
	if !p.has("multipliers") {
		return m, false, missing("multipliers")
	}

	raw, err := cast.ToSliceE(p["intervals"])
	if err != nil {
		return m, false, malformed("intervals", p["intervals"], "a list of [start, end] pairs")
	}
	for _, item := range raw {
		pair, err := cast.ToSliceE(item)
		if err != nil || len(pair) != 2 {
			return m, false, malformed("intervals", item, "a [start, end] pair")
		}
		start, err1 := toInt(pair[0])
		end, err2 := toInt(pair[1])
		if err1 != nil || err2 != nil {
			return m, false, malformed("intervals", item, "a pair of integer days")
		}
		m.Intervals = append(m.Intervals, epidemic.Interval{Start: start, End: end})
	}

	mults, err := cast.ToSliceE(p["multipliers"])
	if err != nil {
		return m, false, malformed("multipliers", p["multipliers"], "a list of numbers")
	}
	for _, item := range mults {
		v, err := cast.ToFloat64E(item)
		if err != nil {
			return m, false, malformed("multipliers", item, "a number")
		}
		m.Multipliers = append(m.Multipliers, v)
	}
	return m, true, nil
}

// strength reads the onset/strength pair, or an explicit schedule when the
// request carries one.
func (p Params) strength() (tm int, q float64, explicit *epidemic.Mitigation, err error) {
	m, ok, err := p.Mitigation()
	if err != nil {
		return 0, 0, nil, err
	}
	if ok {
		return 0, 0, &m, nil
	}
	if tm, err = p.Int("Tm"); err != nil {
		return 0, 0, nil, err
	}
	if q, err = p.Float("Q"); err != nil {
		return 0, 0, nil, err
	}
	return tm, q, nil, nil
}

func parseSIR(p Params) (in SIRInput, err error) {
	if in.R0, err = p.Float("R0"); err != nil {
		return in, err
	}
	if in.T, err = p.Float("T"); err != nil {
		return in, err
	}
	if in.Days, err = p.Int("days"); err != nil {
		return in, err
	}
	if in.N, err = p.Int("N"); err != nil {
		return in, err
	}
	if in.Absolute, err = p.BoolOr("absolute", false); err != nil {
		return in, err
	}
	in.Tm, in.Q, in.Mitigation, err = p.strength()
	return in, err
}

func parseSEIR(p Params) (SEIRInput, error) {
	sir, err := parseSIR(p)
	if err != nil {
		return SEIRInput{}, err
	}
	in := SEIRInput{
		R0:         sir.R0,
		T:          sir.T,
		Tm:         sir.Tm,
		Q:          sir.Q,
		Days:       sir.Days,
		N:          sir.N,
		Absolute:   sir.Absolute,
		Mitigation: sir.Mitigation,
	}
	if in.Ti, err = p.Float("Ti"); err != nil {
		return in, err
	}
	return in, nil
}

func parseSEIR2(p Params) (in SEIR2Input, err error) {
	if in.SEIRInput, err = parseSEIR(p); err != nil {
		return in, err
	}
	if in.Phi, err = p.FloatOr("phi", DefaultFatalityProportion); err != nil {
		return in, err
	}
	if in.DeathDelay, err = p.FloatOr("death_delay", DefaultDeathDelay); err != nil {
		return in, err
	}
	if in.ImpactDuration, err = p.FloatOr("impact_duration", DefaultImpactDuration); err != nil {
		return in, err
	}
	if in.K, err = p.FloatOr("k", 0); err != nil {
		return in, err
	}
	return in, nil
}

func parseBeds(p Params) (in BedsInput, err error) {
	if in.R0, err = p.Float("R0"); err != nil {
		return in, err
	}
	if in.T, err = p.Float("T"); err != nil {
		return in, err
	}
	if in.Ti, err = p.Float("Ti"); err != nil {
		return in, err
	}
	if in.Days, err = p.Int("days"); err != nil {
		return in, err
	}
	if in.Tm, err = p.Int("Tm"); err != nil {
		return in, err
	}
	if in.M, err = p.Float("M"); err != nil {
		return in, err
	}
	return in, nil
}
