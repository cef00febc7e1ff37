package beds

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	DefaultTotalBeds   = 4404
	DefaultICUFraction = 0.05

	regionsSection = "regions"
	bedsSection    = "beds"
)

type Region struct {
	Name       string
	Population float64
}

// Table is an ordered list of regions. Output keeps the table order.
type Table []Region

func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, r := range t {
		names[i] = r.Name
	}
	return names
}

func (t Table) TotalPopulation() float64 {
	var total float64
	for _, r := range t {
		total += r.Population
	}
	return total
}

// SpainRegions is the reference table of the 19 Spanish autonomous
// communities and cities.
var SpainRegions = Table{
	{"Andalucía", 8414240},
	{"Aragón", 1319291},
	{"Asturias", 1022800},
	{"Baleares", 1149460},
	{"Canarias", 2153389},
	{"Cantabria", 581078},
	{"Cas-León", 2399548},
	{"Cas-Mancha", 2032863},
	{"Cataluña", 7675217},
	{"Valencia", 5003769},
	{"Extremadura", 1067710},
	{"Galicia", 2699499},
	{"Madrid", 6663394},
	{"Murcia", 1493898},
	{"Navarra", 654214},
	{"Euskadi", 2207776},
	{"Rioja", 316798},
	{"Ceuta", 84777},
	{"Melilla", 86487},
}

// ReservedName is the response key of the time axis; no region may use it.
const ReservedName = "t"

// TableConfig is a region table together with its bed settings.
type TableConfig struct {
	Table       Table
	TotalBeds   float64
	ICUFraction float64
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		Table:       slices.Clone(SpainRegions),
		TotalBeds:   DefaultTotalBeds,
		ICUFraction: DefaultICUFraction,
	}
}

// LoadTable reads a region table from an INI file. Regions are the ordered
// keys of the [regions] section; an optional [beds] section may set
// total_icu_beds and icu_fraction.
func LoadTable(path string) (TableConfig, error) {
	f, err := ini.Load(path)
	if err != nil {
		return TableConfig{}, fmt.Errorf("failed to load region table %s: %w", path, err)
	}
	return parseTable(f)
}

// ParseTable reads a region table from INI source bytes.
func ParseTable(data []byte) (TableConfig, error) {
	f, err := ini.Load(data)
	if err != nil {
		return TableConfig{}, fmt.Errorf("failed to parse region table: %w", err)
	}
	return parseTable(f)
}

func parseTable(f *ini.File) (TableConfig, error) {
	cfg := TableConfig{TotalBeds: DefaultTotalBeds, ICUFraction: DefaultICUFraction}

	section, err := f.GetSection(regionsSection)
	if err != nil {
		return TableConfig{}, fmt.Errorf("region table has no [%s] section", regionsSection)
	}
	for _, key := range section.Keys() {
		pop, err := key.Float64()
		if err != nil {
			return TableConfig{}, fmt.Errorf("region %q: invalid population %q", key.Name(), key.String())
		}
		cfg.Table = append(cfg.Table, Region{Name: strings.TrimSpace(key.Name()), Population: pop})
	}

	if b, err := f.GetSection(bedsSection); err == nil {
		if b.HasKey("total_icu_beds") {
			if cfg.TotalBeds, err = b.Key("total_icu_beds").Float64(); err != nil {
				return TableConfig{}, fmt.Errorf("invalid total_icu_beds: %w", err)
			}
		}
		if b.HasKey("icu_fraction") {
			if cfg.ICUFraction, err = b.Key("icu_fraction").Float64(); err != nil {
				return TableConfig{}, fmt.Errorf("invalid icu_fraction: %w", err)
			}
		}
	}

	if err := cfg.Table.validate(); err != nil {
		return TableConfig{}, err
	}
	return cfg, nil
}

func (t Table) validate() error {
	if len(t) == 0 {
		return normalizationError("region table is empty")
	}
	seen := make(map[string]struct{}, len(t))
	for _, r := range t {
		if r.Name == "" {
			return normalizationError("region with empty name")
		}
		if r.Name == ReservedName {
			return normalizationError("region name %q is reserved for the time axis", r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return normalizationError("duplicate region %q", r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.Population < 0 {
			return normalizationError("region %q has negative population %v", r.Name, r.Population)
		}
	}
	if t.TotalPopulation() <= 0 {
		return normalizationError("total population is zero")
	}
	return nil
}
