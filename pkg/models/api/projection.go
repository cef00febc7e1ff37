package api

import (
	"bytes"
	"encoding/json"
)

type ProjectionRequest struct {
	Model  string                 `json:"model"`
	Params map[string]interface{} `json:"params"`
}

type BatchRequest struct {
	Projections []ProjectionRequest `json:"projections"`
}

type BatchResponse struct {
	Results []interface{} `json:"results"`
}

type SIRResponse struct {
	T []float64 `json:"t"`
	S []float64 `json:"S"`
	I []float64 `json:"I"`
	R []float64 `json:"R"`
}

type SEIRResponse struct {
	T []float64 `json:"t"`
	S []float64 `json:"S"`
	E []float64 `json:"E"`
	I []float64 `json:"I"`
	R []float64 `json:"R"`
}

type SEIR2Response struct {
	T []float64 `json:"t"`
	S []float64 `json:"S"`
	E []float64 `json:"E"`
	I []float64 `json:"I"`
	R []float64 `json:"R"`
	D []float64 `json:"D"`
	M []float64 `json:"M"`
	P []float64 `json:"P"`
}

type RegionBeds struct {
	Capacity     float64   `json:"capacity"`
	Camas        []float64 `json:"camas"`
	Infected     []float64 `json:"infected"`
	Recovered    []float64 `json:"recovered,omitempty"`
	PeakOccupied float64   `json:"peak_occupied"`
	PeakDay      int       `json:"peak_day"`
	// OverflowDay is -1 when occupancy never exceeds capacity.
	OverflowDay int `json:"overflow_day"`
}

type NamedRegionBeds struct {
	Name string
	RegionBeds
}

// BedsResponse encodes as a flat object: the time axis under "t" followed by
// one key per region, in table order.
type BedsResponse struct {
	T       []float64
	Regions []NamedRegionBeds
}

func (b BedsResponse) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"t":`)
	t, err := json.Marshal(b.T)
	if err != nil {
		return nil, err
	}
	buf.Write(t)

	for _, r := range b.Regions {
		name, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(r.RegionBeds)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Region struct {
	Name       string  `json:"name"`
	Population float64 `json:"population"`
	Capacity   float64 `json:"capacity"`
}

type RegionTable struct {
	TotalBeds   float64  `json:"total_icu_beds"`
	ICUFraction float64  `json:"icu_fraction"`
	Regions     []Region `json:"regions"`
}

type Models struct {
	Models []string `json:"models"`
}
