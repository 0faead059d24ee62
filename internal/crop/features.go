package crop

import (
	"fmt"

	"github.com/hyperjump/agrovision/internal/mappings"
	"github.com/hyperjump/agrovision/internal/models"
)

// FeatureColumns is the column order the classifier was trained with.
var FeatureColumns = [...]string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

// FeatureVector is one classifier input row in FeatureColumns order.
type FeatureVector [len(FeatureColumns)]float32

// Resolved holds the canonical category chosen for each request field.
type Resolved struct {
	SoilType      string `json:"soil_type"`
	Season        string `json:"season"`
	RainfallLevel string `json:"rainfall_level"`
	Weather       string `json:"weather"`
	PHRange       string `json:"ph_range"`
}

// Resolve normalizes every field of req. It fails with ErrInvalidInput when
// any field does not match its table; nothing is partially resolved.
func Resolve(req models.CropRequest) (Resolved, error) {
	var r Resolved
	var ok [5]bool
	r.SoilType, ok[0] = mappings.Normalize(req.SoilType, mappings.Soil)
	r.Season, ok[1] = mappings.Normalize(req.Season, mappings.Season)
	r.RainfallLevel, ok[2] = mappings.Normalize(req.RainfallLevel, mappings.Rainfall)
	r.Weather, ok[3] = mappings.Normalize(req.Weather, mappings.WeatherTable)
	r.PHRange, ok[4] = mappings.Normalize(req.PHRange, mappings.PH)
	for _, matched := range ok {
		if !matched {
			return Resolved{}, ErrInvalidInput
		}
	}
	return r, nil
}

// Features assembles the classifier input. Temperature and humidity come from
// the weather table and rainfall from the rainfall table; the season is not a
// model column.
func (r Resolved) Features() (FeatureVector, error) {
	soil, ok := mappings.Soil.Value(r.SoilType)
	if !ok {
		return FeatureVector{}, fmt.Errorf("%w: soil_type %q", ErrInvalidInput, r.SoilType)
	}
	weather, ok := mappings.WeatherTable.Value(r.Weather)
	if !ok {
		return FeatureVector{}, fmt.Errorf("%w: weather %q", ErrInvalidInput, r.Weather)
	}
	rainfall, ok := mappings.Rainfall.Value(r.RainfallLevel)
	if !ok {
		return FeatureVector{}, fmt.Errorf("%w: rainfall_level %q", ErrInvalidInput, r.RainfallLevel)
	}
	ph, ok := mappings.PH.Value(r.PHRange)
	if !ok {
		return FeatureVector{}, fmt.Errorf("%w: ph_range %q", ErrInvalidInput, r.PHRange)
	}
	return FeatureVector{
		soil.N, soil.P, soil.K,
		weather.Temperature, weather.Humidity,
		ph,
		rainfall,
	}, nil
}

// Named returns the vector as column name to value.
func (f FeatureVector) Named() map[string]float32 {
	out := make(map[string]float32, len(FeatureColumns))
	for i, name := range FeatureColumns {
		out[name] = f[i]
	}
	return out
}
