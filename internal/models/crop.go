// Package models defines the request and response shapes of the AgroVision API.
package models

import "fmt"

// CropRequest is the body of POST /predict-crop. Each field is free text that
// must match a canonical category case-insensitively.
type CropRequest struct {
	SoilType      string `json:"soil_type"`
	Season        string `json:"season"`
	RainfallLevel string `json:"rainfall_level"`
	Weather       string `json:"weather"`
	PHRange       string `json:"ph_range"`
}

// cropRequestBody detects absent fields, which are rejected before normalization.
type cropRequestBody struct {
	SoilType      *string `json:"soil_type"`
	Season        *string `json:"season"`
	RainfallLevel *string `json:"rainfall_level"`
	Weather       *string `json:"weather"`
	PHRange       *string `json:"ph_range"`
}

// complete converts the body into a CropRequest, reporting the first missing field.
func (b *cropRequestBody) complete() (CropRequest, error) {
	fields := []struct {
		name string
		v    *string
	}{
		{"soil_type", b.SoilType},
		{"season", b.Season},
		{"rainfall_level", b.RainfallLevel},
		{"weather", b.Weather},
		{"ph_range", b.PHRange},
	}
	for _, f := range fields {
		if f.v == nil {
			return CropRequest{}, fmt.Errorf("field required: %s", f.name)
		}
	}
	return CropRequest{
		SoilType:      *b.SoilType,
		Season:        *b.Season,
		RainfallLevel: *b.RainfallLevel,
		Weather:       *b.Weather,
		PHRange:       *b.PHRange,
	}, nil
}

// CropRecommendation is one ranked crop with its display confidence.
// Confidence is a monotonic transform of the model probability, not a probability.
type CropRecommendation struct {
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
}

// CropResponse is the successful answer of POST /predict-crop, ordered by
// descending model probability.
type CropResponse struct {
	Recommendations []CropRecommendation `json:"recommendations"`
}

// ErrorResponse carries a message in place of a result.
type ErrorResponse struct {
	Error string `json:"error"`
}
