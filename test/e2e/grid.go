// Package e2e drives every combination of categorical crop inputs and every
// supported image format through the API.
package e2e

import (
	"strings"

	"github.com/hyperjump/agrovision/internal/mappings"
	"github.com/hyperjump/agrovision/internal/models"
)

// GridCase is one crop request and the feature vector it must resolve to, in
// column order N, P, K, temperature, humidity, ph, rainfall.
type GridCase struct {
	Request  models.CropRequest
	Features [7]float32
}

// BuildGrid returns every combination of canonical keys. When mangle is set,
// each value is re-cased and padded the way a user might type it.
func BuildGrid(mangle bool) []GridCase {
	var cases []GridCase
	for _, soil := range mappings.Soil.Keys() {
		npk, _ := mappings.Soil.Value(soil)
		for _, season := range mappings.Season.Keys() {
			for _, rain := range mappings.Rainfall.Keys() {
				rainfall, _ := mappings.Rainfall.Value(rain)
				for _, weather := range mappings.WeatherTable.Keys() {
					w, _ := mappings.WeatherTable.Value(weather)
					for _, ph := range mappings.PH.Keys() {
						phValue, _ := mappings.PH.Value(ph)
						req := models.CropRequest{
							SoilType:      soil,
							Season:        season,
							RainfallLevel: rain,
							Weather:       weather,
							PHRange:       ph,
						}
						if mangle {
							req = mangleRequest(req, len(cases))
						}
						cases = append(cases, GridCase{
							Request:  req,
							Features: [7]float32{npk.N, npk.P, npk.K, w.Temperature, w.Humidity, phValue, rainfall},
						})
					}
				}
			}
		}
	}
	return cases
}

// GridSize is the number of combinations BuildGrid yields.
func GridSize() int {
	return len(mappings.Soil.Keys()) * len(mappings.Season.Keys()) * len(mappings.Rainfall.Keys()) *
		len(mappings.WeatherTable.Keys()) * len(mappings.PH.Keys())
}

var manglers = []func(string) string{
	strings.ToUpper,
	strings.ToLower,
	func(s string) string { return "  " + s + "\t" },
	func(s string) string { return " " + strings.ToUpper(s) },
}

func mangleRequest(r models.CropRequest, n int) models.CropRequest {
	m := func(i int, s string) string { return manglers[(n+i)%len(manglers)](s) }
	return models.CropRequest{
		SoilType:      m(0, r.SoilType),
		Season:        m(1, r.Season),
		RainfallLevel: m(2, r.RainfallLevel),
		Weather:       m(3, r.Weather),
		PHRange:       m(4, r.PHRange),
	}
}
