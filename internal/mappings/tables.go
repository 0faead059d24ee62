// Package mappings holds the static tables that translate agronomic categories
// into the numeric features expected by the crop classifier.
package mappings

// Entry is one canonical category and its numeric value.
type Entry[V any] struct {
	Key   string
	Value V
}

// Table is an ordered, read-only mapping from canonical keys to values.
// Lookups go through Normalize; tables are never mutated after package init.
type Table[V any] struct {
	name    string
	entries []Entry[V]
}

func newTable[V any](name string, entries ...Entry[V]) Table[V] {
	return Table[V]{name: name, entries: entries}
}

// Name returns the factor the table describes (e.g. "soil_type").
func (t Table[V]) Name() string { return t.name }

// Keys returns the canonical keys in table order.
func (t Table[V]) Keys() []string {
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}

// Value returns the value stored under the exact canonical key.
func (t Table[V]) Value(key string) (V, bool) {
	for _, e := range t.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// NPK is the soil nutrient triple.
type NPK struct {
	N, P, K float32
}

// Climate is the seasonal (temperature, humidity, rainfall) triple.
type Climate struct {
	Temperature, Humidity, Rainfall float32
}

// Weather is the (temperature, humidity) pair for a weather description.
type Weather struct {
	Temperature, Humidity float32
}

var (
	// Soil maps soil type to its nutrient profile.
	Soil = newTable("soil_type",
		Entry[NPK]{"Sandy", NPK{40, 20, 20}},
		Entry[NPK]{"Loamy", NPK{60, 30, 30}},
		Entry[NPK]{"Clay", NPK{75, 40, 40}},
		Entry[NPK]{"Black", NPK{70, 35, 45}},
		Entry[NPK]{"Red", NPK{50, 25, 30}},
	)

	// Season maps a season to its typical climate. The crop feature vector
	// does not read it; the season is validated only.
	Season = newTable("season",
		Entry[Climate]{"Winter", Climate{15, 50, 60}},
		Entry[Climate]{"Summer", Climate{35, 40, 80}},
		Entry[Climate]{"Monsoon", Climate{28, 85, 220}},
	)

	// Rainfall maps a rainfall level to millimetres.
	Rainfall = newTable("rainfall_level",
		Entry[float32]{"Low", 50},
		Entry[float32]{"Medium", 150},
		Entry[float32]{"High", 250},
	)

	// WeatherTable maps a weather description to temperature and humidity.
	WeatherTable = newTable("weather",
		Entry[Weather]{"Cool & Dry", Weather{18, 40}},
		Entry[Weather]{"Warm", Weather{26, 60}},
		Entry[Weather]{"Hot & Humid", Weather{34, 85}},
		Entry[Weather]{"Sunny", Weather{30, 55}},
	)

	// PH maps a pH range to a representative pH.
	PH = newTable("ph_range",
		Entry[float32]{"Acidic", 5.5},
		Entry[float32]{"Neutral", 7.0},
		Entry[float32]{"Alkaline", 8.0},
	)
)
