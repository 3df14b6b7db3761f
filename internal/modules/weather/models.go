// Package weather stores daily weather observations per mandal.
package weather

// DateLayout is the storage format for observation dates.
const DateLayout = "2006-01-02"

// Sample is one day of weather for one mandal. One row per (mandal, date);
// re-recording the pair replaces the earlier observation.
type Sample struct {
	ID           int64   `json:"id"`
	Mandal       string  `json:"mandal"`
	Date         string  `json:"date"` // YYYY-MM-DD
	RainfallMM   float64 `json:"rainfall_mm"`
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	RecordedAt   string  `json:"recorded_at"`
}
