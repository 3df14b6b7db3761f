// Package advisories generates and stores sell-or-store advice per farmer.
package advisories

import "github.com/agrisage/agrisage/internal/advisory"

// Report is the current advisory for one farmer. One row per farmer;
// regeneration replaces it and the old report survives as a snapshot.
type Report struct {
	ID       string  `json:"id" msgpack:"id"`
	FarmerID string  `json:"farmer_id" msgpack:"farmer_id"`
	Crop     string  `json:"crop" msgpack:"crop"`
	Acreage  float64 `json:"acreage" msgpack:"acreage"`
	Severity string  `json:"severity" msgpack:"severity"`

	// Yield outputs
	BaseYield         float64 `json:"base_yield" msgpack:"base_yield"`
	PredictedYield    float64 `json:"predicted_yield" msgpack:"predicted_yield"`
	WeatherFactor     float64 `json:"weather_factor" msgpack:"weather_factor"`
	YieldReductionPct float64 `json:"yield_reduction_pct" msgpack:"yield_reduction_pct"`

	// Price outputs
	CurrentPrice    float64 `json:"current_price" msgpack:"current_price"`
	PriceSource     string  `json:"price_source" msgpack:"price_source"`
	PredictedPrice  float64 `json:"predicted_price" msgpack:"predicted_price"`
	PriceChangePct  float64 `json:"price_change_pct" msgpack:"price_change_pct"`
	SellWindowStart string  `json:"sell_window_start" msgpack:"sell_window_start"`
	SellWindowEnd   string  `json:"sell_window_end" msgpack:"sell_window_end"`

	// Recommendation outputs
	Decision       advisory.Decision `json:"decision" msgpack:"decision"`
	Rationale      string            `json:"rationale" msgpack:"rationale"`
	CurrentValue   float64           `json:"current_value" msgpack:"current_value"`
	FutureValue    float64           `json:"future_value" msgpack:"future_value"`
	ProfitDelta    float64           `json:"profit_delta" msgpack:"profit_delta"`
	StorageCost    float64           `json:"storage_cost" msgpack:"storage_cost"`
	NetProfit      float64           `json:"net_profit" msgpack:"net_profit"`
	BreakEvenPrice float64           `json:"break_even_price" msgpack:"break_even_price"`

	// Inputs used
	RainfallMM    float64 `json:"rainfall_mm" msgpack:"rainfall_mm"`
	TemperatureC  float64 `json:"temperature_c" msgpack:"temperature_c"`
	HumidityPct   float64 `json:"humidity_pct" msgpack:"humidity_pct"`
	WeatherSource string  `json:"weather_source" msgpack:"weather_source"`
	Region        string  `json:"region" msgpack:"region"`

	Confidence float64 `json:"confidence" msgpack:"confidence"`
	CreatedAt  string  `json:"created_at" msgpack:"created_at"`
	UpdatedAt  string  `json:"updated_at" msgpack:"updated_at"`
}

// GenerateRequest asks for a fresh advisory. Either FarmerID points at a
// registered farmer, or the inline fields describe a walk-in query. Optional
// observations sharpen the result when present.
type GenerateRequest struct {
	FarmerID string `json:"farmer_id,omitempty"`

	// Inline submission (walk-in): used when FarmerID is empty
	Crop           string  `json:"crop,omitempty"`
	Acreage        float64 `json:"acreage,omitempty"`
	Mandal         string  `json:"mandal,omitempty"`
	HasColdStorage bool    `json:"has_cold_storage,omitempty"`

	// Optional observations
	Severity        string   `json:"severity,omitempty"`
	NeedsUrgentCash bool     `json:"needs_urgent_cash,omitempty"`
	Supply          string   `json:"supply,omitempty"`
	Demand          string   `json:"demand,omitempty"`
	ProfitThreshold float64  `json:"profit_threshold,omitempty"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
}
