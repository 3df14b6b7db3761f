// Package market stores mandi price observations and derives price trends.
package market

// DateLayout is the storage format for price dates.
const DateLayout = "2006-01-02"

// MandiPrice is one day's modal price for a crop at one mandi. One row per
// (crop, market, date); re-recording the triple replaces the earlier quote.
type MandiPrice struct {
	ID               int64    `json:"id"`
	Crop             string   `json:"crop"`
	Market           string   `json:"market"`
	Date             string   `json:"date"` // YYYY-MM-DD
	PricePerQuintal  float64  `json:"price_per_quintal"`
	ArrivalsQuintals *float64 `json:"arrivals_quintals,omitempty"`
	RecordedAt       string   `json:"recorded_at"`
}

// Trend summarizes the recorded price series for a crop. Pointer fields are
// nil when the series is too short for the indicator.
type Trend struct {
	Crop        string   `json:"crop"`
	Samples     int      `json:"samples"`
	Latest      float64  `json:"latest"`
	Mean        float64  `json:"mean"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	SMA         *float64 `json:"sma,omitempty"`
	EMA         *float64 `json:"ema,omitempty"`
	RSI         *float64 `json:"rsi,omitempty"`
	Momentum    *float64 `json:"momentum,omitempty"`
	MaxDrawdown *float64 `json:"max_drawdown,omitempty"`
	Volatility  *float64 `json:"volatility,omitempty"`
	Direction   string   `json:"direction"` // rising | falling | flat
}
