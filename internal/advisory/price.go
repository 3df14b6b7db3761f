package advisory

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/agrisage/agrisage/internal/refdata"
)

// Seasonal multiplier ranges. Peak months price above the average, low
// (harvest-glut) months below it. By default the forecaster uses the
// midpoint of each range so identical queries give identical forecasts;
// attach a Jitter source to draw uniformly from the full range instead.
const (
	peakSeasonLo = 1.1
	peakSeasonHi = 1.3
	lowSeasonLo  = 0.7
	lowSeasonHi  = 0.85
	normalLo     = 0.95
	normalHi     = 1.05

	// Combined multiplier cap: never project more than a 50% rise
	combinedFactorCap = 1.5

	// Low estimate: expected trough relative to the current price
	lowPriceFactor = 0.85

	// Selling window approximations
	daysPerMonth   = 30
	sellWindowDays = 14
)

// Level grades supply or demand pressure on the market.
type Level string

const (
	LevelLow    Level = "low"
	LevelNormal Level = "normal"
	LevelHigh   Level = "high"
)

// ParseLevel normalizes a raw level label. Unknown labels pass through and
// behave as neutral (multiplier 1.0).
func ParseLevel(raw string) Level {
	return Level(strings.ToLower(strings.TrimSpace(raw)))
}

// supplyMultiplier: scarce supply lifts prices, a glut depresses them.
func supplyMultiplier(l Level) float64 {
	switch l {
	case LevelLow:
		return 1.2
	case LevelHigh:
		return 0.85
	default:
		return 1.0
	}
}

// demandMultiplier: strong demand lifts prices, weak demand depresses them.
func demandMultiplier(l Level) float64 {
	switch l {
	case LevelLow:
		return 0.9
	case LevelHigh:
		return 1.15
	default:
		return 1.0
	}
}

// PriceQuery carries the inputs of a forecast.
type PriceQuery struct {
	// CurrentPrice is the latest observed mandi price; nil substitutes the
	// profile's baseline average.
	CurrentPrice *float64
	// AsOf anchors the forecast month and the selling window.
	AsOf time.Time
	// Supply and Demand grade current market pressure.
	Supply Level
	Demand Level
	// Jitter, when set, draws seasonal multipliers uniformly from their
	// documented ranges instead of using the deterministic midpoints.
	Jitter *rand.Rand
}

// PriceForecast is the output of ForecastPrice. Prices are rupees per quintal.
type PriceForecast struct {
	Crop               string    `json:"crop"`
	CurrentPrice       float64   `json:"current_price"`
	FromBaseline       bool      `json:"from_baseline"`
	PredictedPeakPrice float64   `json:"predicted_peak_price"`
	PredictedLowPrice  float64   `json:"predicted_low_price"`
	PriceChange        float64   `json:"price_change"`
	PriceChangePct     float64   `json:"price_change_pct"`
	SeasonalFactor     float64   `json:"seasonal_factor"`
	SupplyFactor       float64   `json:"supply_factor"`
	DemandFactor       float64   `json:"demand_factor"`
	MonthsToWait       int       `json:"months_to_wait"`
	SellWindowStart    time.Time `json:"sell_window_start"`
	SellWindowEnd      time.Time `json:"sell_window_end"`
}

// ForecastPrice projects the peak price and selling window for a crop.
//
//	peak = current × seasonal × supply × demand
//
// The combined multiplier is capped at 1.5 and the result floored at the
// profile's historical minimum price. The selling window opens at the next
// peak month (wrapping the year, 30-day month approximation) and spans 14
// days; a profile without peak months opens the window immediately.
func ForecastPrice(profile refdata.CropProfile, q PriceQuery) (*PriceForecast, error) {
	currentPrice, fromBaseline, err := resolveCurrentPrice(profile, q.CurrentPrice)
	if err != nil {
		return nil, err
	}

	supplyFactor := supplyMultiplier(q.Supply)
	demandFactor := demandMultiplier(q.Demand)

	// The projection targets the best peak month, so take the strongest
	// seasonal multiplier across the profile's peak months (never below
	// neutral). Without peak months the factor stays at 1.0.
	seasonalFactor := 1.0
	for _, m := range profile.PeakMonths {
		if f := seasonalMultiplier(profile, m, q.Jitter); f > seasonalFactor {
			seasonalFactor = f
		}
	}

	combined := seasonalFactor * supplyFactor * demandFactor
	combined = math.Min(combined, combinedFactorCap)

	peakPrice := currentPrice * combined
	peakPrice = math.Max(peakPrice, profile.MinPrice)

	lowPrice := math.Max(currentPrice*lowPriceFactor, profile.MinPrice)

	change := peakPrice - currentPrice
	changePct := 0.0
	if currentPrice > 0 {
		changePct = change / currentPrice * 100
	}

	monthsToWait := monthsUntilPeak(profile, q.AsOf.Month())
	windowStart := q.AsOf.AddDate(0, 0, monthsToWait*daysPerMonth)
	windowEnd := windowStart.AddDate(0, 0, sellWindowDays)

	return &PriceForecast{
		Crop:               profile.Name,
		CurrentPrice:       currentPrice,
		FromBaseline:       fromBaseline,
		PredictedPeakPrice: peakPrice,
		PredictedLowPrice:  lowPrice,
		PriceChange:        change,
		PriceChangePct:     changePct,
		SeasonalFactor:     seasonalFactor,
		SupplyFactor:       supplyFactor,
		DemandFactor:       demandFactor,
		MonthsToWait:       monthsToWait,
		SellWindowStart:    windowStart,
		SellWindowEnd:      windowEnd,
	}, nil
}

func resolveCurrentPrice(profile refdata.CropProfile, price *float64) (float64, bool, error) {
	if price == nil {
		if profile.AvgPrice <= 0 {
			return 0, false, fmt.Errorf("%w: profile %s has no baseline price", ErrInvalidInput, profile.Name)
		}
		return profile.AvgPrice, true, nil
	}
	if math.IsNaN(*price) || math.IsInf(*price, 0) {
		return 0, false, fmt.Errorf("%w: current price is not a finite number", ErrInvalidInput)
	}
	if *price <= 0 {
		return 0, false, fmt.Errorf("%w: current price %.2f must be positive", ErrInvalidInput, *price)
	}
	return *price, false, nil
}

// seasonalMultiplier grades one month against the crop's price cycle.
func seasonalMultiplier(profile refdata.CropProfile, month time.Month, jitter *rand.Rand) float64 {
	switch {
	case profile.IsPeakMonth(month):
		return drawOrMidpoint(jitter, peakSeasonLo, peakSeasonHi)
	case profile.IsLowMonth(month):
		return drawOrMidpoint(jitter, lowSeasonLo, lowSeasonHi)
	default:
		return drawOrMidpoint(jitter, normalLo, normalHi)
	}
}

func drawOrMidpoint(r *rand.Rand, lo, hi float64) float64 {
	if r == nil {
		return (lo + hi) / 2
	}
	return lo + r.Float64()*(hi-lo)
}

// monthsUntilPeak finds the offset to the next peak month, wrapping across
// the year boundary. A month already in peak returns 0; a profile without
// peak months returns 0 as well.
func monthsUntilPeak(profile refdata.CropProfile, current time.Month) int {
	if len(profile.PeakMonths) == 0 {
		return 0
	}
	for offset := 0; offset < 12; offset++ {
		check := time.Month((int(current)-1+offset)%12 + 1)
		if profile.IsPeakMonth(check) {
			return offset
		}
	}
	return 0
}
