package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateSMA calculates the Simple Moving Average over the last 'length'
// observations.
//
// Args:
//   closes: Array of closing prices, oldest first
//   length: SMA period
//
// Returns:
//   Current SMA value or nil if insufficient data
func CalculateSMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)

	if len(sma) > 0 && !isNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// CalculateEMA calculates the Exponential Moving Average
//
// EMA Formula:
//   EMA = Price(t) × k + EMA(y) × (1 - k)
//   where k = 2 / (length + 1)
//
// Returns:
//   Current EMA value or nil if insufficient data
func CalculateEMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}

	ema := talib.Ema(closes, length)

	if len(ema) > 0 && !isNaN(ema[len(ema)-1]) {
		result := ema[len(ema)-1]
		return &result
	}

	return nil
}

// CalculateRSI calculates the Relative Strength Index
//
// RSI Formula:
//   RSI = 100 - (100 / (1 + RS))
//   where RS = Average Gain / Average Loss over N periods
//
// Args:
//   closes: Array of closing prices
//   length: RSI period (typically 14)
//
// Returns:
//   Current RSI value (0-100) or nil if insufficient data
func CalculateRSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}

	rsi := talib.Rsi(closes, length)

	if len(rsi) > 0 && !isNaN(rsi[len(rsi)-1]) {
		result := rsi[len(rsi)-1]
		return &result
	}

	return nil
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
