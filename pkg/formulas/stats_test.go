package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 4.0, Mean([]float64{2, 4, 6}))
	assert.Equal(t, 0.0, Mean(nil))
}

func TestStdDev_SampleDeviation(t *testing.T) {
	// Sample std dev of {2, 4, 6}: variance = (4+0+4)/2 = 4, stddev = 2
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 6}), 1e-9)
	assert.Equal(t, 0.0, StdDev(nil))
}

func TestMinMax(t *testing.T) {
	prices := []float64{2200, 1850, 2640, 2410}

	assert.Equal(t, 1850.0, Min(prices))
	assert.Equal(t, 2640.0, Max(prices))
	assert.Equal(t, 0.0, Min(nil))
	assert.Equal(t, 0.0, Max(nil))
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})

	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
}

func TestAnnualizedVolatility(t *testing.T) {
	// Constant returns have zero deviation
	assert.Equal(t, 0.0, AnnualizedVolatility([]float64{0.01, 0.01, 0.01}))
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))

	// Any variation produces positive volatility
	assert.Greater(t, AnnualizedVolatility([]float64{0.02, -0.01, 0.03}), 0.0)
}

func TestCalculateMaxDrawdown(t *testing.T) {
	// Peak 120 to trough 90 is a 25% drop
	dd := CalculateMaxDrawdown([]float64{100, 120, 90, 110})
	require.NotNil(t, dd)
	assert.InDelta(t, 0.25, *dd, 1e-9)

	// Monotonically rising series never draws down
	dd = CalculateMaxDrawdown([]float64{100, 110, 120})
	require.NotNil(t, dd)
	assert.Equal(t, 0.0, *dd)

	assert.Nil(t, CalculateMaxDrawdown([]float64{100}))
}

func TestCalculateMomentum(t *testing.T) {
	// 100 -> 121 over two steps is +21%
	m := CalculateMomentum([]float64{100, 110, 121}, 2)
	require.NotNil(t, m)
	assert.InDelta(t, 0.21, *m, 1e-9)

	assert.Nil(t, CalculateMomentum([]float64{100, 110}, 5))
}

func TestCalculateSMA(t *testing.T) {
	sma := CalculateSMA([]float64{10, 20, 30}, 3)
	require.NotNil(t, sma)
	assert.InDelta(t, 20.0, *sma, 1e-9)

	// Window shorter than the series uses only the most recent values
	sma = CalculateSMA([]float64{10, 20, 30, 40}, 2)
	require.NotNil(t, sma)
	assert.InDelta(t, 35.0, *sma, 1e-9)

	assert.Nil(t, CalculateSMA([]float64{10, 20}, 3))
}

func TestCalculateEMA(t *testing.T) {
	// A constant series has a constant EMA
	ema := CalculateEMA([]float64{1500, 1500, 1500, 1500}, 2)
	require.NotNil(t, ema)
	assert.InDelta(t, 1500.0, *ema, 1e-9)

	assert.Nil(t, CalculateEMA([]float64{1500}, 2))
}

func TestCalculateRSI(t *testing.T) {
	// A strictly rising series has no losses, so RSI saturates at 100
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 1000 + float64(i)*10
	}

	rsi := CalculateRSI(closes, 14)
	require.NotNil(t, rsi)
	assert.InDelta(t, 100.0, *rsi, 1e-9)

	assert.Nil(t, CalculateRSI(closes[:10], 14))
}
