package formulas

// CalculateMaxDrawdown calculates the maximum drawdown from a price series
//
// Drawdown Formula:
//   Drawdown = (Peak Value - Current Value) / Peak Value
//   Max Drawdown = Maximum of all drawdowns
//
// For an advisory this answers "how far has this crop's price historically
// fallen from a seasonal high", which bounds the downside of storing.
//
// Returns:
//   Maximum drawdown as positive fraction (0.25 = 25% drop from peak) or nil
func CalculateMaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}

		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// CalculateMomentum calculates price momentum over a period
// Returns percentage change over the last 'days' observations
func CalculateMomentum(prices []float64, days int) *float64 {
	if len(prices) < days+1 {
		return nil
	}

	startPrice := prices[len(prices)-days-1]
	endPrice := prices[len(prices)-1]

	if startPrice == 0 {
		return nil
	}

	momentum := (endPrice - startPrice) / startPrice
	return &momentum
}
