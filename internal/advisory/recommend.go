package advisory

import "fmt"

// Decision is the binary outcome of a recommendation.
type Decision string

const (
	DecisionSell  Decision = "SELL"
	DecisionStore Decision = "STORE"
)

// IsSell reports whether the decision is an immediate sale.
func (d Decision) IsSell() bool { return d == DecisionSell }

// IsStore reports whether the decision is to hold for the peak window.
func (d Decision) IsStore() bool { return d == DecisionStore }

const (
	// StorageCostPct approximates cold storage at 2.5% of crop value per
	// month over a typical two-month holding period.
	StorageCostPct = 5.0

	// DefaultProfitThreshold is the minimum net gain (rupees) that makes
	// storing worth the hassle for a smallholder.
	DefaultProfitThreshold = 1000.0
)

// Situation carries everything the decision table needs: the engine outputs
// plus the farmer's own circumstances.
type Situation struct {
	PredictedYield  float64 // quintals
	CurrentPrice    float64 // rupees per quintal
	PeakPrice       float64 // rupees per quintal
	HasColdStorage  bool
	NeedsUrgentCash bool
	ProfitThreshold float64 // rupees; zero or negative falls back to DefaultProfitThreshold
}

// Recommendation is the output of Recommend. Values are rupees.
type Recommendation struct {
	Decision          Decision `json:"decision"`
	Rationale         string   `json:"rationale"`
	CurrentValue      float64  `json:"current_value"`
	FutureValue       float64  `json:"future_value"`
	ProfitDelta       float64  `json:"profit_delta"`
	ProfitPct         float64  `json:"profit_pct"`
	StorageCost       float64  `json:"storage_cost"`
	NetProfit         float64  `json:"net_profit"`
	BreakEvenPrice    float64  `json:"break_even_price"`
	ProfitableToStore bool     `json:"profitable_to_store"`
}

// Recommend turns the yield and price outlook into a SELL or STORE call.
// The decision table is evaluated in strict priority order, first match wins:
//
//  1. urgent cash need            → SELL
//  2. storage and net > threshold → STORE
//  3. storage and net ≤ threshold → SELL
//  4. no storage                  → SELL
//
// Net profit is the price gain minus the storage cost (a fixed percentage of
// current value). The break-even price answers "what must the market pay
// later just to cover storage"; a zero yield yields a zero break-even rather
// than a division error.
func Recommend(s Situation) Recommendation {
	threshold := s.ProfitThreshold
	if threshold <= 0 {
		threshold = DefaultProfitThreshold
	}

	currentValue := s.PredictedYield * s.CurrentPrice
	futureValue := s.PredictedYield * s.PeakPrice
	profitDelta := futureValue - currentValue

	profitPct := 0.0
	if currentValue > 0 {
		profitPct = profitDelta / currentValue * 100
	}

	storageCost := currentValue * (StorageCostPct / 100)
	netProfit := profitDelta - storageCost

	breakEven := 0.0
	if s.PredictedYield > 0 {
		breakEven = s.CurrentPrice + storageCost/s.PredictedYield
	}

	var decision Decision
	var rationale string
	switch {
	case s.NeedsUrgentCash:
		decision = DecisionSell
		rationale = "Urgent cash requirement. Immediate sale recommended despite potential future gains."
	case s.HasColdStorage && netProfit > threshold:
		decision = DecisionStore
		rationale = fmt.Sprintf("Cold storage available. Net profit after storage costs (₹%.2f) exceeds the threshold. Wait for peak prices.", netProfit)
	case s.HasColdStorage:
		decision = DecisionSell
		rationale = fmt.Sprintf("Storage costs (₹%.2f) reduce net profit below the threshold. Sell now to avoid storage expenses.", storageCost)
	default:
		decision = DecisionSell
		rationale = "No cold storage available. Sell immediately to avoid spoilage and quality degradation."
	}

	return Recommendation{
		Decision:          decision,
		Rationale:         rationale,
		CurrentValue:      currentValue,
		FutureValue:       futureValue,
		ProfitDelta:       profitDelta,
		ProfitPct:         profitPct,
		StorageCost:       storageCost,
		NetProfit:         netProfit,
		BreakEvenPrice:    breakEven,
		ProfitableToStore: netProfit > threshold,
	}
}
