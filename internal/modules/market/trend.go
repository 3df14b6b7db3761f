package market

import (
	"fmt"
	"strings"

	"github.com/agrisage/agrisage/pkg/formulas"
	"github.com/rs/zerolog"
)

const (
	// trendWindow is the SMA/EMA lookback in trading days. Mandi quotes are
	// daily, so a week of quotes is the shortest window worth smoothing.
	trendWindow = 7

	rsiWindow    = 14
	momentumDays = 7
)

// TrendService derives price trend indicators from the recorded mandi series.
type TrendService struct {
	repo *Repository
	log  zerolog.Logger
}

// NewTrendService creates a new trend service.
func NewTrendService(repo *Repository, log zerolog.Logger) *TrendService {
	return &TrendService{
		repo: repo,
		log:  log.With().Str("service", "trend").Logger(),
	}
}

// TrendForCrop computes trend indicators over the last limit quotes for a
// crop. Returns nil when the crop has no recorded prices. Indicators that
// need more history than is available are left nil; direction falls back to
// "flat" until both moving averages resolve.
func (s *TrendService) TrendForCrop(crop string, limit int) (*Trend, error) {
	series, err := s.repo.SeriesForCrop(crop, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load price series: %w", err)
	}
	if len(series) == 0 {
		return nil, nil
	}

	t := &Trend{
		Crop:    strings.ToLower(strings.TrimSpace(crop)),
		Samples: len(series),
		Latest:  series[len(series)-1],
		Mean:    formulas.Mean(series),
		Min:     formulas.Min(series),
		Max:     formulas.Max(series),
	}

	t.SMA = formulas.CalculateSMA(series, trendWindow)
	t.EMA = formulas.CalculateEMA(series, trendWindow)
	t.RSI = formulas.CalculateRSI(series, rsiWindow)
	t.Momentum = formulas.CalculateMomentum(series, momentumDays)
	t.MaxDrawdown = formulas.CalculateMaxDrawdown(series)

	if returns := formulas.CalculateReturns(series); len(returns) >= 2 {
		vol := formulas.AnnualizedVolatility(returns)
		t.Volatility = &vol
	}

	t.Direction = direction(t)
	return t, nil
}

// direction classifies the series. The EMA reacts faster than the SMA, so
// EMA above SMA with the last price confirming means prices are climbing,
// the mirror image means they are falling, anything else is flat.
func direction(t *Trend) string {
	if t.SMA == nil || t.EMA == nil {
		return "flat"
	}
	switch {
	case *t.EMA > *t.SMA && t.Latest >= *t.EMA:
		return "rising"
	case *t.EMA < *t.SMA && t.Latest <= *t.EMA:
		return "falling"
	default:
		return "flat"
	}
}
