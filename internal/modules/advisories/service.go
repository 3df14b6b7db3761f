package advisories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/agrisage/agrisage/internal/advisory"
	"github.com/agrisage/agrisage/internal/modules/farmers"
	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/modules/snapshots"
	"github.com/agrisage/agrisage/internal/modules/weather"
	"github.com/agrisage/agrisage/internal/refdata"
	"github.com/rs/zerolog"
)

// ErrFarmerNotFound is returned when a request names an unknown farmer.
var ErrFarmerNotFound = errors.New("farmer not found")

// District-wide fallbacks applied when a mandal has no recorded weather.
// These are long-run Krishna District monthly averages.
const (
	defaultRainfallMM   = 75.0
	defaultTemperatureC = 28.0
	defaultHumidityPct  = 70.0
)

// Confidence starts at the base and earns a boost per real observation that
// replaced a fallback.
const (
	baseConfidence         = 70.0
	weatherConfidenceBoost = 15.0
	diseaseConfidenceBoost = 15.0
)

// Weather and price source labels stored on the report.
const (
	SourceObserved        = "observed"
	SourceDistrictDefault = "district_default"
	SourceBaseline        = "baseline"
)

// Service generates advisories: it resolves inputs, runs the engine, and
// persists the outcome for registered farmers.
type Service struct {
	catalog       *refdata.Catalog
	farmerRepo    *farmers.Repository
	weatherRepo   *weather.Repository
	marketRepo    *market.Repository
	reportRepo    *Repository
	snapshotRepo  *snapshots.Repository
	notifier      *notifications.Repository
	defaultRegion string
	log           zerolog.Logger
}

// NewService creates a new advisories service.
func NewService(
	catalog *refdata.Catalog,
	farmerRepo *farmers.Repository,
	weatherRepo *weather.Repository,
	marketRepo *market.Repository,
	reportRepo *Repository,
	snapshotRepo *snapshots.Repository,
	notifier *notifications.Repository,
	defaultRegion string,
	log zerolog.Logger,
) *Service {
	return &Service{
		catalog:       catalog,
		farmerRepo:    farmerRepo,
		weatherRepo:   weatherRepo,
		marketRepo:    marketRepo,
		reportRepo:    reportRepo,
		snapshotRepo:  snapshotRepo,
		notifier:      notifier,
		defaultRegion: defaultRegion,
		log:           log.With().Str("service", "advisories").Logger(),
	}
}

// Generate produces a fresh advisory. Requests naming a registered farmer
// get the result persisted (report upserted, snapshot archived, notification
// raised on STORE); inline walk-in requests only get the computed report
// back.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Report, error) {
	return s.generateAt(ctx, req, time.Now())
}

func (s *Service) generateAt(ctx context.Context, req GenerateRequest, now time.Time) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1: resolve the subject
	var farmer *farmers.Farmer
	crop := strings.ToLower(strings.TrimSpace(req.Crop))
	acreage := req.Acreage
	mandal := strings.ToLower(strings.TrimSpace(req.Mandal))
	hasColdStorage := req.HasColdStorage

	if req.FarmerID != "" {
		f, err := s.farmerRepo.GetByID(req.FarmerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve farmer: %w", err)
		}
		if f == nil {
			return nil, ErrFarmerNotFound
		}
		farmer = f
		crop = f.Crop
		acreage = f.Acreage
		mandal = f.Mandal
		hasColdStorage = f.HasColdStorage
	} else {
		if crop == "" {
			return nil, fmt.Errorf("crop is required for inline requests")
		}
		if acreage <= 0 {
			return nil, fmt.Errorf("acreage must be positive, got %v", acreage)
		}
	}

	// Step 2: weather, observed or district default
	w := advisory.Weather{
		RainfallMM:   defaultRainfallMM,
		TemperatureC: defaultTemperatureC,
		HumidityPct:  defaultHumidityPct,
	}
	weatherSource := SourceDistrictDefault
	if mandal != "" {
		sample, err := s.weatherRepo.LatestForMandal(mandal)
		if err != nil {
			return nil, fmt.Errorf("failed to look up weather: %w", err)
		}
		if sample != nil {
			w = advisory.Weather{
				RainfallMM:   sample.RainfallMM,
				TemperatureC: sample.TemperatureC,
				HumidityPct:  sample.HumidityPct,
			}
			weatherSource = SourceObserved
		}
	}

	// Step 3: price, observed or profile baseline
	var currentPrice *float64
	priceSource := SourceBaseline
	if req.CurrentPrice != nil {
		currentPrice = req.CurrentPrice
		priceSource = SourceObserved
	} else {
		quote, err := s.marketRepo.LatestForCrop(crop)
		if err != nil {
			return nil, fmt.Errorf("failed to look up price: %w", err)
		}
		if quote != nil {
			currentPrice = &quote.PricePerQuintal
			priceSource = "mandi:" + quote.Market
		}
	}

	// A missing severity means no disease observation; the engine still
	// assumes mild ambient pressure, matching field experience.
	severity := advisory.SeverityLow
	severityObserved := false
	if raw := strings.TrimSpace(req.Severity); raw != "" {
		severityObserved = true
		if parsed := advisory.ParseSeverity(raw); parsed.IsKnown() {
			severity = parsed
		}
	}

	// Step 4: run the engine
	profile := s.catalog.Profile(crop)

	est, err := advisory.EstimateYield(profile, acreage, w, severity)
	if err != nil {
		return nil, fmt.Errorf("yield estimate failed: %w", err)
	}

	fc, err := advisory.ForecastPrice(profile, advisory.PriceQuery{
		CurrentPrice: currentPrice,
		AsOf:         now,
		Supply:       advisory.ParseLevel(req.Supply),
		Demand:       advisory.ParseLevel(req.Demand),
	})
	if err != nil {
		return nil, fmt.Errorf("price forecast failed: %w", err)
	}

	rec := advisory.Recommend(advisory.Situation{
		PredictedYield:  est.PredictedYield,
		CurrentPrice:    fc.CurrentPrice,
		PeakPrice:       fc.PredictedPeakPrice,
		HasColdStorage:  hasColdStorage,
		NeedsUrgentCash: req.NeedsUrgentCash,
		ProfitThreshold: req.ProfitThreshold,
	})

	// Steps 5 and 6: confidence and yield reduction
	confidence := baseConfidence
	if weatherSource == SourceObserved {
		confidence += weatherConfidenceBoost
	}
	if severityObserved {
		confidence += diseaseConfidenceBoost
	}

	yieldReduction := 0.0
	if est.BaseYield > 0 {
		yieldReduction = round2((est.BaseYield - est.PredictedYield) / est.BaseYield * 100)
	}

	report := &Report{
		Crop:              crop,
		Acreage:           acreage,
		Severity:          string(severity),
		BaseYield:         est.BaseYield,
		PredictedYield:    est.PredictedYield,
		WeatherFactor:     est.WeatherFactor,
		YieldReductionPct: yieldReduction,
		CurrentPrice:      fc.CurrentPrice,
		PriceSource:       priceSource,
		PredictedPrice:    fc.PredictedPeakPrice,
		PriceChangePct:    fc.PriceChangePct,
		SellWindowStart:   fc.SellWindowStart.Format(weather.DateLayout),
		SellWindowEnd:     fc.SellWindowEnd.Format(weather.DateLayout),
		Decision:          rec.Decision,
		Rationale:         rec.Rationale,
		CurrentValue:      rec.CurrentValue,
		FutureValue:       rec.FutureValue,
		ProfitDelta:       rec.ProfitDelta,
		StorageCost:       rec.StorageCost,
		NetProfit:         rec.NetProfit,
		BreakEvenPrice:    rec.BreakEvenPrice,
		RainfallMM:        w.RainfallMM,
		TemperatureC:      w.TemperatureC,
		HumidityPct:       w.HumidityPct,
		WeatherSource:     weatherSource,
		Region:            s.defaultRegion,
		Confidence:        confidence,
	}

	// Step 7: persist for registered farmers
	if farmer != nil {
		report.FarmerID = farmer.ID

		stored, err := s.reportRepo.Upsert(*report)
		if err != nil {
			return nil, fmt.Errorf("failed to store advisory report: %w", err)
		}
		report = stored

		if err := s.snapshotRepo.Save(farmer.ID, crop, report); err != nil {
			s.log.Warn().Err(err).Str("farmer_id", farmer.ID).Msg("Failed to archive advisory snapshot")
		}

		if rec.Decision.IsStore() {
			msg := fmt.Sprintf("Store advice for %s: hold %s until the %s window, projected net profit ₹%.2f",
				farmer.Name, crop, report.SellWindowStart, rec.NetProfit)
			if _, err := s.notifier.Create(notifications.KindAdvisory, crop, mandal, msg); err != nil {
				s.log.Warn().Err(err).Str("farmer_id", farmer.ID).Msg("Failed to raise advisory notification")
			}
		}

		s.log.Info().
			Str("farmer_id", farmer.ID).
			Str("crop", crop).
			Str("decision", string(rec.Decision)).
			Float64("confidence", confidence).
			Msg("Generated advisory")
	}

	return report, nil
}

// RefreshAll regenerates the advisory of every registered farmer. Returns
// how many succeeded; individual failures are logged and skipped so one bad
// record cannot stall the sweep. Used by the nightly refresh job.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	all, err := s.farmerRepo.List(0)
	if err != nil {
		return 0, fmt.Errorf("failed to list farmers: %w", err)
	}

	refreshed := 0
	for _, f := range all {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.Generate(ctx, GenerateRequest{FarmerID: f.ID}); err != nil {
			s.log.Warn().Err(err).Str("farmer_id", f.ID).Msg("Failed to refresh advisory")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
