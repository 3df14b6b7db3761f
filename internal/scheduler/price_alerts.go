package scheduler

import (
	"fmt"
	"math"

	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/refdata"
	"github.com/rs/zerolog"
)

// PriceAlertsJob compares each crop's latest mandi quote against its catalog
// baseline and raises a notification when the move exceeds the threshold.
// One alert per crop per day; quiet crops stay quiet.
type PriceAlertsJob struct {
	marketRepo   *market.Repository
	catalog      *refdata.Catalog
	notifier     *notifications.Repository
	thresholdPct float64
	log          zerolog.Logger
}

// NewPriceAlertsJob creates a new price alerts job.
func NewPriceAlertsJob(
	marketRepo *market.Repository,
	catalog *refdata.Catalog,
	notifier *notifications.Repository,
	thresholdPct float64,
	log zerolog.Logger,
) *PriceAlertsJob {
	return &PriceAlertsJob{
		marketRepo:   marketRepo,
		catalog:      catalog,
		notifier:     notifier,
		thresholdPct: thresholdPct,
		log:          log.With().Str("job", "price_alerts").Logger(),
	}
}

// Name implements Job
func (j *PriceAlertsJob) Name() string { return "price-alerts" }

// Run implements Job
func (j *PriceAlertsJob) Run() error {
	crops, err := j.marketRepo.Crops()
	if err != nil {
		return fmt.Errorf("failed to list crops: %w", err)
	}

	alerts := 0
	for _, crop := range crops {
		latest, err := j.marketRepo.LatestForCrop(crop)
		if err != nil {
			j.log.Warn().Err(err).Str("crop", crop).Msg("Failed to get latest price")
			continue
		}
		if latest == nil {
			continue
		}

		baseline := j.catalog.Profile(crop).AvgPrice
		if baseline <= 0 {
			continue
		}

		changePct := (latest.PricePerQuintal - baseline) / baseline * 100
		if math.Abs(changePct) < j.thresholdPct {
			continue
		}

		already, err := j.notifier.HasToday(notifications.KindPriceAlert, crop)
		if err != nil {
			j.log.Warn().Err(err).Str("crop", crop).Msg("Failed to check existing alerts")
			continue
		}
		if already {
			continue
		}

		msg := fmt.Sprintf("%s at ₹%.2f/quintal, %+.1f%% vs the ₹%.2f baseline (%s mandi, %s)",
			crop, latest.PricePerQuintal, changePct, baseline, latest.Market, latest.Date)
		if _, err := j.notifier.Create(notifications.KindPriceAlert, crop, latest.Market, msg); err != nil {
			j.log.Warn().Err(err).Str("crop", crop).Msg("Failed to raise price alert")
			continue
		}
		alerts++
	}

	j.log.Info().Int("crops", len(crops)).Int("alerts", alerts).Msg("Price alert sweep finished")
	return nil
}
