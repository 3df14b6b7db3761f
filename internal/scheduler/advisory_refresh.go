package scheduler

import (
	"context"
	"fmt"

	"github.com/agrisage/agrisage/internal/modules/advisories"
	"github.com/rs/zerolog"
)

// AdvisoryRefreshJob regenerates every farmer's advisory so overnight
// weather and price observations flow into the stored reports before
// officers start their day.
type AdvisoryRefreshJob struct {
	service *advisories.Service
	log     zerolog.Logger
}

// NewAdvisoryRefreshJob creates a new advisory refresh job.
func NewAdvisoryRefreshJob(service *advisories.Service, log zerolog.Logger) *AdvisoryRefreshJob {
	return &AdvisoryRefreshJob{
		service: service,
		log:     log.With().Str("job", "advisory_refresh").Logger(),
	}
}

// Name implements Job
func (j *AdvisoryRefreshJob) Name() string { return "advisory-refresh" }

// Run implements Job
func (j *AdvisoryRefreshJob) Run() error {
	refreshed, err := j.service.RefreshAll(context.Background())
	if err != nil {
		return fmt.Errorf("advisory refresh failed: %w", err)
	}

	j.log.Info().Int("refreshed", refreshed).Msg("Advisory refresh finished")
	return nil
}
