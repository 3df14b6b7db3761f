package scheduler

import (
	"time"

	"github.com/agrisage/agrisage/internal/database"
	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/modules/snapshots"
	"github.com/agrisage/agrisage/internal/modules/weather"
	"github.com/rs/zerolog"
)

// Job runs are kept for three months regardless of the data retention
// setting; they are small and useful when debugging scheduling gaps.
const jobRunRetentionDays = 90

// MaintenanceJob keeps the databases lean: WAL checkpoints every run,
// observation rows past retention pruned, snapshot history capped, and a
// full vacuum on the first of the month.
type MaintenanceJob struct {
	databases     map[string]*database.DB
	weatherRepo   *weather.Repository
	marketRepo    *market.Repository
	snapshotRepo  *snapshots.Repository
	notifier      *notifications.Repository
	runs          *RunRepository
	retentionDays int
	snapshotKeep  int
	log           zerolog.Logger

	now func() time.Time
}

// NewMaintenanceJob creates a new maintenance job.
func NewMaintenanceJob(
	databases map[string]*database.DB,
	weatherRepo *weather.Repository,
	marketRepo *market.Repository,
	snapshotRepo *snapshots.Repository,
	notifier *notifications.Repository,
	runs *RunRepository,
	retentionDays int,
	snapshotKeep int,
	log zerolog.Logger,
) *MaintenanceJob {
	return &MaintenanceJob{
		databases:     databases,
		weatherRepo:   weatherRepo,
		marketRepo:    marketRepo,
		snapshotRepo:  snapshotRepo,
		notifier:      notifier,
		runs:          runs,
		retentionDays: retentionDays,
		snapshotKeep:  snapshotKeep,
		log:           log.With().Str("job", "maintenance").Logger(),
		now:           time.Now,
	}
}

// Name implements Job
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run implements Job. Individual steps log and continue on failure; a
// checkpoint hiccup must not block retention pruning.
func (j *MaintenanceJob) Run() error {
	now := j.now()

	for name, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	cutoff := now.AddDate(0, 0, -j.retentionDays)

	if n, err := j.weatherRepo.DeleteOlderThan(cutoff); err != nil {
		j.log.Warn().Err(err).Msg("Failed to prune weather samples")
	} else if n > 0 {
		j.log.Info().Int64("rows", n).Msg("Pruned weather samples")
	}

	if n, err := j.marketRepo.DeleteOlderThan(cutoff); err != nil {
		j.log.Warn().Err(err).Msg("Failed to prune mandi prices")
	} else if n > 0 {
		j.log.Info().Int64("rows", n).Msg("Pruned mandi prices")
	}

	if n, err := j.snapshotRepo.Prune(j.snapshotKeep); err != nil {
		j.log.Warn().Err(err).Msg("Failed to prune advisory snapshots")
	} else if n > 0 {
		j.log.Info().Int64("rows", n).Msg("Pruned advisory snapshots")
	}

	if n, err := j.notifier.DeleteOlderThan(cutoff); err != nil {
		j.log.Warn().Err(err).Msg("Failed to prune notifications")
	} else if n > 0 {
		j.log.Info().Int64("rows", n).Msg("Pruned read notifications")
	}

	if j.runs != nil {
		runCutoff := now.AddDate(0, 0, -jobRunRetentionDays)
		if n, err := j.runs.DeleteOlderThan(runCutoff); err != nil {
			j.log.Warn().Err(err).Msg("Failed to prune job runs")
		} else if n > 0 {
			j.log.Info().Int64("rows", n).Msg("Pruned job runs")
		}
	}

	// Vacuum is expensive; once a month is plenty for databases this size
	if now.Day() == 1 {
		for name, db := range j.databases {
			if db == nil {
				continue
			}
			if err := db.Vacuum(); err != nil {
				j.log.Warn().Err(err).Str("database", name).Msg("Vacuum failed")
			} else {
				j.log.Info().Str("database", name).Msg("Vacuumed database")
			}
		}
	}

	return nil
}
