// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/scheduler"
	"github.com/rs/zerolog"
)

// Cron schedules (six-field, with seconds). Jobs run in the server's local
// time, early morning so results are ready before mandis and offices open.
const (
	scheduleAdvisoryRefresh = "0 0 6 * * *"  // 06:00 daily
	schedulePriceAlerts     = "0 0 7 * * *"  // 07:00 daily
	scheduleMaintenance     = "0 30 2 * * *" // 02:30 daily
	scheduleBackup          = "0 30 3 * * *" // 03:30 daily
)

// RegisterJobs builds the scheduler, constructs every job, and registers the
// cron entries. The backup job is only registered when backups are enabled.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(container.RunRepo, log)
	jobs := &JobInstances{}

	jobs.AdvisoryRefresh = scheduler.NewAdvisoryRefreshJob(container.AdvisoryService, log)
	if err := sched.AddJob(scheduleAdvisoryRefresh, jobs.AdvisoryRefresh); err != nil {
		return err
	}

	jobs.PriceAlerts = scheduler.NewPriceAlertsJob(
		container.MarketRepo,
		container.Catalog,
		container.NotificationRepo,
		cfg.PriceAlertThresholdPct,
		log,
	)
	if err := sched.AddJob(schedulePriceAlerts, jobs.PriceAlerts); err != nil {
		return err
	}

	jobs.Maintenance = scheduler.NewMaintenanceJob(
		container.Databases(),
		container.WeatherRepo,
		container.MarketRepo,
		container.SnapshotRepo,
		container.NotificationRepo,
		container.RunRepo,
		cfg.RetentionDays,
		cfg.SnapshotKeep,
		log,
	)
	if err := sched.AddJob(scheduleMaintenance, jobs.Maintenance); err != nil {
		return err
	}

	if container.BackupService != nil {
		jobs.Backup = scheduler.NewBackupJob(container.BackupService, container.NotificationRepo, log)
		if err := sched.AddJob(scheduleBackup, jobs.Backup); err != nil {
			return err
		}
	}

	container.Scheduler = sched
	container.Jobs = jobs

	log.Info().Int("jobs", len(jobs.Named())).Msg("Scheduler jobs registered")

	return nil
}
