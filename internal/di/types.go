// Package di provides dependency injection wiring for the application.
package di

import (
	"github.com/agrisage/agrisage/internal/database"
	"github.com/agrisage/agrisage/internal/modules/advisories"
	"github.com/agrisage/agrisage/internal/modules/farmers"
	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/modules/snapshots"
	"github.com/agrisage/agrisage/internal/modules/weather"
	"github.com/agrisage/agrisage/internal/refdata"
	"github.com/agrisage/agrisage/internal/reliability"
	"github.com/agrisage/agrisage/internal/scheduler"
)

// Container holds all application dependencies. It is built by Wire and
// handed to the HTTP server and the entry point; nothing else constructs
// repositories or services.
type Container struct {
	// Databases (three-database architecture)
	AdvisoryDB *database.DB // Farmers, advisory reports, notifications
	HistoryDB  *database.DB // Weather samples and mandi price series
	CacheDB    *database.DB // Advisory snapshots and job-run history

	// Reference data
	Catalog *refdata.Catalog // Crop profiles (built-in defaults plus YAML overlay)

	// Repositories
	FarmerRepo       *farmers.Repository
	WeatherRepo      *weather.Repository
	MarketRepo       *market.Repository
	ReportRepo       *advisories.Repository
	SnapshotRepo     *snapshots.Repository
	NotificationRepo *notifications.Repository
	RunRepo          *scheduler.RunRepository

	// Services
	TrendService    *market.TrendService
	AdvisoryService *advisories.Service

	// Reliability. BackupService is nil when backups are disabled;
	// RestoreService is always present so staged archives can be listed.
	BackupService  *reliability.BackupService
	RestoreService *reliability.RestoreService

	// Background jobs
	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances
}

// JobInstances holds the constructed scheduler jobs so the API layer can
// trigger them manually. Backup is nil when backups are disabled.
type JobInstances struct {
	PriceAlerts     *scheduler.PriceAlertsJob
	AdvisoryRefresh *scheduler.AdvisoryRefreshJob
	Maintenance     *scheduler.MaintenanceJob
	Backup          *scheduler.BackupJob
}

// Named returns the jobs keyed by their registered names, skipping any that
// were not constructed.
func (j *JobInstances) Named() map[string]scheduler.Job {
	named := make(map[string]scheduler.Job)
	if j == nil {
		return named
	}
	if j.PriceAlerts != nil {
		named[j.PriceAlerts.Name()] = j.PriceAlerts
	}
	if j.AdvisoryRefresh != nil {
		named[j.AdvisoryRefresh.Name()] = j.AdvisoryRefresh
	}
	if j.Maintenance != nil {
		named[j.Maintenance.Name()] = j.Maintenance
	}
	if j.Backup != nil {
		named[j.Backup.Name()] = j.Backup
	}
	return named
}

// Close releases every database the container holds. Safe to call on a
// partially initialized container.
func (c *Container) Close() {
	for _, db := range []*database.DB{c.AdvisoryDB, c.HistoryDB, c.CacheDB} {
		if db != nil {
			db.Close()
		}
	}
}

// Databases returns the open databases keyed by name, for components that
// operate on all of them (maintenance, backups, health checks).
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		"advisory": c.AdvisoryDB,
		"history":  c.HistoryDB,
		"cache":    c.CacheDB,
	}
}
