// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/modules/advisories"
	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/refdata"
	"github.com/agrisage/agrisage/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates all services and stores them in the container.
// Repositories must be initialized first.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Crop catalog: built-in district defaults, optionally overlaid from YAML
	catalog, err := refdata.Load(cfg.CropCatalogFile)
	if err != nil {
		return fmt.Errorf("failed to load crop catalog: %w", err)
	}
	container.Catalog = catalog
	if cfg.CropCatalogFile != "" {
		log.Info().Str("file", cfg.CropCatalogFile).Msg("Crop catalog overlay applied")
	}

	// Price trend analysis over the recorded mandi series
	container.TrendService = market.NewTrendService(container.MarketRepo, log)

	// Advisory generation pipeline
	container.AdvisoryService = advisories.NewService(
		container.Catalog,
		container.FarmerRepo,
		container.WeatherRepo,
		container.MarketRepo,
		container.ReportRepo,
		container.SnapshotRepo,
		container.NotificationRepo,
		cfg.DefaultRegion,
		log,
	)

	// Off-site backups are optional; the restore service is always built so
	// staged archives can be fetched and applied even when uploads are off.
	if cfg.Backup != nil && cfg.Backup.Enabled {
		store, err := reliability.NewS3Store(cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to initialize object store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			container.Databases(),
			store,
			cfg.DataDir,
			cfg.Backup.Retain,
			log,
		)
		container.RestoreService = reliability.NewRestoreService(store, cfg.DataDir, log)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Off-site backups enabled")
	} else {
		container.RestoreService = reliability.NewRestoreService(nil, cfg.DataDir, log)
	}

	log.Info().Msg("All services initialized")

	return nil
}
