// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the three databases and applies their schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. advisory.db - Farmers, advisory reports, notifications
	advisoryDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/advisory.db",
		Profile: database.ProfileStandard,
		Name:    "advisory",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize advisory database: %w", err)
	}
	container.AdvisoryDB = advisoryDB

	// 2. history.db - Weather samples and mandi price series
	historyDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/history.db",
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		advisoryDB.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	// 3. cache.db - Advisory snapshots and job-run history
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/cache.db",
		Profile: database.ProfileCache, // Rebuildable data, tuned for speed
		Name:    "cache",
	})
	if err != nil {
		advisoryDB.Close()
		historyDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// Apply schemas to all databases (single source of truth)
	for _, db := range []*database.DB{advisoryDB, historyDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("All databases initialized and schemas applied")

	return container, nil
}
