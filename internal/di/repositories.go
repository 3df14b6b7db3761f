// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/agrisage/agrisage/internal/modules/advisories"
	"github.com/agrisage/agrisage/internal/modules/farmers"
	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/modules/snapshots"
	"github.com/agrisage/agrisage/internal/modules/weather"
	"github.com/agrisage/agrisage/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// advisory.db repositories
	container.FarmerRepo = farmers.NewRepository(container.AdvisoryDB.Conn(), log)
	container.ReportRepo = advisories.NewRepository(container.AdvisoryDB.Conn(), log)
	container.NotificationRepo = notifications.NewRepository(container.AdvisoryDB.Conn(), log)

	// history.db repositories
	container.WeatherRepo = weather.NewRepository(container.HistoryDB.Conn(), log)
	container.MarketRepo = market.NewRepository(container.HistoryDB.Conn(), log)

	// cache.db repositories
	container.SnapshotRepo = snapshots.NewRepository(container.CacheDB.Conn(), log)
	container.RunRepo = scheduler.NewRunRepository(container.CacheDB.Conn(), log)

	log.Info().Msg("All repositories initialized")

	return nil
}
