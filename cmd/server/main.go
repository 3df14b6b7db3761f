// Package main is the entry point for the AgriSage district advisory service.
// It serves the advisory API, records weather and mandi price observations,
// and runs the nightly jobs (advisory refresh, price alerts, maintenance,
// off-site backups).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/di"
	"github.com/agrisage/agrisage/internal/reliability"
	"github.com/agrisage/agrisage/internal/server"
	"github.com/agrisage/agrisage/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting AgriSage")

	// Apply any staged restore BEFORE the databases open. Archives are
	// verified against their manifest and swapped in atomically; a bad
	// archive is set aside and startup continues on the current data.
	restoreCheck := reliability.NewRestoreService(nil, cfg.DataDir, log)
	applied, err := restoreCheck.ApplyStaged()
	if err != nil {
		log.Error().Err(err).Msg("Staged restore failed, continuing with current databases")
	} else if applied {
		log.Info().Msg("Staged restore applied")
	}

	// Wire databases, repositories, services, and jobs
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	// Start server in goroutine so the scheduler and signal handling run
	// on the main one
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()
	log.Info().Int("port", cfg.Port).Msg("AgriSage started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop the scheduler first; Stop waits for running jobs to finish
	container.Scheduler.Stop()

	// Drain in-flight HTTP requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Checkpoint WAL files so the .db files are complete on disk
	for name, db := range container.Databases() {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed during shutdown")
		}
	}

	log.Info().Msg("AgriSage stopped")
}
