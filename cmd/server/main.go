// Package main is the entry point for the qfarm physics server.
// It hosts the farm's biome registers, evolves them on a fixed tick, and
// exposes gameplay actions and snapshots over HTTP and a websocket stream.
//
// Startup order:
// - configuration and logging
// - dependency wiring (journal database, farm, maintenance jobs)
// - background loops (physics, journal writer, cron, status monitor)
// - HTTP server
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/qfarm/internal/config"
	"github.com/aristath/qfarm/internal/di"
	"github.com/aristath/qfarm/internal/server"
	"github.com/aristath/qfarm/pkg/logger"
)

// statusMonitorInterval is how often the status monitor compares farm state.
const statusMonitorInterval = 30 * time.Second

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Pretty console output in development, JSON lines otherwise
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting qfarm")

	// Wire all dependencies using DI container
	// This opens the journal database, builds every enabled biome and
	// registers the maintenance jobs. Nothing runs yet.
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Journal writer drains recorded actions into SQLite off the physics lock
	container.JournalWriter.Start()

	// Physics loop
	go func() {
		if err := container.Evolution.Run(); err != nil {
			log.Error().Err(err).Msg("Physics loop exited")
		}
	}()

	// Maintenance jobs (audit, prune, backup)
	container.Jobs.Start()
	log.Info().
		Bool("backups", jobs.JournalBackup != nil).
		Msg("Maintenance scheduler started")

	monitor := server.NewStatusMonitor(container.Farm, container.JournalWriter, log)
	monitor.Start(statusMonitorInterval)

	srv := server.New(server.Config{
		Log:            log,
		Farm:           container.Farm,
		Jobs:           container.Jobs,
		Journal:        container.JournalRepo,
		JournalWriter:  container.JournalWriter,
		JournalDB:      container.JournalDB,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		StreamInterval: cfg.StreamPeriod,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop accepting requests before the physics and journal go away
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	monitor.Stop()

	// Stops the physics loop, the cron scheduler and the journal writer
	// (flushing what is queued), then closes the journal database.
	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close journal database")
	}

	log.Info().Msg("Server stopped")
}
