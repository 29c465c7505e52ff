package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terracepulse/terracepulse/app/aggregate"
	"github.com/terracepulse/terracepulse/app/api"
	"github.com/terracepulse/terracepulse/app/cfg"
	"github.com/terracepulse/terracepulse/app/database"
	"github.com/terracepulse/terracepulse/app/dedup"
	"github.com/terracepulse/terracepulse/app/scorer"
	"github.com/terracepulse/terracepulse/app/source"
	"github.com/terracepulse/terracepulse/app/tasks"
	"github.com/terracepulse/terracepulse/app/team"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if c.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Terrace Pulse", "version", c.Version)

	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	configCache := team.NewConfigCache(c.TeamsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load team configurations", "dir", c.TeamsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Team configurations loaded", "total", configCache.GetConfigCount(), "enabled", len(configCache.GetEnabledIDs()))

	bucketRepo := database.NewBucketRepository(db)
	fingerprintRepo := database.NewFingerprintRepository(db)
	writer := database.NewWriter(db)

	httpClient := &http.Client{}
	sources := []source.Source{
		source.NewReddit(httpClient),
		source.NewMirror(httpClient),
	}

	deduplicator := dedup.NewDeduplicator(fingerprintRepo)
	scorerClient := scorer.NewClient()
	aggregator := aggregate.NewAggregator(time.Duration(c.BucketWidthMinutes) * time.Minute)
	outcomes := tasks.NewOutcomeRecorder()

	scheduler := tasks.NewScheduler(configCache, sources, deduplicator, scorerClient,
		writer, fingerprintRepo, aggregator, outcomes)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "workers", c.WorkerCount, "interval", time.Duration(c.SchedulerInterval)*time.Second)

	handler := api.NewHandler(configCache, bucketRepo, fingerprintRepo, outcomes, scheduler)
	server := api.NewServer(handler, c.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
