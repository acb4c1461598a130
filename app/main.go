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

	"github.com/joho/godotenv"

	"github.com/geowire/geowire/app/aggregator"
	"github.com/geowire/geowire/app/api"
	"github.com/geowire/geowire/app/cfg"
	"github.com/geowire/geowire/app/history"
	"github.com/geowire/geowire/app/sources"
)

func main() {
	// Optional .env for local development; real deployments use env vars.
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting GeoWire server...", "version", appCfg.Version)

	db, err := history.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open history database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationVersion, dirty, err := history.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("History database ready", "path", appCfg.DBPath, "migration_version", migrationVersion, "dirty", dirty)

	registry, err := sources.NewRegistry(appCfg.SourcesDir)
	if err != nil {
		slog.Error("Failed to load source registry", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source registry loaded", "sources", registry.Count(), "enabled", len(registry.Enabled()))

	historyRepo := history.NewSQLRepository(db)
	cache := aggregator.NewMemoryCache(time.Duration(appCfg.CacheTTL) * time.Second)
	agg := aggregator.NewAggregator(registry, cache, historyRepo,
		appCfg.UserAgent, time.Duration(appCfg.FetchTimeout)*time.Second)

	handler := api.NewHandler(agg, registry, historyRepo)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("GeoWire server started successfully")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("GeoWire server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
