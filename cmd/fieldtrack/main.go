// Command fieldtrack runs the track-replay service: it loads field-agent
// ping data, drives the replay clock, and serves display state to the
// monitoring view.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fieldtrack/internal/api"
	"fieldtrack/pkg/cache"
	"fieldtrack/pkg/config"
	"fieldtrack/pkg/db"
	"fieldtrack/pkg/directions"
	"fieldtrack/pkg/geocode"
	"fieldtrack/pkg/logging"
	"fieldtrack/pkg/request"
	"fieldtrack/pkg/session"
	"fieldtrack/pkg/store"
	"fieldtrack/pkg/tracker"
	"fieldtrack/pkg/version"
)

var configPath = flag.String("config", "configs/fieldtrack.yaml", "Path to config file")

func main() {
	flag.Parse()

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Secrets (API keys) may live in a local .env
	_ = godotenv.Load()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Fieldtrack started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()

	tr := tracker.New()
	reqClient := request.New(cache.NewSQLiteCache(dbConn), tr, request.ClientConfig{
		Retries:   appCfg.Request.Retries,
		Timeout:   time.Duration(appCfg.Request.Timeout),
		BaseDelay: time.Duration(appCfg.Request.Backoff.BaseDelay),
	})

	if appCfg.Geocode.Key == "" {
		slog.Warn("No geocode API key configured; place labels stay empty")
	}
	resolver := geocode.NewResolver(
		geocode.NewGoogleProvider(reqClient, appCfg.Geocode.Key),
		tr,
		time.Duration(appCfg.Geocode.Cooldown))
	snapper := directions.NewSnapper(
		directions.NewOSRMProvider(reqClient),
		appCfg.Directions.MaxWaypoints)

	pings := store.NewPingStore(dbConn)
	sessions := session.NewManager(ctx, pings, resolver, snapper, session.Config{
		BaseStep:     time.Duration(appCfg.Playback.BaseStep),
		TickInterval: time.Duration(appCfg.Playback.TickInterval),
	})
	defer sessions.Close()

	replayH := api.NewReplayHandler(sessions)
	streamH := api.NewStreamHandler(sessions, time.Duration(appCfg.Server.StreamInterval))
	statsH := api.NewStatsHandler(tr, resolver)

	srv := api.NewServer(appCfg.Server.Address, replayH, streamH, statsH, cancel)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", appCfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("Shutting down on signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Server shutdown incomplete", "error", err)
	}

	return nil
}
