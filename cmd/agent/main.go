// Command agent runs a headless field-unit: it logs in as a field engineer,
// starts the shift, and keeps presence current with heartbeats and location
// fixes until interrupted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	appdb "github.com/fieldops/nfotrack/db"
	"github.com/fieldops/nfotrack/internal/auth"
	"github.com/fieldops/nfotrack/internal/config"
	"github.com/fieldops/nfotrack/internal/db"
	"github.com/fieldops/nfotrack/internal/location"
	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/internal/repository/postgres"
	"github.com/fieldops/nfotrack/internal/repository/sqlite"
	"github.com/fieldops/nfotrack/internal/tracker"
	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.Agent.Username == "" || cfg.Agent.Password == "" {
		logger.Error("agent credentials not configured")
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to open DB", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, appdb.Migrations, appdb.SeedFiles); err != nil {
		logger.Error("failed to migrate DB", "error", err)
		os.Exit(1)
	}

	var store repository.Store
	switch cfg.Database.Driver {
	case db.DriverPostgres:
		store = postgres.New(conn.GetConn(), logger)
	default:
		store = sqlite.New(conn, logger)
	}

	sites, err := presence.NewSiteIndex(ctx, store, 0)
	if err != nil {
		logger.Error("failed to load site directory", "error", err)
		os.Exit(1)
	}

	verifier := auth.NewVerifier(store, logger)
	session := auth.NewSession(verifier)

	identity, err := session.Login(ctx, models.RoleEngineer, cfg.Agent.Username, cfg.Agent.Password)
	if err != nil {
		logger.Error("login failed", "username", cfg.Agent.Username, "error", err)
		os.Exit(1)
	}
	logger.Info("logged in", "username", identity.Username, "name", identity.Name)

	reconciler := presence.NewReconciler(store, sites, logger)
	source := location.NewStaticSource(cfg.Location.Lat, cfg.Location.Lng)

	trk := tracker.New(session, reconciler, source, cfg.Heartbeat.Interval, logger)

	watchOpts := location.WatchOptions{
		Interval:     cfg.Location.WatchInterval,
		MinDistanceM: cfg.Location.MinDistanceM,
	}
	if err := trk.StartWatch(watchOpts); err != nil {
		logger.Warn("location watch unavailable", "error", err)
	}

	if err := trk.SetShift(ctx, true); err != nil {
		logger.Error("failed to start shift", "error", err)
		os.Exit(1)
	}

	if cfg.Agent.SiteID != "" {
		if err := trk.SetSite(ctx, cfg.Agent.SiteID); err != nil {
			logger.Warn("failed to set site", "site_id", cfg.Agent.SiteID, "error", err)
		}
	}
	if cfg.Agent.Activity != "" {
		if err := trk.SetActivity(ctx, cfg.Agent.Activity); err != nil {
			logger.Warn("failed to set activity", "error", err)
		}
	}

	if err := trk.SendHeartbeat(ctx); err != nil {
		logger.Warn("initial heartbeat failed", "error", err)
	}

	logger.Info("agent running", "heartbeat_interval", cfg.Heartbeat.Interval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down agent")

	if err := trk.Logout(ctx); err != nil {
		logger.Error("logout reconcile failed", "error", err)
	}

	logger.Info("agent exited")
}
