package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fieldops/nfotrack/api"
	appdb "github.com/fieldops/nfotrack/db"
	"github.com/fieldops/nfotrack/internal/auth"
	"github.com/fieldops/nfotrack/internal/config"
	"github.com/fieldops/nfotrack/internal/db"
	"github.com/fieldops/nfotrack/internal/fleet"
	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/internal/repository/postgres"
	"github.com/fieldops/nfotrack/internal/repository/sqlite"
	"github.com/fieldops/nfotrack/pkg/repository"
	"github.com/fieldops/nfotrack/pkg/routing"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("starting nfotrack server", "version", version, "buildTime", buildTime)

	ctx := context.Background()

	conn, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to open DB", "error", err)
		os.Exit(1)
	}

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

	reconciler := presence.NewReconciler(store, sites, logger)
	verifier := auth.NewVerifier(store, logger)

	viewer := fleet.NewViewer(store, store, sites, cfg.Fleet.PollInterval, logger)
	viewer.Start()
	defer viewer.Stop()

	deps := api.Deps{
		Verifier:     verifier,
		Reconciler:   reconciler,
		Viewer:       viewer,
		Sites:        sites,
		PresenceRepo: store,
	}

	if cfg.Routing.Endpoint != "" {
		router, err := routing.NewClient(cfg.Routing.Endpoint, cfg.Routing.APIKey, cfg.Routing.Timeout, logger)
		if err != nil {
			logger.Error("failed to build routing client", "error", err)
			os.Exit(1)
		}
		deps.Router = router
	} else {
		logger.Warn("no routing endpoint configured, ETA endpoint disabled")
	}

	handler := api.SetupRoutes(cfg, version, buildTime, deps)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	viewer.Stop()

	if err := conn.Close(); err != nil {
		logger.Error("error closing DB", "error", err)
	}

	logger.Info("server exited")
}
