// Package main is the entrypoint for the Crewdeck server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ironbeam/crewdeck/internal/api"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/config"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/invites"
	"github.com/ironbeam/crewdeck/internal/maintenance"
	"github.com/ironbeam/crewdeck/internal/notifications"
	"github.com/ironbeam/crewdeck/internal/people"
	"github.com/ironbeam/crewdeck/internal/projects"
	"github.com/ironbeam/crewdeck/internal/seats"
	"github.com/ironbeam/crewdeck/internal/timesheets"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting Crewdeck server")

	cfg := config.LoadServerConfig()

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL environment variable is required")
		return 1
	}

	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load settings file, using defaults")
	}

	// Email delivery is optional: without SMTP configuration invites and
	// decision notices fall back to in-app notifications only.
	var emailService *notifications.EmailService
	if settings.SMTP.Enabled() {
		emailService, err = notifications.NewEmailService(settings.SMTP, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize SMTP, continuing without email")
		}
	} else {
		logger.Info().Msg("SMTP not configured - in-app notifications only")
	}

	recorder := audit.NewRecorder(database, logger)
	sink := notifications.NewSink(database, logger)

	services := api.Services{
		Seats:      seats.NewService(database, recorder, logger),
		Invites:    invites.NewService(database, emailService, recorder, sink, settings.Invites, cfg.BaseURL, logger),
		People:     people.NewService(database, recorder, logger),
		Projects:   projects.NewService(database, recorder, logger),
		Timesheets: timesheets.NewService(database, emailService, recorder, sink, logger),
	}

	routerCfg := api.Config{
		AllowedOrigins:    cfg.CORSOrigins,
		Environment:       cfg.Environment,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitPeriod:   cfg.RateLimitPeriod,
		Version:           Version,
		Commit:            Commit,
		BuildDate:         BuildDate,
	}

	router, err := api.NewRouter(routerCfg, database, services, recorder, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize router")
		return 1
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":" + strconv.Itoa(cfg.Port)
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", listenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Start the housekeeping sweeper (stale invites, audit retention)
	retention := settings.Maintenance.AuditRetentionDays
	if cfg.AuditRetentionDays > 0 {
		retention = cfg.AuditRetentionDays
	}
	sweeper := maintenance.NewSweeper(database, retention, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start maintenance sweeper")
	}
	defer sweeper.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped")
	return 0
}
