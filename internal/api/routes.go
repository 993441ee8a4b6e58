// Package api provides the HTTP API for the Crewdeck server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/ironbeam/crewdeck/internal/api/handlers"
	"github.com/ironbeam/crewdeck/internal/api/middleware"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/config"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/invites"
	"github.com/ironbeam/crewdeck/internal/metrics"
	"github.com/ironbeam/crewdeck/internal/people"
	"github.com/ironbeam/crewdeck/internal/projects"
	"github.com/ironbeam/crewdeck/internal/seats"
	"github.com/ironbeam/crewdeck/internal/timesheets"
	"github.com/rs/zerolog"
)

// Config holds configuration for the API router.
type Config struct {
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// Environment gates CORS strictness.
	Environment config.Environment
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:    []string{},
		Environment:       config.EnvDevelopment,
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Services bundles the domain services the API exposes.
type Services struct {
	Seats      *seats.Service
	Invites    *invites.Service
	People     *people.Service
	Projects   *projects.Service
	Timesheets *timesheets.Service
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
	db     *db.DB
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(
	cfg Config,
	database *db.DB,
	services Services,
	recorder *audit.Recorder,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
		db:     database,
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))
	r.Engine.Use(metrics.Middleware())

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Health check endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	// Prometheus metrics endpoint (no auth required)
	r.Engine.GET("/metrics", metrics.Handler())

	// Version endpoint (no auth required)
	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate)
	versionHandler.RegisterPublicRoutes(r.Engine)

	// API v1 routes (bearer API key required)
	validator := auth.NewAPIKeyValidator(database, logger)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.APIKeyAuth(validator, logger))

	rbac := auth.NewRBAC(database)

	orgHandler := handlers.NewOrganizationHandler(database, services.Seats, rbac, recorder, logger)
	orgHandler.RegisterRoutes(apiV1)

	seatHandler := handlers.NewSeatHandler(services.Seats, rbac, logger)
	seatHandler.RegisterRoutes(apiV1)

	inviteHandler := handlers.NewInviteHandler(services.Invites, rbac, logger)
	inviteHandler.RegisterRoutes(apiV1)

	personHandler := handlers.NewPersonHandler(services.People, rbac, logger)
	personHandler.RegisterRoutes(apiV1)

	projectHandler := handlers.NewProjectHandler(services.Projects, rbac, logger)
	projectHandler.RegisterRoutes(apiV1)

	timesheetHandler := handlers.NewTimesheetHandler(services.Timesheets, rbac, logger)
	timesheetHandler.RegisterRoutes(apiV1)

	auditHandler := handlers.NewAuditLogHandler(database, rbac, logger)
	auditHandler.RegisterRoutes(apiV1)

	notificationHandler := handlers.NewNotificationHandler(database, logger)
	notificationHandler.RegisterRoutes(apiV1)

	return r, nil
}
