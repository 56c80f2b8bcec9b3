package api

import (
	"github.com/gorilla/mux"

	"github.com/fieldops/nfotrack/internal/auth"
	"github.com/fieldops/nfotrack/internal/config"
	"github.com/fieldops/nfotrack/internal/fleet"
	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository"
)

// Deps bundles the services the router wires into handlers. The routing
// estimator may be nil when no routing endpoint is configured; the ETA
// endpoint then answers 501.
type Deps struct {
	Verifier     *auth.Verifier
	Reconciler   *presence.Reconciler
	Viewer       *fleet.Viewer
	Sites        *presence.SiteIndex
	PresenceRepo repository.PresenceRepo
	Router       RouteEstimator
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(deps.Verifier, deps.Reconciler, cfg.JWTSecret, cfg.TokenDuration)
	presenceHandler := NewPresenceHandler(deps.Reconciler)
	fleetHandler := NewFleetHandler(deps.Viewer, deps.Sites, deps.PresenceRepo, deps.Router)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/login", authHandler.Login).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	apiV1.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	// Presence endpoints (field engineers)
	apiV1.HandleFunc("/presence/heartbeat", presenceHandler.Heartbeat).Methods("POST")
	apiV1.HandleFunc("/presence/location", presenceHandler.Location).Methods("POST")

	// Fleet endpoints (managers only)
	fleetV1 := apiV1.PathPrefix("/fleet").Subrouter()
	fleetV1.Use(RequireRole(models.RoleManager))
	fleetV1.HandleFunc("", fleetHandler.List).Methods("GET")
	fleetV1.HandleFunc("/eta", fleetHandler.ETA).Methods("POST")

	return r
}
