package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"shopmap/internal/config"
	"shopmap/internal/db"
	"shopmap/internal/geocode"
	"shopmap/internal/handlers"
	"shopmap/internal/handlers/api"
	"shopmap/internal/live"
	"shopmap/internal/middleware"
	"shopmap/internal/service"
)

// Deps are the collaborators the routes are wired to.
type Deps struct {
	DB       *db.DB
	Service  *service.LocationService
	Sessions *geocode.Sessions
	Hub      *live.Hub
	Admins   *config.YAMLConfig
	Cache    handlers.Pinger // nil without Redis
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	authMiddleware := middleware.NewAuthMiddleware(deps.DB)

	pageHandler := handlers.NewPageHandler(deps.Service, s.Cfg)
	profileHandler := handlers.NewProfileHandler(deps.Service, s.Cfg)
	moderationHandler := handlers.NewModerationHandler(deps.Service, s.Cfg)
	userHandler := handlers.NewUserHandler(deps.DB, s.Cfg)
	probeHandler := handlers.NewProbeHandler(deps.DB, deps.Cache)

	// Probes and metrics
	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Auth routes
	if s.Cfg.IsOIDCEnabled() {
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.DB, deps.Admins)
		if err != nil {
			return err
		}
		s.App.Get("/auth/login", authHandler.Login)
		s.App.Get("/auth/callback", authHandler.Callback)
		s.App.Get("/auth/logout", authHandler.Logout)
	} else if s.Cfg.IsDev() {
		log.Warn().Msg("OIDC is not configured; sign-in is disabled and the map is read-only")
	} else {
		return errors.New("OIDC_ISSUER and OIDC_CLIENT_ID are required outside development")
	}

	// Pages
	s.App.Get("/", authMiddleware.OptionalAuth, pageHandler.Index)
	s.App.Get("/login", authMiddleware.OptionalAuth, pageHandler.Login)
	s.App.Get("/my-locations", authMiddleware.RequireAuth, profileHandler.MyLocations)
	s.App.Post("/my-locations/:id/archive", authMiddleware.RequireAuth, profileHandler.Archive)
	s.App.Get("/my-locations/:id/edit", authMiddleware.RequireAuth, profileHandler.EditLocation)
	s.App.Post("/my-locations/:id/edit", authMiddleware.RequireAuth, profileHandler.Resubmit)

	// Admin pages
	admin := s.App.Group("/admin", authMiddleware.RequireAdmin)
	admin.Get("/", moderationHandler.Index)
	admin.Post("/locations/:id/approve", moderationHandler.Approve)
	admin.Post("/locations/:id/reject", moderationHandler.Reject)
	admin.Post("/locations/:id/delete", moderationHandler.Delete)
	admin.Get("/users", userHandler.ListUsers)
	admin.Post("/users/:id/role", userHandler.UpdateUserRole)

	s.registerAPI(deps, authMiddleware)
	return nil
}

func (s *Server) registerAPI(deps Deps, auth *middleware.AuthMiddleware) {
	locations := api.NewLocationHandler(deps.Service, deps.Sessions)
	moderation := api.NewModerationHandler(deps.Service)
	directory := api.NewDirectoryHandler(deps.Service, s.Cfg.Geofence())
	geocoding := api.NewGeocodeHandler(deps.Sessions)
	stream := api.NewStreamHandler(deps.Hub, s.Done())
	users := api.NewUserHandler(deps.DB)

	r := s.App.Group("/api")

	// Public
	r.Get("/directory", directory.List)
	r.Get("/geofence", directory.Geofence)
	r.Get("/stream", auth.OptionalAuth, stream.Stream)

	// Signed in
	r.Get("/locations", auth.APIRequireAuth, locations.List)
	r.Post("/locations", auth.APIRequireAuth, locations.Create)
	r.Get("/locations/:id", auth.APIRequireAuth, locations.Get)
	r.Put("/locations/:id", auth.APIRequireAuth, locations.Resubmit)
	r.Post("/locations/:id/archive", auth.APIRequireAuth, locations.Archive)
	geocodeRoutes := r.Group("/geocode", auth.APIRequireAuth, s.GeocodeLimiter())
	geocodeRoutes.Post("/pick", geocoding.Pick)
	geocodeRoutes.Post("/manual", geocoding.Manual)
	geocodeRoutes.Get("/status", geocoding.Status)

	// Admin; the service enforces the role
	r.Get("/moderation/pending", auth.APIRequireAuth, moderation.ListPending)
	r.Post("/locations/:id/approve", auth.APIRequireAuth, moderation.Approve)
	r.Post("/locations/:id/reject", auth.APIRequireAuth, moderation.Reject)
	r.Delete("/locations/:id", auth.APIRequireAuth, moderation.Delete)
	r.Get("/users", auth.APIRequireAuth, users.List)
	r.Post("/users/:id/role", auth.APIRequireAuth, users.UpdateRole)
}
