package server

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/encryptcookie"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/gofiber/fiber/v3/middleware/static"
	redisstore "github.com/gofiber/storage/redis/v3"
	"github.com/gofiber/template/html/v3"
	"github.com/rs/zerolog/log"

	"shopmap/internal/apperr"
	"shopmap/internal/config"
	"shopmap/internal/handlers/api"
)

const sessionIdleTimeout = 24 * time.Hour

// Server wraps the Fiber app and configuration.
type Server struct {
	App *fiber.App
	Cfg *config.Config

	// done is closed on shutdown so open event streams end.
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a new server with middleware configured.
func New(cfg *config.Config) *Server {
	// Setup template engine
	engine := html.New("./views", ".html")
	engine.Reload(cfg.IsDev())

	app := fiber.New(fiber.Config{
		AppName:      cfg.SiteTitle,
		Views:        engine,
		ViewsLayout:  "layouts/main",
		ErrorHandler: errorHandler(cfg),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// CORS middleware
	corsOrigins := cfg.BaseURL
	if cfg.CORSOrigins != "" {
		corsOrigins = cfg.CORSOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(corsOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Cookie encryption middleware
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key: deriveEncryptionKey(cfg.SessionSecret),
	}))

	// Session middleware
	sessionMiddleware, _ := session.NewWithStore(session.Config{
		Storage:        sessionStorage(cfg),
		IdleTimeout:    sessionIdleTimeout,
		CookieSecure:   !cfg.IsDev(),
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	app.Use(sessionMiddleware)

	// Static files
	app.Get("/static/*", static.New("./static"))

	return &Server{
		App:  app,
		Cfg:  cfg,
		done: make(chan struct{}),
	}
}

// GeocodeLimiter caps address lookups per form session, falling back to the
// client IP before the session cookie is set. Every lookup may reach the public
// geocoder, which only tolerates a low request rate.
func (s *Server) GeocodeLimiter() fiber.Handler {
	limit := s.Cfg.GeocodeRateMax
	if limit <= 0 {
		limit = 30
	}
	window := s.Cfg.GeocodeRateWindow
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			// A fresh session has no cookie yet, so its ID changes per request.
			if sess := session.FromContext(c); sess != nil && !sess.Fresh() {
				return "geocode:" + sess.ID()
			}
			return "geocode:" + c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			log.Warn().Str("ip", c.IP()).Msg("geocode rate limit reached")
			return api.Error(c, apperr.New(apperr.CodeRateLimited, "too many address lookups, please wait a moment"))
		},
		SkipFailedRequests:     false,
		SkipSuccessfulRequests: false,
	})
}

// sessionStorage keeps sessions in Redis when configured so they survive
// restarts and are shared between replicas. nil selects Fiber's in-memory
// store.
func sessionStorage(cfg *config.Config) fiber.Storage {
	if cfg.RedisURL == "" {
		return nil
	}
	log.Info().Msg("sessions stored in redis")
	return redisstore.New(redisstore.Config{
		URL:   cfg.RedisURL,
		Reset: false,
	})
}

// errorHandler answers /api requests with the JSON error envelope and
// everything else with the error page.
func errorHandler(cfg *config.Config) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return api.Error(c, err)
		}

		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if ae := apperr.As(err); ae != nil {
			code = ae.HTTPStatus()
			message = ae.Message()
			if code >= fiber.StatusInternalServerError || message == "" {
				message = apperr.MetadataFor(ae.Code()).PublicMessage
			}
		} else if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Int("status", code).Msg("request failed")
		}

		return c.Status(code).Render("error", fiber.Map{
			"Title":     "Error",
			"Status":    code,
			"Message":   message,
			"SiteTitle": cfg.SiteTitle,
		})
	}
}

// Done is closed when the server starts shutting down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Start starts the server on the configured address.
func (s *Server) Start() error {
	log.Info().Str("addr", s.Cfg.ServerAddr).Msg("starting server")
	return s.App.Listen(s.Cfg.ServerAddr, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}

// Shutdown ends open event streams and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.App.ShutdownWithContext(ctx)
}

// deriveEncryptionKey derives a 32-byte encryption key from the session secret.
func deriveEncryptionKey(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(hash[:])
}
