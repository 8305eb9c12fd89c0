package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"shopmap/internal/geo"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env       string `envconfig:"ENV" default:"development"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json, console

	// Server
	ServerAddr string `envconfig:"SERVER_ADDR" default:":3000"`
	BaseURL    string `envconfig:"BASE_URL" default:"http://localhost:3000"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" default:"postgres://localhost:5432/shopmap?sslmode=disable"`

	// Redis backs sessions and the geocode cache. Empty keeps both in memory.
	RedisURL string `envconfig:"REDIS_URL"`

	// OIDC
	OIDCIssuer       string `envconfig:"OIDC_ISSUER"`
	OIDCClientID     string `envconfig:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `envconfig:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `envconfig:"OIDC_REDIRECT_URL" default:"http://localhost:3000/auth/callback"`

	// Session
	SessionSecret string `envconfig:"SESSION_SECRET" default:"change-me-in-production-min-32-chars"` // min 32 chars

	// CORS
	CORSOrigins string `envconfig:"CORS_ORIGINS"` // Comma-separated allowed origins

	// Geofence
	GeofenceRefLat   float64 `envconfig:"GEOFENCE_REF_LAT" default:"13.8197"`
	GeofenceRefLng   float64 `envconfig:"GEOFENCE_REF_LNG" default:"100.5146"`
	GeofenceRadiusKm float64 `envconfig:"GEOFENCE_RADIUS_KM" default:"5"`

	// Geocoding
	GeocodeBaseURL     string        `envconfig:"GEOCODE_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	GeocodeUserAgent   string        `envconfig:"GEOCODE_USER_AGENT" default:"shopmap/1.0"`
	GeocodeLanguage    string        `envconfig:"GEOCODE_LANGUAGE"`
	GeocodeTimeout     time.Duration `envconfig:"GEOCODE_TIMEOUT" default:"10s"`
	GeocodeCacheTTL    time.Duration `envconfig:"GEOCODE_CACHE_TTL" default:"24h"`
	GeocodeSessionIdle time.Duration `envconfig:"GEOCODE_SESSION_IDLE" default:"30m"`
	GeocodeRateMax     int           `envconfig:"GEOCODE_RATE_MAX" default:"30"` // lookups per window per form session
	GeocodeRateWindow  time.Duration `envconfig:"GEOCODE_RATE_WINDOW" default:"1m"`

	// Email
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"shopmap@localhost"`
	SMTPTLS      string `envconfig:"SMTP_TLS" default:"starttls"` // none, starttls, tls

	// Background jobs
	PendingReminderInterval time.Duration `envconfig:"PENDING_REMINDER_INTERVAL" default:"6h"`
	PendingReminderAge      time.Duration `envconfig:"PENDING_REMINDER_AGE" default:"48h"`

	// Site
	SiteTitle string `envconfig:"SITE_TITLE" default:"Shop Map"`

	// YAML config file with the admin list and seed locations.
	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.yaml"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	fence := c.Geofence()
	if !fence.Reference.Valid() {
		return fmt.Errorf("geofence reference %s is out of range", fence.Reference)
	}
	if c.GeofenceRadiusKm <= 0 {
		return fmt.Errorf("GEOFENCE_RADIUS_KM must be positive, got %v", c.GeofenceRadiusKm)
	}
	switch c.SMTPTLS {
	case "none", "starttls", "tls":
	default:
		return fmt.Errorf("SMTP_TLS must be none, starttls or tls, got %q", c.SMTPTLS)
	}
	if !c.IsDev() && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	return nil
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

// IsEmailEnabled returns true if an SMTP host is configured.
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != ""
}

// IsOIDCEnabled returns true if an identity provider is configured.
func (c *Config) IsOIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// Geofence returns the submission geofence.
func (c *Config) Geofence() geo.Geofence {
	return geo.Geofence{
		Reference:   geo.Coordinate{Lat: c.GeofenceRefLat, Lng: c.GeofenceRefLng},
		MaxRadiusKm: c.GeofenceRadiusKm,
	}
}
