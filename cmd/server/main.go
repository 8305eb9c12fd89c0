package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"shopmap/internal/config"
	"shopmap/internal/db"
	"shopmap/internal/email"
	"shopmap/internal/geo"
	"shopmap/internal/geocode"
	"shopmap/internal/jobs"
	"shopmap/internal/live"
	"shopmap/internal/logger"
	"shopmap/internal/metrics"
	"shopmap/internal/models"
	"shopmap/internal/moderation"
	"shopmap/internal/server"
	"shopmap/internal/service"
)

const (
	shutdownTimeout  = 10 * time.Second
	listenRetry      = 5 * time.Second
	sessionSweepTick = time.Minute
)

// redisPinger adapts a redis client to the readiness probe.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Setup(logger.Options{
		ServiceName: "shopmap",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	yamlCfg, err := config.LoadYAMLConfig(cfg.ConfigFile)
	if err != nil {
		return err
	}

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Info().Msg("migrations completed successfully")

	if cfg.IsDev() {
		if err := database.SeedDevLocations(ctx, seedLocations(yamlCfg), cfg.Geofence().Reference); err != nil {
			log.Warn().Err(err).Msg("failed to seed development data")
		}
	}

	metrics.Init(database)

	// Redis backs the geocode cache; sessions connect separately in server.New.
	var redisClient *redis.Client
	deps := server.Deps{DB: database, Admins: yamlCfg}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		deps.Cache = redisPinger{client: redisClient}
	}

	nominatim := geocode.NewNominatimClient(
		geocode.WithBaseURL(cfg.GeocodeBaseURL),
		geocode.WithUserAgent(cfg.GeocodeUserAgent),
		geocode.WithLanguage(cfg.GeocodeLanguage),
	)
	var lookup geocode.Lookup = nominatim
	if redisClient != nil {
		lookup = geocode.NewCachedLookup(nominatim, redisClient, cfg.GeocodeCacheTTL)
	}
	deps.Sessions = geocode.NewSessions(lookup, cfg.GeocodeTimeout, cfg.GeocodeSessionIdle)

	notifier := email.NewNotifier(cfg, database)
	machine := moderation.New(cfg.Geofence())
	deps.Service = service.New(database, machine, notifier)
	deps.Hub = live.NewHub(database)

	srv := server.New(cfg)
	if err := srv.RegisterRoutes(ctx, deps); err != nil {
		return err
	}

	reminder := jobs.NewPendingReminder(database, notifier, cfg.PendingReminderInterval, cfg.PendingReminderAge)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(func() error {
		deps.Hub.Follow(gctx, database, listenRetry)
		return nil
	})
	g.Go(func() error {
		deps.Sessions.Run(gctx, sessionSweepTick)
		return nil
	})
	g.Go(func() error {
		reminder.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// seedLocations converts the YAML seed list, falling back to the built-in
// samples.
func seedLocations(yamlCfg *config.YAMLConfig) []models.Location {
	if yamlCfg == nil || len(yamlCfg.Seed) == 0 {
		return db.DefaultSeedLocations
	}

	locs := make([]models.Location, 0, len(yamlCfg.Seed))
	for _, s := range yamlCfg.Seed {
		locs = append(locs, models.Location{
			Category:       s.Category,
			Name:           s.Name,
			Address:        s.Address,
			OperatingHours: s.OperatingHours,
			Description:    s.Description,
			Coordinates:    geo.Coordinate{Lat: s.Lat, Lng: s.Lng},
			Status:         s.Status,
		})
	}
	return locs
}
