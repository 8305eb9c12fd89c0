package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopmap/internal/geo"
	"shopmap/internal/models"
	"shopmap/migrations"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// RunMigrations runs all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}

// seedOwnerSub owns every seeded location.
const seedOwnerSub = "dev-seed"

// DefaultSeedLocations are inserted in development when no seed list is configured.
var DefaultSeedLocations = []models.Location{
	{
		Category:       models.CategoryShop,
		Name:           "Central Library Cafe",
		Address:        "1518 Pracharat 1 Rd, Wong Sawang, Bang Sue, Bangkok 10800",
		OperatingHours: "07:30-19:00",
		Description:    "Coffee and snacks next to the library",
		Status:         models.StatusApproved,
	},
	{
		Category:       models.CategoryBooth,
		Name:           "Gate 1 Fruit Booth",
		Address:        "Pracharat 1 Rd, Bang Sue, Bangkok",
		OperatingHours: models.DefaultBoothHours,
		Description:    "Fresh cut fruit",
		Status:         models.StatusApproved,
	},
	{
		Category:       models.CategoryShop,
		Name:           "Print & Copy",
		Address:        "Soi Pracharat 1/44, Bang Sue, Bangkok",
		OperatingHours: "09:00-17:00",
		Status:         models.StatusPending,
	},
}

// SeedDevLocations inserts sample locations for development. Skips names that
// already exist. Locations without coordinates are placed around near.
func (d *DB) SeedDevLocations(ctx context.Context, locations []models.Location, near geo.Coordinate) error {
	owner := &models.User{Sub: seedOwnerSub, Name: "Seed Data", Role: models.RoleOwner}
	if err := d.UpsertUser(ctx, owner); err != nil {
		return fmt.Errorf("failed to create seed owner: %w", err)
	}

	query := `
		INSERT INTO locations (category, name, address, operating_hours, description, lat, lng, owner_id, status)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::text,
			$6::double precision, $7::double precision, $8::uuid, $9::text
		WHERE NOT EXISTS (SELECT 1 FROM locations WHERE name = $2::text)
	`

	for i, loc := range locations {
		if loc.Coordinates.Lat == 0 && loc.Coordinates.Lng == 0 {
			// Spread placements so markers do not overlap.
			loc.Coordinates = geo.Destination(near, float64(i)*67, 0.3+0.2*float64(i))
		}
		status := loc.Status
		if status != models.StatusApproved {
			status = models.StatusPending
		}
		if _, err := d.Pool.Exec(ctx, query,
			loc.Category,
			loc.Name,
			loc.Address,
			loc.OperatingHours,
			loc.Description,
			loc.Coordinates.Lat,
			loc.Coordinates.Lng,
			owner.ID,
			status,
		); err != nil {
			return fmt.Errorf("failed to seed location %s: %w", loc.Name, err)
		}
	}

	return nil
}
