package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shopmap/internal/metrics"
	"shopmap/internal/models"
)

// locationColumns is the standard column list for location queries.
const locationColumns = `id, category, name, address, operating_hours, description, lat, lng,
	owner_id, status, rejection_reason, archive_reason, reviewed_by, reviewed_at, created_at, updated_at`

// scanLocation scans a row into a Location struct.
func scanLocation(row pgx.Row) (*models.Location, error) {
	var loc models.Location
	err := row.Scan(
		&loc.ID,
		&loc.Category,
		&loc.Name,
		&loc.Address,
		&loc.OperatingHours,
		&loc.Description,
		&loc.Coordinates.Lat,
		&loc.Coordinates.Lng,
		&loc.OwnerID,
		&loc.Status,
		&loc.RejectionReason,
		&loc.ArchiveReason,
		&loc.ReviewedBy,
		&loc.ReviewedAt,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// scanLocations scans multiple rows into a slice of Locations.
func scanLocations(rows pgx.Rows) ([]models.Location, error) {
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *loc)
	}

	return locations, rows.Err()
}

// mapWriteError converts constraint violations into ErrConstraint.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23514" || pgErr.Code == "23503") {
		return errors.Join(ErrConstraint, err)
	}
	return err
}

// CreateLocation inserts a new location and fills in its ID.
func (d *DB) CreateLocation(ctx context.Context, loc *models.Location) error {
	query := `
		INSERT INTO locations (category, name, address, operating_hours, description, lat, lng,
			owner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	createdAt := loc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := loc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	err := d.Pool.QueryRow(ctx, query,
		loc.Category,
		loc.Name,
		loc.Address,
		loc.OperatingHours,
		loc.Description,
		loc.Coordinates.Lat,
		loc.Coordinates.Lng,
		loc.OwnerID,
		loc.Status,
		createdAt,
		updatedAt,
	).Scan(&loc.ID)
	if err != nil {
		return mapWriteError(err)
	}

	loc.CreatedAt = createdAt
	loc.UpdatedAt = updatedAt
	return nil
}

// GetLocationByID retrieves a location by its UUID.
func (d *DB) GetLocationByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	return scanLocation(d.Pool.QueryRow(ctx, query, id))
}

// LocationFilter restricts ListLocations. Zero values match everything.
type LocationFilter struct {
	OwnerID  *uuid.UUID
	Statuses []string
}

// ListLocations returns locations matching filter in creation order.
func (d *DB) ListLocations(ctx context.Context, filter LocationFilter) ([]models.Location, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM locations
		WHERE ($1::uuid IS NULL OR owner_id = $1)
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY created_at ASC, id ASC
	`

	statuses := filter.Statuses
	if statuses == nil {
		statuses = []string{}
	}

	rows, err := d.Pool.Query(ctx, query, filter.OwnerID, statuses)
	if err != nil {
		return nil, err
	}
	return scanLocations(rows)
}

// UpdateLocation writes every mutable field of loc. The category, owner and
// creation time are never changed. Last write wins.
func (d *DB) UpdateLocation(ctx context.Context, loc *models.Location) error {
	query := `
		UPDATE locations SET
			name = $2,
			address = $3,
			operating_hours = $4,
			description = $5,
			lat = $6,
			lng = $7,
			status = $8,
			rejection_reason = $9,
			archive_reason = $10,
			reviewed_by = $11,
			reviewed_at = $12,
			updated_at = $13
		WHERE id = $1
	`

	updatedAt := loc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	result, err := d.Pool.Exec(ctx, query,
		loc.ID,
		loc.Name,
		loc.Address,
		loc.OperatingHours,
		loc.Description,
		loc.Coordinates.Lat,
		loc.Coordinates.Lng,
		loc.Status,
		loc.RejectionReason,
		loc.ArchiveReason,
		loc.ReviewedBy,
		loc.ReviewedAt,
		updatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if result.RowsAffected() == 0 {
		return ErrLocationNotFound
	}

	loc.UpdatedAt = updatedAt
	return nil
}

// DeleteLocation removes a location permanently.
func (d *DB) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// CountLocationsByStatus returns the number of locations per category and status.
func (d *DB) CountLocationsByStatus(ctx context.Context) ([]metrics.StatusCount, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT category, status, COUNT(*)
		FROM locations
		GROUP BY category, status
		ORDER BY category, status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []metrics.StatusCount
	for rows.Next() {
		var sc metrics.StatusCount
		if err := rows.Scan(&sc.Category, &sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}

// GetPendingOlderThan returns pending locations submitted or resubmitted
// before now minus age, oldest first.
func (d *DB) GetPendingOlderThan(ctx context.Context, age time.Duration) ([]models.Location, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM locations
		WHERE status = 'pending' AND updated_at < $1
		ORDER BY updated_at ASC
	`

	rows, err := d.Pool.Query(ctx, query, time.Now().Add(-age))
	if err != nil {
		return nil, err
	}
	return scanLocations(rows)
}
