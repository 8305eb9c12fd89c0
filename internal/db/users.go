package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"shopmap/internal/models"
)

const userColumns = `id, sub, email, name, picture, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Sub,
		&user.Email,
		&user.Name,
		&user.Picture,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates or updates a user based on their OIDC subject. New users
// get the owner role unless user.Role is set. An empty role keeps the stored one.
func (d *DB) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (sub, email, name, picture, role)
		VALUES ($1, $2, $3, $4, COALESCE($5, 'owner'))
		ON CONFLICT (sub) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			role = COALESCE($5, users.role),
			updated_at = NOW()
		RETURNING id, role, created_at, updated_at
	`

	return d.Pool.QueryRow(ctx, query,
		user.Sub,
		user.Email,
		user.Name,
		user.Picture,
		nullIfEmpty(user.Role),
	).Scan(&user.ID, &user.Role, &user.CreatedAt, &user.UpdatedAt)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetUserBySub retrieves a user by their OIDC subject identifier.
func (d *DB) GetUserBySub(ctx context.Context, sub string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE sub = $1`
	return scanUser(d.Pool.QueryRow(ctx, query, sub))
}

// GetUserByID retrieves a user by their UUID.
func (d *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(d.Pool.QueryRow(ctx, query, id))
}

// UpdateUserRole updates a user's role (admin only).
func (d *DB) UpdateUserRole(ctx context.Context, userID uuid.UUID, role string) error {
	result, err := d.Pool.Exec(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers returns all users, admins first.
func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY role = 'admin' DESC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// GetAdminEmails returns the email addresses of all admins.
func (d *DB) GetAdminEmails(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `SELECT email FROM users WHERE role = 'admin' AND email <> '' ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
