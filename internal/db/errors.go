package db

import "errors"

// Domain-level database error sentinels.
var (
	// Location errors
	ErrLocationNotFound = errors.New("location not found")
	ErrConstraint       = errors.New("location violates a table constraint")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)
