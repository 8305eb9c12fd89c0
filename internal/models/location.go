package models

import (
	"time"

	"github.com/google/uuid"

	"shopmap/internal/geo"
)

// Category constants
const (
	CategoryShop  = "shop"
	CategoryBooth = "booth"
)

// Status constants
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusArchived = "archived"
)

// DefaultBoothHours is used when a booth is submitted without operating hours.
const DefaultBoothHours = "Open 24 hours"

// Location is a shop or booth registered on the map.
type Location struct {
	ID              uuid.UUID      `json:"id"`
	Category        string         `json:"category"` // shop, booth
	Name            string         `json:"name"`
	Address         string         `json:"address"`
	OperatingHours  string         `json:"operating_hours"`
	Description     string         `json:"description"`
	Coordinates     geo.Coordinate `json:"coordinates"`
	OwnerID         uuid.UUID      `json:"owner_id"`
	Status          string         `json:"status"` // pending, approved, rejected, archived
	RejectionReason string         `json:"rejection_reason"`
	ArchiveReason   string         `json:"archive_reason"`
	ReviewedBy      *uuid.UUID     `json:"reviewed_by"`
	ReviewedAt      *time.Time     `json:"reviewed_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c string) bool {
	return c == CategoryShop || c == CategoryBooth
}

// IsValidStatus reports whether s is a known status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// IsPending returns true if the location is awaiting review.
func (l *Location) IsPending() bool {
	return l.Status == StatusPending
}

// IsApproved returns true if the location is visible in the directory.
func (l *Location) IsApproved() bool {
	return l.Status == StatusApproved
}

// IsRejected returns true if an admin rejected the location.
func (l *Location) IsRejected() bool {
	return l.Status == StatusRejected
}

// IsArchived returns true if the owner archived the location.
func (l *Location) IsArchived() bool {
	return l.Status == StatusArchived
}

// IsOwnedBy returns true if userID submitted the location.
func (l *Location) IsOwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && l.OwnerID == userID
}

// LocationDraft holds the editable fields of a submission or resubmission.
type LocationDraft struct {
	Category       string         `json:"category" validate:"required,oneof=shop booth"`
	Name           string         `json:"name" validate:"max=200"`
	Address        string         `json:"address" validate:"max=500"`
	OperatingHours string         `json:"operating_hours" validate:"max=200"`
	Description    string         `json:"description" validate:"max=2000"`
	Coordinates    geo.Coordinate `json:"coordinates"`
}
