package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestLocation_StatusHelpers(t *testing.T) {
	tests := []struct {
		status                                  string
		pending, approved, rejected, archived bool
	}{
		{StatusPending, true, false, false, false},
		{StatusApproved, false, true, false, false},
		{StatusRejected, false, false, true, false},
		{StatusArchived, false, false, false, true},
		{"", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			loc := &Location{Status: tt.status}
			if got := loc.IsPending(); got != tt.pending {
				t.Errorf("IsPending() = %v, want %v", got, tt.pending)
			}
			if got := loc.IsApproved(); got != tt.approved {
				t.Errorf("IsApproved() = %v, want %v", got, tt.approved)
			}
			if got := loc.IsRejected(); got != tt.rejected {
				t.Errorf("IsRejected() = %v, want %v", got, tt.rejected)
			}
			if got := loc.IsArchived(); got != tt.archived {
				t.Errorf("IsArchived() = %v, want %v", got, tt.archived)
			}
		})
	}
}

func TestLocation_IsOwnedBy(t *testing.T) {
	owner := uuid.New()
	loc := &Location{OwnerID: owner}

	if !loc.IsOwnedBy(owner) {
		t.Error("IsOwnedBy(owner) = false, want true")
	}
	if loc.IsOwnedBy(uuid.New()) {
		t.Error("IsOwnedBy(stranger) = true, want false")
	}
	if (&Location{}).IsOwnedBy(uuid.Nil) {
		t.Error("IsOwnedBy(uuid.Nil) = true, want false")
	}
}

func TestIsValidCategory(t *testing.T) {
	tests := []struct {
		category string
		expected bool
	}{
		{CategoryShop, true},
		{CategoryBooth, true},
		{"all", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidCategory(tt.category); got != tt.expected {
			t.Errorf("IsValidCategory(%q) = %v, want %v", tt.category, got, tt.expected)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusApproved, StatusRejected, StatusArchived} {
		if !IsValidStatus(s) {
			t.Errorf("IsValidStatus(%q) = false, want true", s)
		}
	}
	if IsValidStatus("deleted") {
		t.Error("IsValidStatus(\"deleted\") = true, want false")
	}
}
