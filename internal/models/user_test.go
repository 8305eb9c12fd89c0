package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestUser_IsAdmin(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		expected bool
	}{
		{"admin user", RoleAdmin, true},
		{"owner", RoleOwner, false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{Role: tt.role}
			if got := user.IsAdmin(); got != tt.expected {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUser_Actor(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		user     *User
		expected Actor
	}{
		{"nil user is anonymous", nil, Anonymous},
		{"user without id is anonymous", &User{Role: RoleAdmin}, Anonymous},
		{"admin", &User{ID: id, Role: RoleAdmin}, Actor{ID: id, Role: RoleAdmin}},
		{"owner", &User{ID: id, Role: RoleOwner}, Actor{ID: id, Role: RoleOwner}},
		{"unknown role degrades to owner", &User{ID: id, Role: "user"}, Actor{ID: id, Role: RoleOwner}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.Actor(); got != tt.expected {
				t.Errorf("Actor() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestActor_IsAnonymous(t *testing.T) {
	if !Anonymous.IsAnonymous() {
		t.Error("Anonymous.IsAnonymous() = false, want true")
	}
	if (Actor{ID: uuid.New(), Role: RoleOwner}).IsAnonymous() {
		t.Error("owner IsAnonymous() = true, want false")
	}
}
