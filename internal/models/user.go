package models

import (
	"time"

	"github.com/google/uuid"
)

// Role constants
const (
	RoleAnonymous = "anonymous"
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
)

// User represents a user authenticated via OIDC.
type User struct {
	ID        uuid.UUID `json:"id"`
	Sub       string    `json:"sub"` // OIDC subject identifier
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	Role      string    `json:"role"` // owner, admin
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user is an admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Actor returns the identity used for moderation checks. A nil user is anonymous.
func (u *User) Actor() Actor {
	if u == nil || u.ID == uuid.Nil {
		return Anonymous
	}
	role := u.Role
	if role != RoleAdmin {
		role = RoleOwner
	}
	return Actor{ID: u.ID, Role: role}
}

// Actor is the acting identity of a request.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"` // anonymous, owner, admin
}

// Anonymous is the actor of a request without a session.
var Anonymous = Actor{Role: RoleAnonymous}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsAnonymous() bool {
	return a.Role == RoleAnonymous || a.ID == uuid.Nil
}
