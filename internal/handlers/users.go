package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"shopmap/internal/config"
	"shopmap/internal/db"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
)

// UserStore is the user storage the admin pages need.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, role string) error
}

// UserHandler handles user management operations.
type UserHandler struct {
	users UserStore
	cfg   *config.Config
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users UserStore, cfg *config.Config) *UserHandler {
	return &UserHandler{users: users, cfg: cfg}
}

// ListUsers renders the user management page (admin only).
func (h *UserHandler) ListUsers(c fiber.Ctx) error {
	users, err := h.users.ListUsers(c.Context())
	if err != nil {
		return err
	}

	return render(c, h.cfg, "users", fiber.Map{
		"Title": "Users",
		"Users": users,
		"Roles": []string{models.RoleOwner, models.RoleAdmin},
	})
}

// UpdateUserRole updates a user's role (admin only).
func (h *UserHandler) UpdateUserRole(c fiber.Ctx) error {
	currentUser := middleware.GetUser(c)
	if !currentUser.IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "admin access required")
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user ID")
	}

	role := c.FormValue("role")
	if role != models.RoleOwner && role != models.RoleAdmin {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role")
	}

	// Prevent admins from demoting themselves
	if userID == currentUser.ID && role != models.RoleAdmin {
		return fiber.NewError(fiber.StatusBadRequest, "cannot change your own role")
	}

	if err := h.users.UpdateUserRole(c.Context(), userID, role); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	return c.Redirect().To("/admin/users")
}
