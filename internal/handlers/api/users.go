package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"shopmap/internal/apperr"
	"shopmap/internal/db"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
	"shopmap/internal/validation"
)

// UserStore is the user storage the handler needs.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, role string) error
}

// UserHandler handles user management operations via JSON API.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new API user handler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// List returns all users (admin only).
func (h *UserHandler) List(c fiber.Ctx) error {
	if !middleware.GetActor(c).IsAdmin() {
		return Error(c, fiber.NewError(fiber.StatusForbidden, "admin access required"))
	}

	users, err := h.store.ListUsers(c.Context())
	if err != nil {
		return Error(c, apperr.Wrap(apperr.CodePersistence, err, "failed to fetch users"))
	}
	return jsonSuccess(c, users)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner admin"`
}

// UpdateRole promotes or demotes a user (admin only).
func (h *UserHandler) UpdateRole(c fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if !actor.IsAdmin() {
		return Error(c, fiber.NewError(fiber.StatusForbidden, "admin access required"))
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Error(c, apperr.Wrap(apperr.CodeValidation, err, "invalid user id"))
	}

	var req roleRequest
	if err := validation.DecodeJSON(c.Body(), &req); err != nil {
		return Error(c, err)
	}

	if userID == actor.ID && req.Role != models.RoleAdmin {
		return Error(c, apperr.New(apperr.CodeValidation, "cannot change your own role"))
	}

	if err := h.store.UpdateUserRole(c.Context(), userID, req.Role); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return Error(c, apperr.Wrap(apperr.CodeNotFound, err, "user not found"))
		}
		return Error(c, apperr.Wrap(apperr.CodePersistence, err, "failed to update role"))
	}

	return jsonSuccess(c, fiber.Map{
		"message": "role updated successfully",
	})
}
