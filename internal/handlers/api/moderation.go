package api

import (
	"github.com/gofiber/fiber/v3"

	"shopmap/internal/middleware"
	"shopmap/internal/models"
	"shopmap/internal/service"
	"shopmap/internal/validation"
)

// ModerationHandler handles admin review via JSON API.
type ModerationHandler struct {
	svc *service.LocationService
}

// NewModerationHandler creates a new API moderation handler.
func NewModerationHandler(svc *service.LocationService) *ModerationHandler {
	return &ModerationHandler{svc: svc}
}

// ListPending returns the locations awaiting review, oldest first.
func (h *ModerationHandler) ListPending(c fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if !actor.IsAdmin() {
		return Error(c, fiber.NewError(fiber.StatusForbidden, "admin access required"))
	}

	all, err := h.svc.ListForActor(c.Context(), actor)
	if err != nil {
		return Error(c, err)
	}

	pending := []models.Location{}
	for _, loc := range all {
		if loc.IsPending() {
			pending = append(pending, loc)
		}
	}
	return jsonSuccess(c, pending)
}

// Approve publishes a location.
func (h *ModerationHandler) Approve(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, err)
	}

	loc, err := h.svc.Approve(c.Context(), middleware.GetActor(c), id)
	if err != nil {
		return Error(c, err)
	}
	return jsonSuccess(c, loc)
}

// Reject returns a location to its owner. The reason is required.
func (h *ModerationHandler) Reject(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, err)
	}

	var req reasonRequest
	if err := validation.DecodeJSON(c.Body(), &req); err != nil {
		return Error(c, err)
	}

	loc, err := h.svc.Reject(c.Context(), middleware.GetActor(c), id, req.Reason)
	if err != nil {
		return Error(c, err)
	}
	return jsonSuccess(c, loc)
}

// Delete permanently removes a location.
func (h *ModerationHandler) Delete(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, err)
	}

	if err := h.svc.Delete(c.Context(), middleware.GetActor(c), id); err != nil {
		return Error(c, err)
	}
	return jsonSuccess(c, fiber.Map{
		"message": "location deleted",
		"id":      id,
	})
}
