package api

import (
	"github.com/gofiber/fiber/v3"

	"shopmap/internal/apperr"
	"shopmap/internal/directory"
	"shopmap/internal/geo"
	"shopmap/internal/service"
)

// DirectoryHandler serves the public map data.
type DirectoryHandler struct {
	svc   *service.LocationService
	fence geo.Geofence
}

// NewDirectoryHandler creates a new directory handler.
func NewDirectoryHandler(svc *service.LocationService, fence geo.Geofence) *DirectoryHandler {
	return &DirectoryHandler{svc: svc, fence: fence}
}

// List returns approved locations matching ?filter=all|shop|booth with
// per-category counts.
func (h *DirectoryHandler) List(c fiber.Ctx) error {
	filter, err := directory.ParseFilter(c.Query("filter"))
	if err != nil {
		return Error(c, apperr.Wrap(apperr.CodeValidation, err, "filter must be all, shop or booth"))
	}

	view, err := h.svc.Directory(c.Context(), filter)
	if err != nil {
		return Error(c, err)
	}
	return jsonSuccess(c, view)
}

// Geofence describes the permitted submission area.
func (h *DirectoryHandler) Geofence(c fiber.Ctx) error {
	return jsonSuccess(c, fiber.Map{
		"reference":     h.fence.Reference,
		"max_radius_km": h.fence.MaxRadiusKm,
		"bounds":        h.fence.Bounds(),
	})
}
