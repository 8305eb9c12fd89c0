package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"shopmap/internal/apperr"
	"shopmap/internal/geo"
	"shopmap/internal/geocode"
	"shopmap/internal/validation"
)

// GeocodeHandler drives the address field of the caller's submission form.
type GeocodeHandler struct {
	sessions *geocode.Sessions
}

// NewGeocodeHandler creates a new geocode handler.
func NewGeocodeHandler(sessions *geocode.Sessions) *GeocodeHandler {
	return &GeocodeHandler{sessions: sessions}
}

type pickRequest struct {
	Coordinates geo.Coordinate `json:"coordinates"`
}

type manualRequest struct {
	Address string `json:"address" validate:"required,max=500"`
}

// notice is attached when the lookup failed. The form stays usable.
type notice struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func respondSnapshot(c fiber.Ctx, snap geocode.Snapshot) error {
	data := fiber.Map{"resolver": snap}
	if snap.State == geocode.StateFailed {
		data["notice"] = notice{
			Code:    apperr.CodeGeocodeUnavailable,
			Message: apperr.MetadataFor(apperr.CodeGeocodeUnavailable).PublicMessage,
		}
	}
	return jsonSuccess(c, data)
}

// Pick resolves the address of a clicked map point. A newer pick or manual
// address from the same form wins over this one.
func (h *GeocodeHandler) Pick(c fiber.Ctx) error {
	var req pickRequest
	if err := validation.DecodeJSON(c.Body(), &req); err != nil {
		return Error(c, err)
	}
	if !req.Coordinates.Valid() {
		return Error(c, apperr.New(apperr.CodeValidation, "coordinates are out of range"))
	}

	resolver := h.sessions.Get(formSessionID(c))
	return respondSnapshot(c, resolver.Pick(c.Context(), req.Coordinates))
}

// Manual records a typed address, discarding any lookup still in flight.
func (h *GeocodeHandler) Manual(c fiber.Ctx) error {
	var req manualRequest
	if err := validation.DecodeJSON(c.Body(), &req); err != nil {
		return Error(c, err)
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return Error(c, apperr.New(apperr.CodeValidation, "address is required"))
	}

	resolver := h.sessions.Get(formSessionID(c))
	return respondSnapshot(c, resolver.SetManual(address))
}

// Status reports the form's resolver state and whether it may be submitted.
func (h *GeocodeHandler) Status(c fiber.Ctx) error {
	resolver, ok := h.sessions.Peek(formSessionID(c))
	if !ok {
		return jsonSuccess(c, fiber.Map{
			"resolver":   geocode.Snapshot{State: geocode.StateIdle},
			"can_submit": true,
		})
	}
	return jsonSuccess(c, fiber.Map{
		"resolver":   resolver.Snapshot(),
		"can_submit": resolver.CanSubmit(),
	})
}
