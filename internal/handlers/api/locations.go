package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"

	"shopmap/internal/apperr"
	"shopmap/internal/geo"
	"shopmap/internal/geocode"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
	"shopmap/internal/moderation"
	"shopmap/internal/service"
	"shopmap/internal/validation"
)

// LocationHandler handles submission and owner actions via JSON API.
type LocationHandler struct {
	svc      *service.LocationService
	sessions *geocode.Sessions
}

// NewLocationHandler creates a new API location handler. sessions may be nil
// when address lookup is disabled.
func NewLocationHandler(svc *service.LocationService, sessions *geocode.Sessions) *LocationHandler {
	return &LocationHandler{svc: svc, sessions: sessions}
}

// locationResponse adds the caller's available actions to a location.
type locationResponse struct {
	models.Location
	Actions []moderation.Action `json:"actions"`
}

func (h *LocationHandler) respond(actor models.Actor, loc *models.Location) locationResponse {
	actions := h.svc.Machine().Allowed(actor, loc)
	if actions == nil {
		actions = []moderation.Action{}
	}
	return locationResponse{Location: *loc, Actions: actions}
}

// resubmitRequest is a draft whose category may be omitted.
type resubmitRequest struct {
	Category       string         `json:"category" validate:"omitempty,oneof=shop booth"`
	Name           string         `json:"name" validate:"max=200"`
	Address        string         `json:"address" validate:"max=500"`
	OperatingHours string         `json:"operating_hours" validate:"max=200"`
	Description    string         `json:"description" validate:"max=2000"`
	Coordinates    geo.Coordinate `json:"coordinates"`
}

func (r resubmitRequest) draft() models.LocationDraft {
	return models.LocationDraft(r)
}

// reasonRequest carries a reject or archive reason.
type reasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// formSessionID keys the address resolver of the caller's form.
func formSessionID(c fiber.Ctx) string {
	if sess := session.FromContext(c); sess != nil {
		return sess.ID()
	}
	return ""
}

// resolvedAddress refuses to submit while a lookup is in flight and fills an
// empty address from the resolver. A looked-up address is only used for the
// coordinates it was resolved for; a typed one applies to any coordinates.
func (h *LocationHandler) resolvedAddress(c fiber.Ctx, address string, coords geo.Coordinate) (string, error) {
	if h.sessions == nil {
		return address, nil
	}
	resolver, ok := h.sessions.Peek(formSessionID(c))
	if !ok {
		return address, nil
	}
	if !resolver.CanSubmit() {
		return "", apperr.Wrap(apperr.CodeValidation, geocode.ErrLookupInFlight, "address lookup is still in progress")
	}
	if address != "" {
		return address, nil
	}

	snap := resolver.Snapshot()
	if snap.State != geocode.StateResolved {
		return "", nil
	}
	if snap.Manual || (snap.Coordinates != nil && *snap.Coordinates == coords) {
		return snap.Address, nil
	}
	return "", nil
}

func (h *LocationHandler) forgetForm(c fiber.Ctx) {
	if h.sessions != nil {
		h.sessions.Forget(formSessionID(c))
	}
}

func parseID(c fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.CodeValidation, err, "invalid location id")
	}
	return id, nil
}

// List returns every location for admins and the caller's own for owners.
func (h *LocationHandler) List(c fiber.Ctx) error {
	actor := middleware.GetActor(c)

	locs, err := h.svc.ListForActor(c.Context(), actor)
	if err != nil {
		return Error(c, err)
	}

	resp := make([]locationResponse, len(locs))
	for i := range locs {
		resp[i] = h.respond(actor, &locs[i])
	}
	return jsonSuccess(c, resp)
}

// Create submits a new location.
func (h *LocationHandler) Create(c fiber.Ctx) error {
	actor := middleware.GetActor(c)

	var draft models.LocationDraft
	if err := validation.DecodeJSON(c.Body(), &draft); err != nil {
		return Error(c, err)
	}

	address, err := h.resolvedAddress(c, draft.Address, draft.Coordinates)
	if err != nil {
		return Error(c, err)
	}
	draft.Address = address

	loc, err := h.svc.Submit(c.Context(), actor, draft)
	if err != nil {
		return Error(c, err)
	}
	h.forgetForm(c)

	return jsonCreated(c, h.respond(actor, loc))
}

// Get returns one location the caller may see.
func (h *LocationHandler) Get(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, err)
	}

	actor := middleware.GetActor(c)
	loc, err := h.svc.Get(c.Context(), actor, id)
	if err != nil {
		return Error(c, err)
	}
	return jsonSuccess(c, h.respond(actor, loc))
}

// Resubmit edits a location and sends it back to review.
func (h *LocationHandler) Resubmit(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, err)
	}

	var req resubmitRequest
	if err := validation.DecodeJSON(c.Body(), &req); err != nil {
		return Error(c, err)
	}

	address, err := h.resolvedAddress(c, req.Address, req.Coordinates)
	if err != nil {
		return Error(c, err)
	}
	req.Address = address

	actor := middleware.GetActor(c)
	loc, err := h.svc.Resubmit(c.Context(), actor, id, req.draft())
	if err != nil {
		return Error(c, err)
	}
	h.forgetForm(c)

	return jsonSuccess(c, h.respond(actor, loc))
}

// Archive withdraws the caller's location.
func (h *LocationHandler) Archive(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, err)
	}

	var req reasonRequest
	if err := validation.DecodeJSON(c.Body(), &req); err != nil {
		return Error(c, err)
	}

	actor := middleware.GetActor(c)
	loc, err := h.svc.Archive(c.Context(), actor, id, req.Reason)
	if err != nil {
		return Error(c, err)
	}
	return jsonSuccess(c, h.respond(actor, loc))
}
