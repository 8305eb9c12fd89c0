package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"shopmap/internal/apperr"
	"shopmap/internal/config"
	"shopmap/internal/geo"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
	"shopmap/internal/moderation"
	"shopmap/internal/service"
)

// ProfileHandler handles the owner's own locations.
type ProfileHandler struct {
	svc *service.LocationService
	cfg *config.Config
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc *service.LocationService, cfg *config.Config) *ProfileHandler {
	return &ProfileHandler{svc: svc, cfg: cfg}
}

// locationRow is a location with the actions the viewer may take on it.
type locationRow struct {
	models.Location
	Actions map[string]bool
}

func rows(m *moderation.Machine, actor models.Actor, locs []models.Location) []locationRow {
	out := make([]locationRow, len(locs))
	for i := range locs {
		actions := make(map[string]bool)
		for _, a := range m.Allowed(actor, &locs[i]) {
			actions[string(a)] = true
		}
		out[i] = locationRow{Location: locs[i], Actions: actions}
	}
	return out
}

// MyLocations renders every location the user submitted, in any state.
func (h *ProfileHandler) MyLocations(c fiber.Ctx) error {
	actor := middleware.GetActor(c)

	locs, err := h.svc.ListOwned(c.Context(), actor)
	if err != nil {
		return err
	}

	return render(c, h.cfg, "my_locations", fiber.Map{
		"Title":     "My locations",
		"Locations": rows(h.svc.Machine(), actor, locs),
	})
}

// Archive withdraws one of the user's locations from the form on the page.
func (h *ProfileHandler) Archive(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := h.svc.Archive(c.Context(), middleware.GetActor(c), id, c.FormValue("reason")); err != nil {
		return err
	}
	return c.Redirect().To("/my-locations")
}

// editable loads a location the actor may resubmit.
func (h *ProfileHandler) editable(c fiber.Ctx, id uuid.UUID) (*models.Location, error) {
	actor := middleware.GetActor(c)
	loc, err := h.svc.Get(c.Context(), actor, id)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Machine().Authorize(actor, moderation.ActionResubmit, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (h *ProfileHandler) renderEdit(c fiber.Ctx, loc *models.Location, form models.LocationDraft, formErr string) error {
	return render(c, h.cfg, "edit_location", fiber.Map{
		"Title":    "Edit " + loc.Name,
		"Location": loc,
		"Form":     form,
		"Error":    formErr,
		"BackURL":  h.backURL(c),
	})
}

func (h *ProfileHandler) backURL(c fiber.Ctx) string {
	if middleware.GetUser(c).IsAdmin() {
		return "/admin"
	}
	return "/my-locations"
}

// EditLocation shows the edit form for a location, with the rejection reason
// when there is one. Owners and admins may use it.
func (h *ProfileHandler) EditLocation(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	loc, err := h.editable(c, id)
	if err != nil {
		return err
	}

	form := models.LocationDraft{
		Category:       loc.Category,
		Name:           loc.Name,
		Address:        loc.Address,
		OperatingHours: loc.OperatingHours,
		Description:    loc.Description,
		Coordinates:    loc.Coordinates,
	}
	return h.renderEdit(c, loc, form, "")
}

// Resubmit saves the edit form and sends the location back to review.
// Rejected input re-renders the form with the error.
func (h *ProfileHandler) Resubmit(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	loc, err := h.editable(c, id)
	if err != nil {
		return err
	}

	form := models.LocationDraft{
		Category:       loc.Category,
		Name:           strings.TrimSpace(c.FormValue("name")),
		Address:        strings.TrimSpace(c.FormValue("address")),
		OperatingHours: strings.TrimSpace(c.FormValue("operating_hours")),
		Description:    strings.TrimSpace(c.FormValue("description")),
		Coordinates:    loc.Coordinates,
	}

	coords, err := formCoordinates(c, loc.Coordinates)
	if err == nil {
		form.Coordinates = coords
		_, err = h.svc.Resubmit(c.Context(), middleware.GetActor(c), id, form)
	}
	if err != nil {
		ae := apperr.As(err)
		if ae == nil || ae.HTTPStatus() >= fiber.StatusInternalServerError || ae.HTTPStatus() == fiber.StatusForbidden {
			return err
		}
		c.Status(ae.HTTPStatus())
		return h.renderEdit(c, loc, form, ae.Message())
	}

	return c.Redirect().To(h.backURL(c))
}

// formCoordinates reads lat and lng from the form. Both empty keeps current.
func formCoordinates(c fiber.Ctx, current geo.Coordinate) (geo.Coordinate, error) {
	rawLat := strings.TrimSpace(c.FormValue("lat"))
	rawLng := strings.TrimSpace(c.FormValue("lng"))
	if rawLat == "" && rawLng == "" {
		return current, nil
	}

	lat, latErr := strconv.ParseFloat(rawLat, 64)
	lng, lngErr := strconv.ParseFloat(rawLng, 64)
	coords := geo.Coordinate{Lat: lat, Lng: lng}
	if latErr != nil || lngErr != nil || !coords.Valid() {
		return current, apperr.New(apperr.CodeValidation, "coordinates are not valid")
	}
	return coords, nil
}
