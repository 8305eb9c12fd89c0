package handlers

import (
	"github.com/gofiber/fiber/v3"

	"shopmap/internal/config"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
	"shopmap/internal/service"
)

// ModerationHandler serves the admin dashboard.
type ModerationHandler struct {
	svc *service.LocationService
	cfg *config.Config
}

// NewModerationHandler creates a new moderation handler.
func NewModerationHandler(svc *service.LocationService, cfg *config.Config) *ModerationHandler {
	return &ModerationHandler{svc: svc, cfg: cfg}
}

// StatusCounts is the number of locations in each state.
type StatusCounts struct {
	Pending  int
	Approved int
	Rejected int
	Archived int
	Total    int
}

func countByStatus(locs []models.Location) StatusCounts {
	var counts StatusCounts
	for _, loc := range locs {
		switch loc.Status {
		case models.StatusPending:
			counts.Pending++
		case models.StatusApproved:
			counts.Approved++
		case models.StatusRejected:
			counts.Rejected++
		case models.StatusArchived:
			counts.Archived++
		}
		counts.Total++
	}
	return counts
}

// Index renders every location with per-status counts, pending first.
func (h *ModerationHandler) Index(c fiber.Ctx) error {
	actor := middleware.GetActor(c)

	locs, err := h.svc.ListForActor(c.Context(), actor)
	if err != nil {
		return err
	}

	var pending, others []models.Location
	for _, loc := range locs {
		if loc.IsPending() {
			pending = append(pending, loc)
		} else {
			others = append(others, loc)
		}
	}

	m := h.svc.Machine()
	return render(c, h.cfg, "admin", fiber.Map{
		"Title":   "Moderation",
		"Counts":  countByStatus(locs),
		"Pending": rows(m, actor, pending),
		"Others":  rows(m, actor, others),
	})
}

// Approve publishes a location and returns to the dashboard.
func (h *ModerationHandler) Approve(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := h.svc.Approve(c.Context(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return c.Redirect().To("/admin")
}

// Reject sends a location back to its owner with the reason from the form.
func (h *ModerationHandler) Reject(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := h.svc.Reject(c.Context(), middleware.GetActor(c), id, c.FormValue("reason")); err != nil {
		return err
	}
	return c.Redirect().To("/admin")
}

// Delete permanently removes a location.
func (h *ModerationHandler) Delete(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Context(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return c.Redirect().To("/admin")
}
