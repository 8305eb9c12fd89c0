package handlers

import (
	"github.com/gofiber/fiber/v3"

	"shopmap/internal/apperr"
	"shopmap/internal/config"
	"shopmap/internal/directory"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
	"shopmap/internal/service"
)

// PageHandler serves the public map and the login page.
type PageHandler struct {
	svc *service.LocationService
	cfg *config.Config
}

// NewPageHandler creates a new page handler.
func NewPageHandler(svc *service.LocationService, cfg *config.Config) *PageHandler {
	return &PageHandler{svc: svc, cfg: cfg}
}

// Index renders the map with the approved locations for ?filter=. The list
// under the map works without JavaScript; the map itself follows the live
// stream.
func (h *PageHandler) Index(c fiber.Ctx) error {
	filter, err := directory.ParseFilter(c.Query("filter"))
	if err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "filter must be all, shop or booth")
	}

	view, err := h.svc.Directory(c.Context(), filter)
	if err != nil {
		return err
	}

	return render(c, h.cfg, "index", fiber.Map{
		"Title":      "Map",
		"View":       view,
		"Filters":    []directory.Filter{directory.FilterAll, directory.FilterShop, directory.FilterBooth},
		"Categories": []string{models.CategoryShop, models.CategoryBooth},
		"CanSubmit":  !middleware.GetActor(c).IsAnonymous(),
	})
}

// Login renders the sign-in page.
func (h *PageHandler) Login(c fiber.Ctx) error {
	if middleware.GetUser(c) != nil {
		return c.Redirect().To("/")
	}
	return render(c, h.cfg, "login", fiber.Map{
		"Title":       "Sign in",
		"OIDCEnabled": h.cfg.IsOIDCEnabled(),
	})
}
