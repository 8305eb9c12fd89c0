// Package handlers serves the HTML pages and the OIDC login flow.
package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"shopmap/internal/apperr"
	"shopmap/internal/config"
	"shopmap/internal/middleware"
)

// render adds the signed-in user and site branding to data and renders view.
func render(c fiber.Ctx, cfg *config.Config, view string, data fiber.Map) error {
	data["User"] = middleware.GetUser(c)
	return c.Render(view, MergeBranding(data, cfg, c.Path()))
}

func parseID(c fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.CodeValidation, err, "invalid id")
	}
	return id, nil
}
