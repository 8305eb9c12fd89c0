package handlers

import (
	"github.com/gofiber/fiber/v3"

	"shopmap/internal/config"
	"shopmap/internal/geo"
)

// BrandingData contains site information shared by every template.
type BrandingData struct {
	SiteTitle string
	Geofence  geo.Geofence
	Bounds    geo.Bounds
}

// GetBrandingData returns branding data from config for template rendering.
func GetBrandingData(cfg *config.Config) BrandingData {
	fence := cfg.Geofence()
	return BrandingData{
		SiteTitle: cfg.SiteTitle,
		Geofence:  fence,
		Bounds:    fence.Bounds(),
	}
}

// MergeBranding adds branding data and the current path to a fiber.Map.
func MergeBranding(data fiber.Map, cfg *config.Config, path string) fiber.Map {
	branding := GetBrandingData(cfg)
	data["SiteTitle"] = branding.SiteTitle
	data["Geofence"] = branding.Geofence
	data["Bounds"] = branding.Bounds
	data["CurrentPath"] = path
	return data
}
