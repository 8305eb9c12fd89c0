// Package directory projects stored locations into the public map view.
package directory

import (
	"fmt"
	"strings"

	"shopmap/internal/models"
)

// Filter selects which categories the map shows.
type Filter string

const (
	FilterAll   Filter = "all"
	FilterShop  Filter = Filter(models.CategoryShop)
	FilterBooth Filter = Filter(models.CategoryBooth)
)

// ParseFilter accepts "all", "shop" or "booth". An empty value means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterShop, FilterBooth:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Visible returns the approved locations matching filter, in input order.
func Visible(all []models.Location, filter Filter) []models.Location {
	out := make([]models.Location, 0, len(all))
	for _, loc := range all {
		if !loc.IsApproved() {
			continue
		}
		if filter != FilterAll && loc.Category != string(filter) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// Counts holds the number of approved locations per category.
type Counts struct {
	All   int `json:"all"`
	Shop  int `json:"shop"`
	Booth int `json:"booth"`
}

// CountByCategory counts approved locations for the filter button labels.
func CountByCategory(all []models.Location) Counts {
	var c Counts
	for _, loc := range all {
		if !loc.IsApproved() {
			continue
		}
		c.All++
		switch loc.Category {
		case models.CategoryShop:
			c.Shop++
		case models.CategoryBooth:
			c.Booth++
		}
	}
	return c
}

// View is the directory as rendered by the map page.
type View struct {
	Filter    Filter            `json:"filter"`
	Locations []models.Location `json:"locations"`
	Counts    Counts            `json:"counts"`
}

// Project builds the view for one snapshot of locations.
func Project(all []models.Location, filter Filter) View {
	return View{
		Filter:    filter,
		Locations: Visible(all, filter),
		Counts:    CountByCategory(all),
	}
}
