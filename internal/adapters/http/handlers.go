package http

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

const maxListParam = 20

// SearchLocationsHandler runs a proximity or exact-address search.
// GET /v1/locations/search?lat=34.05&lon=-118.24&radius=5&category=grocery
// GET /v1/locations/search?city=Fresno&state=CA
func SearchLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseSearchQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		resp, err := deps.Search.Search(c.UserContext(), q)
		if err != nil {
			return errFromService(c, err)
		}
		if resp.Partial {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return c.JSON(resp)
	}
}

// parseSearchQuery reads query parameters. It rejects malformed numbers and
// explicit non-positive radius or limit values; range checks that depend on
// configuration are left to the search service.
func parseSearchQuery(c *fiber.Ctx) (domain.SearchQuery, error) {
	q := domain.SearchQuery{
		Category: domain.Category(strings.ToLower(strings.TrimSpace(c.Query("category")))),
		City:     c.Query("city"),
		State:    c.Query("state"),
		Zip:      c.Query("zip"),
	}

	latRaw, lonRaw := c.Query("lat"), c.Query("lon")
	switch {
	case latRaw != "" && lonRaw != "":
		lat, err := parseFloat("lat", latRaw)
		if err != nil {
			return q, err
		}
		lon, err := parseFloat("lon", lonRaw)
		if err != nil {
			return q, err
		}
		q.Origin = &domain.GeoPoint{Lat: lat, Lon: lon}
	case latRaw != "" || lonRaw != "":
		return q, fmt.Errorf("lat and lon must be given together")
	}

	if raw := c.Query("radius"); raw != "" {
		r, err := parseFloat("radius", raw)
		if err != nil {
			return q, err
		}
		if r <= 0 {
			return q, fmt.Errorf("radius must be positive")
		}
		q.RadiusMiles = r
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("limit must be a positive integer")
		}
		q.ResultLimit = n
	}

	if raw := c.Query("best_effort"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("best_effort must be a boolean")
		}
		q.BestEffort = b
	}

	var err error
	if q.StoreTypes, err = splitList("store_types", c.Query("store_types")); err != nil {
		return q, err
	}
	if q.NamePatterns, err = splitList("name_patterns", c.Query("name_patterns")); err != nil {
		return q, err
	}
	return q, nil
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", name)
	}
	return v, nil
}

func splitList(name, raw string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > maxListParam {
		return nil, fmt.Errorf("%s accepts at most %d values", name, maxListParam)
	}
	return out, nil
}

// GetLocationHandler returns a single location by ID.
func GetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "location id is required")
		}
		loc, err := deps.Locations.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(loc)
	}
}

type clickRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// RecordClickHandler records that a user opened a location from a result list.
// POST /v1/locations/:id/clicks {"lat": 34.05, "lon": -118.24}
func RecordClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req clickRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, "lat and lon are required")
		}

		event, err := deps.Clicks.Record(c.UserContext(), c.Params("id"),
			domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon})
		if err != nil {
			return errFromService(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(event)
	}
}

type categoryInfo struct {
	Name         domain.Category `json:"name"`
	StoreTypes   []string        `json:"store_types,omitempty"`
	NamePatterns []string        `json:"name_patterns,omitempty"`
	Keywords     []string        `json:"keywords,omitempty"`
	Exclude      []string        `json:"exclude,omitempty"`
}

// ListCategoriesHandler returns the category table.
func ListCategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats := deps.Search.Categories()
		out := make([]categoryInfo, 0, len(cats))
		for _, cat := range cats {
			rule, _ := deps.Search.Rule(cat)
			out = append(out, categoryInfo{
				Name:         cat,
				StoreTypes:   rule.StoreTypes,
				NamePatterns: rule.NamePatterns,
				Keywords:     rule.Keywords,
				Exclude:      rule.Exclude,
			})
		}
		return c.JSON(fiber.Map{"categories": out})
	}
}
