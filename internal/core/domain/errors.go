package domain

import (
	"errors"

	"github.com/samirrijal/ebtfinder/internal/pkg/geospatial"
)

var (
	// ErrInvalidCoordinate marks malformed lat/lon input. Never clamped.
	ErrInvalidCoordinate = geospatial.ErrInvalidCoordinate

	// ErrInvalidQuery marks a search request missing the inputs its mode needs.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUpstreamUnavailable marks a failed or timed-out storage call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound is returned by repositories for unknown IDs.
	ErrNotFound = errors.New("not found")
)
