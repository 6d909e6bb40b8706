package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/ports"
	"github.com/samirrijal/ebtfinder/internal/pkg/telemetry"
)

// LocationService handles single-location lookups and bulk imports.
type LocationService struct {
	locations ports.LocationRepository
	cache     ports.CacheService
}

// NewLocationService creates a new LocationService.
func NewLocationService(locations ports.LocationRepository, cache ports.CacheService) *LocationService {
	return &LocationService{locations: locations, cache: cache}
}

// GetByID returns a single location.
func (s *LocationService) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: location id is required", domain.ErrInvalidQuery)
	}

	cacheKey := "locations:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var loc domain.Location
			if err := json.Unmarshal(data, &loc); err == nil {
				return &loc, nil
			}
		}
	}

	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(loc); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600) // 10 min for single location
		}
	}

	return loc, nil
}

// ImportResult counts what happened to one import batch.
type ImportResult struct {
	Upserted   int
	Skipped    int
	Unlocated  int
	SkippedIDs []string
}

// Import normalizes and upserts a batch of locations. Records without an
// ID or name are skipped; records with unusable coordinates are kept with
// Coordinates cleared, so they stay reachable through exact address search.
func (s *LocationService) Import(ctx context.Context, batch []domain.Location) (ImportResult, error) {
	var res ImportResult
	clean := make([]domain.Location, 0, len(batch))
	for _, l := range batch {
		l.ID = strings.TrimSpace(l.ID)
		l.Name = strings.TrimSpace(l.Name)
		if l.ID == "" || l.Name == "" {
			res.Skipped++
			res.SkippedIDs = append(res.SkippedIDs, l.ID)
			continue
		}
		l.Type = strings.TrimSpace(l.Type)
		l.IncentiveProgram = strings.TrimSpace(l.IncentiveProgram)
		l.Address.City = strings.TrimSpace(l.Address.City)
		l.Address.State = strings.ToUpper(strings.TrimSpace(l.Address.State))
		l.Address.Zip = strings.TrimSpace(l.Address.Zip)
		if l.Coordinates != nil && (!l.Coordinates.Valid() || (l.Coordinates.Lat == 0 && l.Coordinates.Lon == 0)) {
			l.Coordinates = nil
		}
		if l.Coordinates == nil {
			res.Unlocated++
		}
		clean = append(clean, l)
	}
	if len(clean) == 0 {
		return res, nil
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLocationsUpsert)
	defer span.End()
	if err := s.locations.UpsertBatch(ctx, clean); err != nil {
		return res, fmt.Errorf("upsert locations: %w", err)
	}
	res.Upserted = len(clean)
	return res, nil
}
