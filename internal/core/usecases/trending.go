package usecases

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/ports"
	"github.com/samirrijal/ebtfinder/internal/pkg/geospatial"
)

const (
	// DefaultTrendingWindow is how far back clicks count toward trending.
	DefaultTrendingWindow = 30 * 24 * time.Hour

	// DefaultClickRadiusMiles limits evidence to clicks made near the
	// requester; far-away interest says nothing about local popularity.
	DefaultClickRadiusMiles = 25.0

	// DefaultDecayFloor is the minimum weight of a click inside the window.
	DefaultDecayFloor = 0.1
)

// TrendingConfig tunes the click-decay score.
type TrendingConfig struct {
	Window           time.Duration
	ClickRadiusMiles float64
	DecayFloor       float64
}

// DefaultTrendingConfig returns the production constants.
func DefaultTrendingConfig() TrendingConfig {
	return TrendingConfig{
		Window:           DefaultTrendingWindow,
		ClickRadiusMiles: DefaultClickRadiusMiles,
		DecayFloor:       DefaultDecayFloor,
	}
}

func (c TrendingConfig) withDefaults() TrendingConfig {
	d := DefaultTrendingConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.ClickRadiusMiles <= 0 {
		c.ClickRadiusMiles = d.ClickRadiusMiles
	}
	if c.DecayFloor <= 0 || c.DecayFloor > 1 {
		c.DecayFloor = d.DecayFloor
	}
	return c
}

// TrendingCalculator turns recent nearby clicks into a popularity score.
type TrendingCalculator struct {
	clicks ports.ClickEventRepository
	cfg    TrendingConfig
	now    func() time.Time
}

// NewTrendingCalculator creates a TrendingCalculator. now may be nil.
func NewTrendingCalculator(clicks ports.ClickEventRepository, cfg TrendingConfig, now func() time.Time) *TrendingCalculator {
	if now == nil {
		now = time.Now
	}
	return &TrendingCalculator{clicks: clicks, cfg: cfg.withDefaults(), now: now}
}

// Config returns the effective configuration.
func (t *TrendingCalculator) Config() TrendingConfig {
	return t.cfg
}

// Scores fetches the window's clicks for locationIDs and scores them
// relative to origin. Locations without qualifying clicks are absent from
// the map, which callers read as a score of 0.
func (t *TrendingCalculator) Scores(ctx context.Context, origin domain.GeoPoint, locationIDs []string) (map[string]float64, error) {
	if len(locationIDs) == 0 {
		return map[string]float64{}, nil
	}
	now := t.now()
	events, err := t.clicks.FindClickEvents(ctx, locationIDs, now.Add(-t.cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("find click events: %w", err)
	}
	return t.ScoreEvents(origin, events, now), nil
}

// ScoreEvents sums recency weights of events whose origin is within the
// click radius of origin.
func (t *TrendingCalculator) ScoreEvents(origin domain.GeoPoint, events []domain.ClickEvent, now time.Time) map[string]float64 {
	scores := make(map[string]float64)
	for i := range events {
		e := &events[i]
		if e.Origin == nil {
			continue
		}
		d, err := geospatial.Distance(origin.Lat, origin.Lon, e.Origin.Lat, e.Origin.Lon)
		if err != nil || !(d <= t.cfg.ClickRadiusMiles) {
			continue
		}
		age := now.Sub(e.Timestamp)
		if age > t.cfg.Window {
			continue
		}
		scores[e.LocationID] += t.Weight(age)
	}
	return scores
}

// Weight decays linearly from 1.0 for a click made now down to the floor.
// Future timestamps count as age 0.
func (t *TrendingCalculator) Weight(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	frac := float64(age) / float64(t.cfg.Window)
	return math.Max(t.cfg.DecayFloor, 1-frac)
}
