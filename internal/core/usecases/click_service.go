package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/ports"
	"github.com/samirrijal/ebtfinder/internal/pkg/logging"
	"github.com/samirrijal/ebtfinder/internal/pkg/metrics"
	"github.com/samirrijal/ebtfinder/internal/pkg/telemetry"
)

// ClickService records location clicks and enforces their retention.
type ClickService struct {
	clicks    ports.ClickEventRepository
	locations ports.LocationRepository
	publisher ports.ClickPublisher
	retention time.Duration
	now       func() time.Time
}

// NewClickService creates a ClickService. publisher may be nil, in which
// case clicks are written straight to the repository.
func NewClickService(
	clicks ports.ClickEventRepository,
	locations ports.LocationRepository,
	publisher ports.ClickPublisher,
	retention time.Duration,
	now func() time.Time,
) *ClickService {
	if retention <= 0 {
		retention = DefaultTrendingWindow
	}
	if now == nil {
		now = time.Now
	}
	return &ClickService{clicks: clicks, locations: locations, publisher: publisher, retention: retention, now: now}
}

// Record accepts a click on locationID made from origin. The event goes to
// the broker when one is configured and falls back to a direct insert if
// publishing fails.
func (s *ClickService) Record(ctx context.Context, locationID string, origin domain.GeoPoint) (*domain.ClickEvent, error) {
	locationID = strings.TrimSpace(locationID)
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanClickRecord)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrLocationID, locationID))

	if locationID == "" {
		return nil, fmt.Errorf("%w: location id is required", domain.ErrInvalidQuery)
	}
	if !origin.Valid() {
		return nil, fmt.Errorf("%w: origin: %w (%v, %v)", domain.ErrInvalidQuery, domain.ErrInvalidCoordinate, origin.Lat, origin.Lon)
	}
	if _, err := s.locations.GetByID(ctx, locationID); err != nil {
		return nil, err
	}

	event := &domain.ClickEvent{
		ID:         uuid.NewString(),
		LocationID: locationID,
		Origin:     &origin,
		Timestamp:  s.now().UTC(),
	}

	if s.publisher != nil {
		err := s.publisher.PublishClick(ctx, event)
		if err == nil {
			metrics.ClicksRecorded.WithLabelValues("broker").Inc()
			return event, nil
		}
		logging.FromContext(ctx).Warn("click publish failed, writing directly",
			"location_id", locationID, "error", err)
	}

	if err := s.clicks.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("insert click: %w", err)
	}
	metrics.ClicksRecorded.WithLabelValues("direct").Inc()
	return event, nil
}

// Persist stores an event delivered by the broker. Events that can never
// count toward trending are dropped without error so they are not redelivered.
func (s *ClickService) Persist(ctx context.Context, event *domain.ClickEvent) error {
	if event == nil || event.LocationID == "" || event.Origin == nil || !event.Origin.Valid() {
		logging.FromContext(ctx).Warn("dropping malformed click event")
		return nil
	}
	if event.Timestamp.Before(s.now().Add(-s.retention)) {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := s.clicks.Insert(ctx, event); err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	metrics.ClicksRecorded.WithLabelValues("consumer").Inc()
	return nil
}

// Cutoff is the oldest timestamp still inside the retention window at now.
func (s *ClickService) Cutoff(now time.Time) time.Time {
	return now.Add(-s.retention)
}

// Prune deletes clicks older than the retention window relative to now.
func (s *ClickService) Prune(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanClickPrune)
	defer span.End()

	n, err := s.clicks.DeleteBefore(ctx, s.Cutoff(now))
	if err != nil {
		return 0, fmt.Errorf("prune clicks: %w", err)
	}
	metrics.ClicksPruned.Add(float64(n))
	return n, nil
}
