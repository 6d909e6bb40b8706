package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// ClickRepo implements ports.ClickEventRepository with pgx.
type ClickRepo struct {
	db *DB
}

// NewClickRepo creates a new ClickRepo.
func NewClickRepo(db *DB) *ClickRepo {
	return &ClickRepo{db: db}
}

// FindClickEvents returns events for the given locations at or after since.
func (r *ClickRepo) FindClickEvents(ctx context.Context, locationIDs []string, since time.Time) ([]domain.ClickEvent, error) {
	if len(locationIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, location_id, origin_lat, origin_lon, clicked_at
		FROM click_events
		WHERE location_id = ANY($1) AND clicked_at >= $2
	`, locationIDs, since)
	if err != nil {
		return nil, fmt.Errorf("query click events: %w", err)
	}
	defer rows.Close()

	var events []domain.ClickEvent
	for rows.Next() {
		var (
			e        domain.ClickEvent
			lat, lon *float64
		)
		if err := rows.Scan(&e.ID, &e.LocationID, &lat, &lon, &e.Timestamp); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			e.Origin = &domain.GeoPoint{Lat: *lat, Lon: *lon}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Insert appends one event. Redelivered events with a known ID are ignored.
func (r *ClickRepo) Insert(ctx context.Context, e *domain.ClickEvent) error {
	var lat, lon *float64
	if e.Origin != nil {
		lat, lon = &e.Origin.Lat, &e.Origin.Lon
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO click_events (id, location_id, origin_lat, origin_lon, clicked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.LocationID, lat, lon, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert click event: %w", err)
	}
	return nil
}

// DeleteBefore removes events older than cutoff.
func (r *ClickRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM click_events WHERE clicked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete click events: %w", err)
	}
	return tag.RowsAffected(), nil
}
