package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

const locationColumns = `id, name, store_type, street, city, state, zip,
		       latitude, longitude, incentive_program, updated_at`

// LocationRepo implements ports.LocationRepository with pgx.
type LocationRepo struct {
	db *DB
}

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

// FindByBoundingBox returns located retailers inside the box. storeTypes
// is pushed down as a case-insensitive substring allowlist.
func (r *LocationRepo) FindByBoundingBox(ctx context.Context, b domain.Bounds, storeTypes []string) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		  AND (cardinality($5::text[]) = 0 OR store_type ILIKE ANY ($5::text[]))
	`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon, likePatterns(storeTypes))
	if err != nil {
		return nil, fmt.Errorf("query bounding box: %w", err)
	}
	return collectLocations(rows)
}

// FindByExactAddress matches city and state case-insensitively and zip
// exactly. Empty arguments are unconstrained.
func (r *LocationRepo) FindByExactAddress(ctx context.Context, city, state, zip string) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE ($1 = '' OR lower(city) = lower($1))
		  AND ($2 = '' OR lower(state) = lower($2))
		  AND ($3 = '' OR zip = $3)
		ORDER BY name, id
	`, city, state, zip)
	if err != nil {
		return nil, fmt.Errorf("query exact address: %w", err)
	}
	return collectLocations(rows)
}

// GetByID returns a location by ID or domain.ErrNotFound.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	loc, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("location %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// UpsertBatch inserts or updates many locations using pgx.Batch.
func (r *LocationRepo) UpsertBatch(ctx context.Context, locs []domain.Location) error {
	if len(locs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, l := range locs {
		var lat, lon *float64
		if l.Coordinates != nil {
			lat, lon = &l.Coordinates.Lat, &l.Coordinates.Lon
		}
		updated := l.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		batch.Queue(`
			INSERT INTO locations (id, name, store_type, street, city, state, zip,
			                       latitude, longitude, incentive_program, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, store_type = EXCLUDED.store_type,
			    street = EXCLUDED.street, city = EXCLUDED.city,
			    state = EXCLUDED.state, zip = EXCLUDED.zip,
			    latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			    incentive_program = EXCLUDED.incentive_program,
			    updated_at = EXCLUDED.updated_at
		`, l.ID, l.Name, l.Type, l.Address.Street, l.Address.City, l.Address.State, l.Address.Zip,
			lat, lon, l.IncentiveProgram, updated)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range locs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func collectLocations(rows pgx.Rows) ([]domain.Location, error) {
	defer rows.Close()
	var out []domain.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *loc)
	}
	return out, rows.Err()
}

func scanLocation(row pgx.Row) (*domain.Location, error) {
	var (
		l        domain.Location
		lat, lon *float64
	)
	if err := row.Scan(
		&l.ID, &l.Name, &l.Type,
		&l.Address.Street, &l.Address.City, &l.Address.State, &l.Address.Zip,
		&lat, &lon, &l.IncentiveProgram, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		l.Coordinates = &domain.GeoPoint{Lat: *lat, Lon: *lon}
	}
	return &l, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePatterns turns substrings into ILIKE patterns. The result is never
// nil so the array parameter is never NULL.
func likePatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, "%"+likeEscaper.Replace(s)+"%")
		}
	}
	return out
}
