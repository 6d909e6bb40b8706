package ports

import (
	"context"
	"time"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// LocationRepository reads and persists EBT retailer locations.
type LocationRepository interface {
	// FindByBoundingBox returns located records inside the box. storeTypes,
	// when non-empty, is a case-insensitive substring allowlist on type.
	FindByBoundingBox(ctx context.Context, bounds domain.Bounds, storeTypes []string) ([]domain.Location, error)
	// FindByExactAddress matches city/state case-insensitively and zip exactly.
	// Empty arguments are not constrained.
	FindByExactAddress(ctx context.Context, city, state, zip string) ([]domain.Location, error)
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	UpsertBatch(ctx context.Context, locations []domain.Location) error
}

// ClickEventRepository persists location click events.
type ClickEventRepository interface {
	FindClickEvents(ctx context.Context, locationIDs []string, since time.Time) ([]domain.ClickEvent, error)
	Insert(ctx context.Context, event *domain.ClickEvent) error
	// DeleteBefore removes events older than cutoff and returns how many went.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
