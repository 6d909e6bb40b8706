package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
)

type importRepo struct {
	mockLocationRepo
	batches [][]domain.Location
	err     error
}

func (r *importRepo) UpsertBatch(ctx context.Context, locs []domain.Location) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, locs)
	return nil
}

func TestLocationService_GetByIDUsesCache(t *testing.T) {
	calls := 0
	repo := &mockLocationRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Location, error) {
			calls++
			return &domain.Location{ID: id, Name: "Ralphs", IncentiveProgram: "RMP"}, nil
		},
	}
	svc := usecases.NewLocationService(repo, newMockCache())

	for i := 0; i < 3; i++ {
		loc, err := svc.GetByID(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.Name != "Ralphs" || loc.IncentiveProgram != "RMP" {
			t.Errorf("unexpected location %+v", loc)
		}
	}
	if calls != 1 {
		t.Errorf("repo called %d times, want 1", calls)
	}
}

func TestLocationService_GetByIDNotFound(t *testing.T) {
	svc := usecases.NewLocationService(&mockLocationRepo{}, nil)
	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = svc.GetByID(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestLocationService_ImportNormalizes(t *testing.T) {
	repo := &importRepo{}
	svc := usecases.NewLocationService(repo, nil)

	res, err := svc.Import(context.Background(), []domain.Location{
		{ID: " 1 ", Name: " Ralphs ", Address: domain.Address{State: "ca"}, Coordinates: at(34.05, -118.24)},
		{ID: "2", Name: "Null Island", Coordinates: at(0, 0)},
		{ID: "3", Name: "Bad", Coordinates: at(95, 0)},
		{ID: "", Name: "No ID"},
		{ID: "5", Name: "  "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Upserted != 3 || res.Skipped != 2 || res.Unlocated != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(repo.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(repo.batches))
	}
	got := repo.batches[0]
	if got[0].ID != "1" || got[0].Name != "Ralphs" || got[0].Address.State != "CA" {
		t.Errorf("not normalized: %+v", got[0])
	}
	if got[1].Coordinates != nil || got[2].Coordinates != nil {
		t.Error("unusable coordinates should be cleared")
	}
}

func TestLocationService_ImportError(t *testing.T) {
	repo := &importRepo{err: errors.New("db down")}
	svc := usecases.NewLocationService(repo, nil)
	_, err := svc.Import(context.Background(), []domain.Location{{ID: "1", Name: "A"}})
	if err == nil {
		t.Fatal("expected error")
	}
}
