package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// --- Mock LocationRepository ---

type mockLocationRepo struct {
	findByBoundingBoxFn  func(ctx context.Context, b domain.Bounds, storeTypes []string) ([]domain.Location, error)
	findByExactAddressFn func(ctx context.Context, city, state, zip string) ([]domain.Location, error)
	getByIDFn            func(ctx context.Context, id string) (*domain.Location, error)

	mu    sync.Mutex
	calls int
}

func (m *mockLocationRepo) FindByBoundingBox(ctx context.Context, b domain.Bounds, storeTypes []string) ([]domain.Location, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.findByBoundingBoxFn != nil {
		return m.findByBoundingBoxFn(ctx, b, storeTypes)
	}
	return nil, nil
}

func (m *mockLocationRepo) FindByExactAddress(ctx context.Context, city, state, zip string) ([]domain.Location, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.findByExactAddressFn != nil {
		return m.findByExactAddressFn(ctx, city, state, zip)
	}
	return nil, nil
}

func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockLocationRepo) UpsertBatch(ctx context.Context, locs []domain.Location) error { return nil }

func (m *mockLocationRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock ClickEventRepository ---

type mockClickRepo struct {
	findFn   func(ctx context.Context, ids []string, since time.Time) ([]domain.ClickEvent, error)
	insertFn func(ctx context.Context, e *domain.ClickEvent) error

	mu       sync.Mutex
	finds    int
	inserted []domain.ClickEvent
}

func (m *mockClickRepo) FindClickEvents(ctx context.Context, ids []string, since time.Time) ([]domain.ClickEvent, error) {
	m.mu.Lock()
	m.finds++
	m.mu.Unlock()
	if m.findFn != nil {
		return m.findFn(ctx, ids, since)
	}
	return nil, nil
}

func (m *mockClickRepo) Insert(ctx context.Context, e *domain.ClickEvent) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, e)
	}
	m.mu.Lock()
	m.inserted = append(m.inserted, *e)
	m.mu.Unlock()
	return nil
}

func (m *mockClickRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- helpers ---

func ptr(f float64) *float64 { return &f }

func at(lat, lon float64) *domain.GeoPoint { return &domain.GeoPoint{Lat: lat, Lon: lon} }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
