package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

var locationCols = []string{
	"id", "name", "store_type", "street", "city", "state", "zip",
	"latitude", "longitude", "incentive_program", "updated_at",
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *DB) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewWithPool(mock)
}

func f64(v float64) *float64 { return &v }

func TestLocationRepo_FindByBoundingBox(t *testing.T) {
	mock, db := newMock(t)
	updated := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(locationCols).
		AddRow("L1", "Fresh Market", "Supermarket", "1 Main St", "Fresno", "CA", "93721",
			f64(36.74), f64(-119.78), "RMP", updated).
		AddRow("L2", "Corner Store", "Convenience Store", "", "Fresno", "CA", "93721",
			nil, nil, "", updated)
	mock.ExpectQuery(regexp.QuoteMeta("FROM locations")).
		WithArgs(36.0, 37.0, -120.0, -119.0, []string{`%super%`, `%100\%\_pure%`}).
		WillReturnRows(rows)

	repo := NewLocationRepo(db)
	got, err := repo.FindByBoundingBox(context.Background(),
		domain.Bounds{MinLat: 36, MaxLat: 37, MinLon: -120, MaxLon: -119},
		[]string{"super", "100%_pure", "  "})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "L1", got[0].ID)
	require.NotNil(t, got[0].Coordinates)
	assert.InDelta(t, 36.74, got[0].Coordinates.Lat, 1e-9)
	assert.True(t, got[0].InIncentiveProgram())
	assert.Nil(t, got[1].Coordinates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepo_FindByBoundingBox_NoTypesSendsEmptyArray(t *testing.T) {
	mock, db := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM locations")).
		WithArgs(1.0, 2.0, 3.0, 4.0, []string{}).
		WillReturnRows(pgxmock.NewRows(locationCols))

	got, err := NewLocationRepo(db).FindByBoundingBox(context.Background(),
		domain.Bounds{MinLat: 1, MaxLat: 2, MinLon: 3, MaxLon: 4}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepo_FindByExactAddress(t *testing.T) {
	mock, db := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("lower(city) = lower($1)")).
		WithArgs("Fresno", "CA", "").
		WillReturnRows(pgxmock.NewRows(locationCols).
			AddRow("F1", "Farm Stand", "Farmers Market", "", "Fresno", "CA", "93722",
				nil, nil, "", time.Now()))

	got, err := NewLocationRepo(db).FindByExactAddress(context.Background(), "Fresno", "CA", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Farm Stand", got[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepo_GetByID_NotFound(t *testing.T) {
	mock, db := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewLocationRepo(db).GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepo_QueryErrorIsWrapped(t *testing.T) {
	mock, db := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM locations")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	_, err := NewLocationRepo(db).FindByExactAddress(context.Background(), "", "", "93721")
	assert.ErrorIs(t, err, boom)
}

func TestLocationRepo_UpsertBatch(t *testing.T) {
	mock, db := newMock(t)
	locs := []domain.Location{
		{ID: "A", Name: "Alpha", Type: "Supermarket", Coordinates: &domain.GeoPoint{Lat: 34, Lon: -118}},
		{ID: "B", Name: "Beta", Type: "Convenience Store"},
	}

	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO locations").
		WithArgs("A", "Alpha", "Supermarket", "", "", "", "", f64(34), f64(-118), "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO locations").
		WithArgs("B", "Beta", "Convenience Store", "", "", "", "", (*float64)(nil), (*float64)(nil), "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewLocationRepo(db).UpsertBatch(context.Background(), locs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepo_UpsertBatch_Empty(t *testing.T) {
	mock, db := newMock(t)
	require.NoError(t, NewLocationRepo(db).UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickRepo_FindClickEvents(t *testing.T) {
	mock, db := newMock(t)
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	at := since.Add(48 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("location_id = ANY($1)")).
		WithArgs([]string{"L1", "L2"}, since).
		WillReturnRows(pgxmock.NewRows([]string{"id", "location_id", "origin_lat", "origin_lon", "clicked_at"}).
			AddRow("c1", "L1", f64(34.05), f64(-118.24), at).
			AddRow("c2", "L2", nil, nil, at))

	events, err := NewClickRepo(db).FindClickEvents(context.Background(), []string{"L1", "L2"}, since)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Origin)
	assert.InDelta(t, -118.24, events[0].Origin.Lon, 1e-9)
	assert.Nil(t, events[1].Origin)
	assert.Equal(t, at, events[1].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickRepo_FindClickEvents_NoIDsSkipsQuery(t *testing.T) {
	mock, db := newMock(t)
	events, err := NewClickRepo(db).FindClickEvents(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickRepo_InsertAndDelete(t *testing.T) {
	mock, db := newMock(t)
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewClickRepo(db)

	mock.ExpectExec("INSERT INTO click_events").
		WithArgs("c1", "L1", f64(1), f64(2), ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM click_events").
		WithArgs(ts).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	require.NoError(t, repo.Insert(context.Background(), &domain.ClickEvent{
		ID: "c1", LocationID: "L1", Origin: &domain.GeoPoint{Lat: 1, Lon: 2}, Timestamp: ts,
	}))
	n, err := repo.DeleteBefore(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
