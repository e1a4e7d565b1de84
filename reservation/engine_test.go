package reservation

import (
	"context"
	"testing"
	"time"

	"lsbgear/db"
	"lsbgear/errs"
	"lsbgear/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() { sqlDB.Close() })
	return db.NewStore(conn)
}

func seedEquipment(t *testing.T, store *db.Store, guildID, equipmentID int64) {
	t.Helper()
	require.NoError(t, store.DB.Create(&models.Guild{ID: guildID}).Error)
	require.NoError(t, store.DB.Create(&models.Equipment{
		ID: equipmentID, GuildID: guildID, Name: "Camera A", Status: models.EquipmentAvailable,
	}).Error)
}

func TestCreate_RejectsOverlap(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)

	_, _, err := e.Create(ctx, SelfActor(10), 1, 10, start, end, nil, nil, now)
	require.NoError(t, err)

	_, _, err = e.Create(ctx, SelfActor(20), 1, 20, start.Add(30*time.Minute), end.Add(30*time.Minute), nil, nil, now)
	var d *errs.Domain
	require.ErrorAs(t, err, &d)
	require.Equal(t, errs.Conflict, d.Kind)
}

func TestCreate_TouchingWindowsDoNotConflict(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)
	mid := start.Add(2 * time.Hour)
	end := mid.Add(2 * time.Hour)

	_, _, err := e.Create(ctx, SelfActor(10), 1, 10, start, mid, nil, nil, now)
	require.NoError(t, err)

	_, _, err = e.Create(ctx, SelfActor(20), 1, 20, mid, end, nil, nil, now)
	require.NoError(t, err, "half-open intervals touching at mid must not conflict")
}

func TestCreate_RejectsUnavailableEquipment(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	require.NoError(t, store.DB.Model(&models.Equipment{}).Where("id = ?", 1).Update("status", models.EquipmentUnavailable).Error)
	e := New(store, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := e.Create(context.Background(), SelfActor(10), 1, 10, now.Add(time.Hour), now.Add(2*time.Hour), nil, nil, now)
	var d *errs.Domain
	require.ErrorAs(t, err, &d)
	require.Equal(t, errs.InvalidInput, d.Kind)
}

func TestCancel_OnlyOwnerOrAdmin(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r, _, err := e.Create(ctx, SelfActor(10), 1, 10, now.Add(time.Hour), now.Add(2*time.Hour), nil, nil, now)
	require.NoError(t, err)

	_, _, err = e.Cancel(ctx, SelfActor(99), r.ID, now)
	var d *errs.Domain
	require.ErrorAs(t, err, &d)
	require.Equal(t, errs.PermissionDenied, d.Kind)

	_, events, err := e.Cancel(ctx, AdminActor(1), r.ID, now)
	require.NoError(t, err)
	require.Len(t, events, 2, "cancel emits Cancelled and Freed")
}

func TestReturn_SetsReturnedAtAndLocation(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r, _, err := e.Create(ctx, SelfActor(10), 1, 10, now.Add(time.Hour), now.Add(2*time.Hour), nil, nil, now)
	require.NoError(t, err)

	loc := "Shelf 3"
	returned, _, err := e.Return(ctx, SelfActor(10), r.ID, &loc, now.Add(3*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAtUTC)
	require.Equal(t, loc, *returned.ReturnLocation)
}
