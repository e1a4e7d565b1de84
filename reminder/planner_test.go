package reminder

import (
	"context"
	"testing"
	"time"

	"lsbgear/db"
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

func pendingReminderCount(t *testing.T, store *db.Store, resID int64) int {
	t.Helper()
	rows, err := store.PendingJobsByDedupePrefix(context.Background(), "remind:")
	require.NoError(t, err)
	return len(rows)
}

func TestSync_InsertsFullExpectedSetForFreshReservation(t *testing.T) {
	store := newTestStore(t)
	p := New(store)
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r := models.Reservation{ID: 1, StartUTC: start, EndUTC: start.Add(2 * time.Hour)}
	guild := models.NotifySettings{PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 3}

	require.NoError(t, p.Sync(context.Background(), r, guild))

	// PreStart, Start, PreEnd, Overdue_1..3 = 6 jobs.
	require.Equal(t, 6, pendingReminderCount(t, store, r.ID))
}

func TestSync_DropsOverdueOnceReturned(t *testing.T) {
	store := newTestStore(t)
	p := New(store)
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	guild := models.NotifySettings{PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 3}
	r := models.Reservation{ID: 2, StartUTC: start, EndUTC: start.Add(2 * time.Hour)}
	require.NoError(t, p.Sync(context.Background(), r, guild))
	require.Equal(t, 6, pendingReminderCount(t, store, r.ID))

	returnedAt := start.Add(2 * time.Hour)
	r.ReturnedAtUTC = &returnedAt
	require.NoError(t, p.Sync(context.Background(), r, guild))

	rows, err := store.PendingJobsByDedupePrefix(context.Background(), "remind:2:")
	require.NoError(t, err)
	require.Len(t, rows, 3) // PreStart, Start, PreEnd only
}

func TestSync_RescheduleOnGuildSettingsChange(t *testing.T) {
	store := newTestStore(t)
	p := New(store)
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r := models.Reservation{ID: 3, StartUTC: start, EndUTC: start.Add(2 * time.Hour)}
	guildA := models.NotifySettings{PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 1}
	require.NoError(t, p.Sync(context.Background(), r, guildA))

	rowsBefore, err := store.PendingJobsByDedupePrefix(context.Background(), "remind:3:PreStart")
	require.NoError(t, err)
	require.Len(t, rowsBefore, 1)
	require.True(t, rowsBefore[0].ScheduledForUTC.Equal(start.Add(-15*time.Minute)))

	guildB := models.NotifySettings{PreStartMin: 30, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 1}
	require.NoError(t, p.Sync(context.Background(), r, guildB))

	rowsAfter, err := store.PendingJobsByDedupePrefix(context.Background(), "remind:3:PreStart")
	require.NoError(t, err)
	require.Len(t, rowsAfter, 1)
	require.True(t, rowsAfter[0].ScheduledForUTC.Equal(start.Add(-30*time.Minute)))
}

func TestSync_NeverReinsertsAlreadySentReminder(t *testing.T) {
	store := newTestStore(t)
	p := New(store)
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r := models.Reservation{ID: 4, StartUTC: start, EndUTC: start.Add(2 * time.Hour)}
	guild := models.NotifySettings{PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 1}

	require.NoError(t, store.MarkReminderSent(context.Background(), r.ID, models.ReminderPreStart, start, models.DeliveryDM))
	require.NoError(t, p.Sync(context.Background(), r, guild))

	rows, err := store.PendingJobsByDedupePrefix(context.Background(), "remind:4:PreStart")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCancelAll_RemovesEveryPendingReminder(t *testing.T) {
	store := newTestStore(t)
	p := New(store)
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r := models.Reservation{ID: 5, StartUTC: start, EndUTC: start.Add(2 * time.Hour)}
	guild := models.NotifySettings{PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 2}
	require.NoError(t, p.Sync(context.Background(), r, guild))
	require.NoError(t, p.CancelAll(context.Background(), r.ID))

	rows, err := store.PendingJobsByDedupePrefix(context.Background(), "remind:5:")
	require.NoError(t, err)
	require.Empty(t, rows)
}
