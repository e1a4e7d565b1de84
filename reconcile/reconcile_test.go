package reconcile

import (
	"context"
	"testing"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/models"
	"lsbgear/notify"

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

func seedGuildWithEquipment(t *testing.T, store *db.Store, guildID, channelID int64, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.DB.WithContext(ctx).Create(&models.Guild{
		ID: guildID, ReservationChannelID: &channelID, DMFallbackToChannel: true,
		PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 3,
	}).Error)
	for i := 1; i <= n; i++ {
		require.NoError(t, store.DB.WithContext(ctx).Create(&models.Equipment{
			ID: int64(i), GuildID: guildID, Name: "Camera " + string(rune('A'+i-1)), Status: models.EquipmentAvailable,
		}).Error)
	}
}

func TestReconcileGuildStartup_CreatesHeaderAndEmbedsFromEmpty(t *testing.T) {
	store := newTestStore(t)
	sink := notify.NewMockSink()
	r := New(store, sink, clock.NewTest(time.Now()))

	seedGuildWithEquipment(t, store, 1, 999, 2)
	require.NoError(t, r.ReconcileGuildStartup(context.Background(), 1))

	require.Len(t, sink.Messages[999], 3) // Header + 2 equipment embeds

	rows, err := store.ListManagedMessages(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestReconcileGuildStartup_SecondPassIsAllKeeps(t *testing.T) {
	store := newTestStore(t)
	sink := notify.NewMockSink()
	r := New(store, sink, clock.NewTest(time.Now()))

	seedGuildWithEquipment(t, store, 1, 999, 1)
	require.NoError(t, r.ReconcileGuildStartup(context.Background(), 1))

	before := map[int64]string{}
	for id, content := range sink.Messages[999] {
		before[id] = content
	}

	require.NoError(t, r.ReconcileGuildStartup(context.Background(), 1))

	require.Equal(t, before, sink.Messages[999], "unchanged equipment state must not produce any Edit")
}

func TestReconcileGuildStartup_NoReservationChannelIsANoOp(t *testing.T) {
	store := newTestStore(t)
	sink := notify.NewMockSink()
	r := New(store, sink, clock.NewTest(time.Now()))

	require.NoError(t, store.DB.Create(&models.Guild{ID: 2}).Error)
	require.NoError(t, r.ReconcileGuildStartup(context.Background(), 2))
	require.Empty(t, sink.Messages[0])
}

func TestReconcileGuildStartup_DeletesNonBotMessagesNotManaged(t *testing.T) {
	store := newTestStore(t)
	sink := notify.NewMockSink()
	r := New(store, sink, clock.NewTest(time.Now()))

	seedGuildWithEquipment(t, store, 1, 999, 0)
	// a stray user message: not bot-authored, not tracked in managed_messages.
	sink.InjectUserMessage(999, 777, "hey can I borrow the camera")

	require.NoError(t, r.ReconcileGuildStartup(context.Background(), 1))
	// the Header message (bot-authored, tracked) must survive.
	require.Len(t, sink.Messages[999], 1)
	require.Empty(t, sink.UserMessages[999], "stray non-bot, unmanaged message must be deleted")
}

func TestNotifyEquipmentChanged_DebouncesRapidUpdates(t *testing.T) {
	store := newTestStore(t)
	sink := notify.NewMockSink()
	r := New(store, sink, clock.NewTest(time.Now()))
	seedGuildWithEquipment(t, store, 1, 999, 1)
	require.NoError(t, r.ReconcileGuildStartup(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	for i := 0; i < 5; i++ {
		r.NotifyEquipmentChanged(1, 1)
	}
	time.Sleep(debounceWindow + 200*time.Millisecond)

	// Content didn't change across the 5 notifications, so even the single
	// coalesced flush should be a no-op edit (hash match) -- message count
	// stays exactly what startup created.
	require.Len(t, sink.Messages[999], 2)
}
