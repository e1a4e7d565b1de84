package notify

import (
	"context"
	"testing"
	"time"

	"lsbgear/clock"
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

func seedReservation(t *testing.T, store *db.Store, guildID int64) int64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.DB.WithContext(ctx).Create(&models.Equipment{ID: 1, GuildID: guildID, Name: "Camera A"}).Error)
	r := &models.Reservation{
		EquipmentID: 1, UserID: 42, StartUTC: time.Now().UTC(), EndUTC: time.Now().UTC().Add(time.Hour),
		Status: models.ReservationConfirmed, CreatedUTC: time.Now().UTC(), UpdatedUTC: time.Now().UTC(),
	}
	require.NoError(t, store.DB.WithContext(ctx).Create(r).Error)
	return r.ID
}

func TestNotify_DMSucceeds(t *testing.T) {
	store := newTestStore(t)
	resID := seedReservation(t, store, 1)
	sink := NewMockSink()
	n := New(sink, store, clock.NewTest(time.Now()))

	delivery, err := n.Notify(context.Background(), 42, resID, models.ReminderPreStart, "your reservation starts soon", nil, true)
	require.NoError(t, err)
	require.Equal(t, models.DeliveryDM, delivery)
	require.Len(t, sink.DMs, 1)

	sent, err := store.WasReminderSent(context.Background(), resID, models.ReminderPreStart)
	require.NoError(t, err)
	require.True(t, sent)
}

func TestNotify_FallsBackToChannelOnDMFailure(t *testing.T) {
	store := newTestStore(t)
	resID := seedReservation(t, store, 1)
	sink := NewMockSink()
	sink.FailDMFor[42] = true
	n := New(sink, store, clock.NewTest(time.Now()))

	channelID := int64(999)
	delivery, err := n.Notify(context.Background(), 42, resID, models.ReminderStart, "your reservation has started", &channelID, true)
	require.NoError(t, err)
	require.Equal(t, models.DeliveryChannel, delivery)
	require.Len(t, sink.Messages[channelID], 1)
}

func TestNotify_FailedWhenFallbackDisabled(t *testing.T) {
	store := newTestStore(t)
	resID := seedReservation(t, store, 1)
	sink := NewMockSink()
	sink.FailDMFor[42] = true
	n := New(sink, store, clock.NewTest(time.Now()))

	delivery, err := n.Notify(context.Background(), 42, resID, models.ReminderPreEnd, "ending soon", nil, false)
	require.NoError(t, err)
	require.Equal(t, models.DeliveryFailed, delivery)
}

func TestNotify_RepeatSendKeepsSingleLedgerRow(t *testing.T) {
	store := newTestStore(t)
	resID := seedReservation(t, store, 1)
	sink := NewMockSink()
	n := New(sink, store, clock.NewTest(time.Now()))

	_, err := n.Notify(context.Background(), 42, resID, models.ReminderStart, "hello", nil, true)
	require.NoError(t, err)

	// A second attempt at the same (reservation, kind) must not fail even
	// though the ledger row already exists -- MarkReminderSent is a no-op
	// on conflict, matching the at-least-once delivery contract.
	_, err = n.Notify(context.Background(), 42, resID, models.ReminderStart, "hello again", nil, true)
	require.NoError(t, err)

	kinds, err := store.SentReminderKinds(context.Background(), resID)
	require.NoError(t, err)
	require.ElementsMatch(t, []models.ReminderKind{models.ReminderStart}, kinds)
}
