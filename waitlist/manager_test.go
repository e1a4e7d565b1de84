package waitlist

import (
	"context"
	"testing"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/models"
	"lsbgear/notify"
	"lsbgear/reservation"

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

func seedEquipment(t *testing.T, store *db.Store, equipmentID int64) {
	t.Helper()
	require.NoError(t, store.DB.Create(&models.Equipment{
		ID: equipmentID, GuildID: 1, Name: "Camera", Status: models.EquipmentAvailable,
	}).Error)
}

func newManager(store *db.Store, clk clock.Clock) (*Manager, *notify.MockSink) {
	sink := notify.NewMockSink()
	n := notify.New(sink, store, clk)
	return New(store, n, clk), sink
}

func TestJoin_RejectsPastStart(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	m, _ := newManager(store, clock.NewTest(now))
	seedEquipment(t, store, 1)

	_, err := m.Join(context.Background(), 1, 1, 100, now.Add(-time.Hour), now.Add(time.Hour))
	require.Error(t, err)
}

func TestJoin_RejectsDuplicateOverlappingWindow(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	m, _ := newManager(store, clock.NewTest(now))
	seedEquipment(t, store, 1)

	start, end := now.Add(24*time.Hour), now.Add(26*time.Hour)
	_, err := m.Join(context.Background(), 1, 1, 100, start, end)
	require.NoError(t, err)

	_, err = m.Join(context.Background(), 1, 1, 100, start.Add(30*time.Minute), end.Add(30*time.Minute))
	require.Error(t, err)
}

func TestOfferNext_PopsOldestFittingEntryAndNotifiesDM(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	m, sink := newManager(store, clock.NewTest(now))
	seedEquipment(t, store, 1)

	freedStart, freedEnd := now.Add(24*time.Hour), now.Add(28*time.Hour)
	_, err := m.Join(context.Background(), 1, 1, 100, freedStart, freedEnd.Add(-time.Hour))
	require.NoError(t, err)

	offer, err := m.OfferNext(context.Background(), 1, freedStart, freedEnd, "Camera", nil, false)
	require.NoError(t, err)
	require.NotNil(t, offer)
	require.Equal(t, models.OfferPending, offer.Status)
	require.Len(t, sink.DMs, 1)

	entry, err := m.Store.GetWaitlistEntry(context.Background(), offer.WaitlistEntryID)
	require.NoError(t, err)
	require.Equal(t, models.WaitlistOffered, entry.Status)
}

func TestOfferNext_NoOpWhenQueueEmpty(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	m, _ := newManager(store, clock.NewTest(now))
	seedEquipment(t, store, 1)

	offer, err := m.OfferNext(context.Background(), 1, now.Add(24*time.Hour), now.Add(28*time.Hour), "Camera", nil, false)
	require.NoError(t, err)
	require.Nil(t, offer)
}

func TestAccept_CreatesReservationAndClaimsEntry(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewTest(now)
	m, _ := newManager(store, clk)
	seedEquipment(t, store, 1)
	engine := reservation.New(store, nil)

	freedStart, freedEnd := now.Add(24*time.Hour), now.Add(26*time.Hour)
	_, err := m.Join(context.Background(), 1, 1, 100, freedStart, freedEnd)
	require.NoError(t, err)
	offer, err := m.OfferNext(context.Background(), 1, freedStart, freedEnd, "Camera", nil, false)
	require.NoError(t, err)

	actor := reservation.SelfActor(100)
	r, err := m.Accept(context.Background(), offer.ID, actor, engine, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), r.EquipmentID)
	require.Equal(t, int64(100), r.UserID)

	got, err := store.GetWaitlistOffer(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, models.OfferAccepted, got.Status)
}

func TestAccept_RejectsWrongUser(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	m, _ := newManager(store, clock.NewTest(now))
	seedEquipment(t, store, 1)
	engine := reservation.New(store, nil)

	freedStart, freedEnd := now.Add(24*time.Hour), now.Add(26*time.Hour)
	_, err := m.Join(context.Background(), 1, 1, 100, freedStart, freedEnd)
	require.NoError(t, err)
	offer, err := m.OfferNext(context.Background(), 1, freedStart, freedEnd, "Camera", nil, false)
	require.NoError(t, err)

	_, err = m.Accept(context.Background(), offer.ID, reservation.SelfActor(999), engine, nil)
	require.Error(t, err)
}

func TestDecline_DropsEntryAndReOffersToNext(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	m, sink := newManager(store, clock.NewTest(now))
	seedEquipment(t, store, 1)

	freedStart, freedEnd := now.Add(24*time.Hour), now.Add(26*time.Hour)
	e1, err := m.Join(context.Background(), 1, 1, 100, freedStart, freedEnd)
	require.NoError(t, err)
	e2, err := m.Join(context.Background(), 1, 1, 200, freedStart, freedEnd)
	require.NoError(t, err)
	require.True(t, e1.CreatedUTC.Before(e2.CreatedUTC) || e1.ID < e2.ID)

	offer, err := m.OfferNext(context.Background(), 1, freedStart, freedEnd, "Camera", nil, false)
	require.NoError(t, err)
	require.Equal(t, e1.ID, offer.WaitlistEntryID)

	require.NoError(t, m.Decline(context.Background(), offer.ID, 100, "Camera", nil, false))

	declinedEntry, err := store.GetWaitlistEntry(context.Background(), e1.ID)
	require.NoError(t, err)
	require.Equal(t, models.WaitlistCancelled, declinedEntry.Status)

	nextEntry, err := store.GetWaitlistEntry(context.Background(), e2.ID)
	require.NoError(t, err)
	require.Equal(t, models.WaitlistOffered, nextEntry.Status)
	require.Len(t, sink.DMs, 2) // one for each OfferNext call
}

func TestExpireOffer_DropsEntryAndReOffersToNext(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewTest(now)
	m, _ := newManager(store, clk)
	seedEquipment(t, store, 1)

	freedStart, freedEnd := now.Add(24*time.Hour), now.Add(26*time.Hour)
	e1, err := m.Join(context.Background(), 1, 1, 100, freedStart, freedEnd)
	require.NoError(t, err)
	e2, err := m.Join(context.Background(), 1, 1, 200, freedStart, freedEnd)
	require.NoError(t, err)

	offer, err := m.OfferNext(context.Background(), 1, freedStart, freedEnd, "Camera", nil, false)
	require.NoError(t, err)
	require.Equal(t, e1.ID, offer.WaitlistEntryID)

	clk.Advance(models.WaitlistOfferWindow + time.Minute)
	require.NoError(t, m.ExpireOffer(context.Background(), offer.ID, "Camera", nil, false))

	expiredEntry, err := store.GetWaitlistEntry(context.Background(), e1.ID)
	require.NoError(t, err)
	require.Equal(t, models.WaitlistExpired, expiredEntry.Status)

	nextEntry, err := store.GetWaitlistEntry(context.Background(), e2.ID)
	require.NoError(t, err)
	require.Equal(t, models.WaitlistOffered, nextEntry.Status)
}

func TestExpireOffer_NoOpIfAlreadyAccepted(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewTest(now)
	m, _ := newManager(store, clk)
	seedEquipment(t, store, 1)
	engine := reservation.New(store, nil)

	freedStart, freedEnd := now.Add(24*time.Hour), now.Add(26*time.Hour)
	_, err := m.Join(context.Background(), 1, 1, 100, freedStart, freedEnd)
	require.NoError(t, err)
	offer, err := m.OfferNext(context.Background(), 1, freedStart, freedEnd, "Camera", nil, false)
	require.NoError(t, err)

	_, err = m.Accept(context.Background(), offer.ID, reservation.SelfActor(100), engine, nil)
	require.NoError(t, err)

	clk.Advance(models.WaitlistOfferWindow + time.Minute)
	require.NoError(t, m.ExpireOffer(context.Background(), offer.ID, "Camera", nil, false))

	got, err := store.GetWaitlistOffer(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, models.OfferAccepted, got.Status, "already-accepted offer must not be flipped to Expired")
}
