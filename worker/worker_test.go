package worker

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/interaction"
	"lsbgear/models"
	"lsbgear/notify"
	"lsbgear/quota"
	"lsbgear/reconcile"
	"lsbgear/reminder"
	"lsbgear/reservation"
	"lsbgear/waitlist"
	"lsbgear/wizard"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newHarness(t *testing.T, now time.Time) (Deps, *notify.MockSink, *db.Store, *clock.Test) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() { sqlDB.Close() })

	store := db.NewStore(conn)
	clk := clock.NewTest(now)
	sink := notify.NewMockSink()
	notifier := notify.New(sink, store, clk)
	engine := reservation.New(store, quota.NewGuard())
	reconciler := reconcile.New(store, sink, clk)
	reminders := reminder.New(store)
	waitlistMgr := waitlist.New(store, notifier, clk)
	wizardRegistry := wizard.New()

	router := &interaction.Router{
		Store: store, Engine: engine, Reminders: reminders, Reconcile: reconciler,
		Waitlist: waitlistMgr, Wizard: wizardRegistry, Clock: clk,
		IsBot: func(userID int64) bool { return false },
	}

	return Deps{
		Store: store, Router: router, Notifier: notifier, Engine: engine,
		Reconcile: reconciler, Waitlist: waitlistMgr, Wizard: wizardRegistry, Clock: clk,
	}, sink, store, clk
}

func seedGuildAndEquipment(t *testing.T, store *db.Store, guildID, channelID, equipmentID int64) {
	t.Helper()
	require.NoError(t, store.DB.Create(&models.Guild{
		ID: guildID, ReservationChannelID: &channelID, DMFallbackToChannel: true,
		PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 3,
	}).Error)
	require.NoError(t, store.DB.Create(&models.Equipment{
		ID: equipmentID, GuildID: guildID, Name: "Camera A", Status: models.EquipmentAvailable,
	}).Error)
}

func TestHandleReminderDue_SendsDMAndRecords(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d, sink, store, _ := newHarness(t, now)
	seedGuildAndEquipment(t, store, 1, 999, 1)

	r := &models.Reservation{EquipmentID: 1, UserID: 42, StartUTC: now.Add(time.Hour), EndUTC: now.Add(2 * time.Hour), Status: models.ReservationConfirmed}
	require.NoError(t, store.DB.Create(r).Error)

	dedupe := fmt.Sprintf("remind:%d:%s", r.ID, models.ReminderPreStart)
	job := models.Job{ID: 1, Payload: strconv.FormatInt(r.ID, 10), DedupeKey: &dedupe}

	require.NoError(t, d.handleReminderDue(context.Background(), job))
	require.Len(t, sink.DMs, 1)
	require.Equal(t, int64(42), sink.DMs[0].UserID)

	sent, err := store.WasReminderSent(context.Background(), r.ID, models.ReminderPreStart)
	require.NoError(t, err)
	require.True(t, sent)
}

func TestHandleReminderDue_CancelledReservationIsANoOp(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d, sink, store, _ := newHarness(t, now)
	seedGuildAndEquipment(t, store, 1, 999, 1)

	r := &models.Reservation{EquipmentID: 1, UserID: 42, StartUTC: now.Add(time.Hour), EndUTC: now.Add(2 * time.Hour), Status: models.ReservationCancelled}
	require.NoError(t, store.DB.Create(r).Error)

	dedupe := fmt.Sprintf("remind:%d:%s", r.ID, models.ReminderStart)
	job := models.Job{ID: 1, Payload: strconv.FormatInt(r.ID, 10), DedupeKey: &dedupe}

	require.NoError(t, d.handleReminderDue(context.Background(), job))
	require.Empty(t, sink.DMs)
}

func TestHandleSessionGC_SweepsAndReschedules(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d, _, store, _ := newHarness(t, now)
	d.Wizard.Put(wizard.Key{GuildID: 1, UserID: 1, Kind: wizard.KindSetup}, "stale")

	require.NoError(t, d.handleSessionGC(context.Background(), models.Job{ID: 1}))

	rows, err := store.PendingJobsByDedupePrefix(context.Background(), sessionGCDedupeKey)
	require.NoError(t, err)
	require.Len(t, rows, 1, "handler must re-enqueue its own singleton")
}

func TestHandleWaitlistOfferExpire_ReoffersToNextEntry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d, sink, store, clk := newHarness(t, now)
	seedGuildAndEquipment(t, store, 1, 999, 1)
	ctx := context.Background()

	start, end := now.Add(time.Hour), now.Add(2*time.Hour)
	entry, err := d.Waitlist.Join(ctx, 1, 1, 77, start, end)
	require.NoError(t, err)

	offer, err := d.Waitlist.OfferNext(ctx, 1, start, end, "Camera A", nil, true)
	require.NoError(t, err)
	require.NotNil(t, offer)
	clk.Advance(models.WaitlistOfferWindow + time.Minute)

	job := models.Job{Payload: strconv.FormatInt(offer.ID, 10)}
	require.NoError(t, d.handleWaitlistOfferExpire(ctx, job))

	reloaded, err := store.GetWaitlistEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, models.WaitlistExpired, reloaded.Status, "dropped entry must not be re-matched to the window it missed")
	require.NotEmpty(t, sink.DMs)
}
