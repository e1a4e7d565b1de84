package interaction

import (
	"context"
	"strconv"
	"testing"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
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

func newTestRouter(t *testing.T, clk clock.Clock) (*Router, *db.Store, *notify.MockSink) {
	t.Helper()
	store := newTestStore(t)
	sink := notify.NewMockSink()
	n := notify.New(sink, store, clk)
	engine := reservation.New(store, quota.NewGuard())
	return &Router{
		Store:     store,
		Engine:    engine,
		Reminders: reminder.New(store),
		Reconcile: reconcile.New(store, sink, clk),
		Waitlist:  waitlist.New(store, n, clk),
		Wizard:    wizard.New(),
		Clock:     clk,
		IsBot:     func(int64) bool { return false },
	}, store, sink
}

func seedTestEquipment(t *testing.T, store *db.Store, equipmentID, guildID int64) {
	t.Helper()
	require.NoError(t, store.DB.Create(&models.Equipment{
		ID: equipmentID, GuildID: guildID, Name: "Camera", Status: models.EquipmentAvailable,
	}).Error)
}

func TestSplitCustomID_ParsesNamespaceVerbAndArgs(t *testing.T) {
	ns, verb, args := splitCustomID("res:new:42")
	require.Equal(t, "res", ns)
	require.Equal(t, "new", verb)
	require.Equal(t, []string{"42"}, args)

	ns, verb, args = splitCustomID("mgmt:root")
	require.Equal(t, "mgmt", ns)
	require.Equal(t, "root", verb)
	require.Empty(t, args)
}

func TestResNewButton_OpensModalRatherThanActingDirectly(t *testing.T) {
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r, _, _ := newTestRouter(t, clock.NewTest(now))

	reply, err := r.HandleButton(context.Background(), Button{
		CustomID: "res:new:1", GuildID: 1, ChannelID: 999, Actor: Actor{UserID: 100},
	})
	require.NoError(t, err)
	require.NotNil(t, reply.OpenModal)
	require.Equal(t, "res:new:1", reply.OpenModal.CustomID)
}

func TestResNewModal_CreatesReservationAndDispatchesReminders(t *testing.T) {
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r, store, _ := newTestRouter(t, clock.NewTest(now))
	seedTestEquipment(t, store, 1, 1)

	start := now.Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)
	reply, err := r.HandleModal(context.Background(), Modal{
		CustomID: "res:new:1", GuildID: 1, ChannelID: 999, Actor: Actor{UserID: 100},
		Fields: map[string]string{
			"start": clock.FormatJST(start),
			"end":   clock.FormatJST(end),
		},
	})
	require.NoError(t, err)
	require.False(t, reply.OpenModal != nil)

	var count int64
	require.NoError(t, store.DB.Model(&models.Reservation{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var jobCount int64
	require.NoError(t, store.DB.Model(&models.Job{}).Where("job_type = ?", models.JobReminderDue).Count(&jobCount).Error)
	require.True(t, jobCount > 0, "expected reminder jobs to be scheduled via dispatchEvents")
}

func TestResCancelButton_FreesEquipmentAndOffersWaitlist(t *testing.T) {
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r, store, sink := newTestRouter(t, clock.NewTest(now))
	seedTestEquipment(t, store, 1, 1)

	start := now.Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)
	res, _, err := r.Engine.Create(context.Background(), reservation.SelfActor(100), 1, 100, start, end, nil, nil, now)
	require.NoError(t, err)

	_, err = r.Waitlist.Join(context.Background(), 1, 1, 200, start, end)
	require.NoError(t, err)

	reply, err := r.HandleButton(context.Background(), Button{
		CustomID: "res:cancel:" + strconv.FormatInt(res.ID, 10), GuildID: 1, ChannelID: 999, Actor: Actor{UserID: 100},
	})
	require.NoError(t, err)
	require.Equal(t, "Reservation cancelled.", reply.Text)

	var entry models.WaitlistEntry
	require.NoError(t, store.DB.Where("user_id = ?", int64(200)).First(&entry).Error)
	require.Equal(t, models.WaitlistOffered, entry.Status)

	found := false
	for _, dm := range sink.DMs {
		if dm.UserID == 200 {
			found = true
		}
	}
	require.True(t, found, "expected a waitlist offer DM to user 200")
}

func TestMgmtButton_RejectsNonAdmin(t *testing.T) {
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r, _, _ := newTestRouter(t, clock.NewTest(now))

	reply, err := r.HandleButton(context.Background(), Button{
		CustomID: "mgmt:root", GuildID: 1, Actor: Actor{UserID: 100, IsAdmin: false},
	})
	require.NoError(t, err)
	require.True(t, reply.Ephemeral)
	require.Equal(t, "management actions are admin-only", reply.Text)
}

func TestSetupWizard_HappyPathPersistsGuildSettings(t *testing.T) {
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	r, store, _ := newTestRouter(t, clock.NewTest(now))
	actor := Actor{UserID: 1, IsAdmin: true}

	reply, err := r.HandleSlashCommand(context.Background(), SlashCommand{Name: "setup", GuildID: 1, Actor: actor})
	require.NoError(t, err)
	require.NotNil(t, reply.OpenModal)

	reply, err = r.HandleModal(context.Background(), Modal{
		CustomID: "wiz:chan:1", GuildID: 1, Actor: actor,
		Fields: map[string]string{"channel_id": "555"},
	})
	require.NoError(t, err)
	require.NotNil(t, reply.OpenModal)

	reply, err = r.HandleButton(context.Background(), Button{
		CustomID: "wiz:perm:ok", GuildID: 1, Actor: actor,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.OpenModal)

	reply, err = r.HandleModal(context.Background(), Modal{
		CustomID: "wiz:roles:1", GuildID: 1, Actor: actor,
		Fields: map[string]string{"role_ids": "10,20"},
	})
	require.NoError(t, err)
	require.NotNil(t, reply.OpenModal)

	reply, err = r.HandleModal(context.Background(), Modal{
		CustomID: "wiz:notify:1", GuildID: 1, Actor: actor,
		Fields: map[string]string{
			"pre_start_min": "15", "pre_end_min": "15",
			"overdue_every_h": "12", "overdue_max_count": "3", "dm_fallback": "true",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Setup complete.", reply.Text)

	g, err := store.GetGuild(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, g.ReservationChannelID)
	require.Equal(t, int64(555), *g.ReservationChannelID)
	require.Equal(t, []int64{10, 20}, db.AdminRoleIDs(*g))
}
