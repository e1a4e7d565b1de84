// Package worker wires scheduler.Handler functions for every models.JobType
// onto a scheduler.Scheduler. It is the background-process counterpart to
// interaction.Router: where Router answers a live slash command/button/
// modal, worker answers a due row in the jobs table, sharing the same
// collaborators (Store, Engine, Reminders, Reconcile, Waitlist, Notifier)
// so a job produces exactly the same downstream effects a live interaction
// would.
//
// Grounded in original_source/src/jobs.rs's JobWorker, whose
// process_reminder/process_transfer_timeout/process_retry_dm were left as
// TODO stubs; the bodies below are what those three stubs were meant to
// become once reminder delivery, transfer timeouts and waitlist offer
// retries were implemented.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/interaction"
	"lsbgear/logging"
	"lsbgear/models"
	"lsbgear/notify"
	"lsbgear/reconcile"
	"lsbgear/reservation"
	"lsbgear/scheduler"
	"lsbgear/waitlist"
	"lsbgear/wizard"
)

// sessionGCInterval and transferSweepInterval are how often the two
// singleton system jobs re-enqueue themselves; reconcileSweepInterval is
// the per-guild safety-net full reconcile on top of Reconciler's
// debounced per-equipment edits.
const (
	sessionGCInterval      = 5 * time.Minute
	transferSweepInterval  = 1 * time.Minute
	reconcileSweepInterval = 1 * time.Hour
	sessionGCDedupeKey     = "sys:session-gc"
	transferSweepDedupeKey = "sys:transfer-sweep"
)

func reconcileSweepDedupeKey(guildID int64) string {
	return fmt.Sprintf("sys:reconcile:%d", guildID)
}

// Deps bundles every collaborator a handler needs. All fields are required.
type Deps struct {
	Store     *db.Store
	Router    *interaction.Router
	Notifier  *notify.Notifier
	Engine    *reservation.Engine
	Reconcile *reconcile.Reconciler
	Waitlist  *waitlist.Manager
	Wizard    *wizard.Registry
	Clock     clock.Clock
}

// Register wires a scheduler.Handler for each models.JobType onto sched.
// Call once at startup, before sched.Run.
func Register(sched *scheduler.Scheduler, d Deps) {
	sched.Register(models.JobReminderDue, d.handleReminderDue)
	sched.Register(models.JobTransferExpire, d.handleTransferSweep)
	sched.Register(models.JobTransferExecute, d.handleTransferSweep)
	sched.Register(models.JobSessionGC, d.handleSessionGC)
	sched.Register(models.JobMessageReconcileGuild, d.handleMessageReconcileGuild)
	sched.Register(models.JobWaitlistOfferExpire, d.handleWaitlistOfferExpire)
}

// SeedSystemJobs enqueues the singleton periodic sweeps (session GC,
// transfer expiry) plus one per-guild reconcile safety net for every guild
// that already exists. DedupeKey makes every call idempotent, so this is
// safe to run on every process start.
func SeedSystemJobs(ctx context.Context, store *db.Store, now time.Time) error {
	if _, err := store.EnqueueJob(ctx, &models.Job{
		JobType: models.JobSessionGC, ScheduledForUTC: now,
		DedupeKey: strPtr(sessionGCDedupeKey),
	}); err != nil {
		return err
	}
	if _, err := store.EnqueueJob(ctx, &models.Job{
		JobType: models.JobTransferExpire, ScheduledForUTC: now,
		DedupeKey: strPtr(transferSweepDedupeKey),
	}); err != nil {
		return err
	}
	guilds, err := store.ListGuilds(ctx)
	if err != nil {
		return err
	}
	for _, g := range guilds {
		if _, err := store.EnqueueJob(ctx, &models.Job{
			JobType: models.JobMessageReconcileGuild, Payload: strconv.FormatInt(g.ID, 10),
			ScheduledForUTC: now, DedupeKey: strPtr(reconcileSweepDedupeKey(g.ID)),
		}); err != nil {
			return err
		}
	}
	return nil
}

// handleSessionGC sweeps expired wizard.SetupState sessions and re-enqueues
// itself, making JobSessionGC a self-perpetuating singleton rather than
// something the caller must re-schedule from outside the job table.
func (d Deps) handleSessionGC(ctx context.Context, job models.Job) error {
	now := d.Clock.NowUTC()
	n := d.Wizard.Sweep(now)
	if n > 0 {
		logging.Infof("worker: session GC swept %d expired setup sessions", n)
	}
	_, err := d.Store.EnqueueJob(ctx, &models.Job{
		JobType: models.JobSessionGC, ScheduledForUTC: now.Add(sessionGCInterval),
		DedupeKey: strPtr(sessionGCDedupeKey),
	})
	return err
}

// handleMessageReconcileGuild is the periodic full-reconcile safety net for
// one guild, on top of Reconciler's debounced per-equipment edits — it
// catches drift from anything that changed equipment state outside the
// normal Router/Engine path (a direct DB edit, a missed debounce flush).
func (d Deps) handleMessageReconcileGuild(ctx context.Context, job models.Job) error {
	guildID, err := strconv.ParseInt(job.Payload, 10, 64)
	if err != nil {
		return fmt.Errorf("worker: bad guild id payload %q: %w", job.Payload, err)
	}
	if err := d.Reconcile.ReconcileGuildStartup(ctx, guildID); err != nil {
		return err
	}
	_, err = d.Store.EnqueueJob(ctx, &models.Job{
		JobType: models.JobMessageReconcileGuild, Payload: job.Payload,
		ScheduledForUTC: d.Clock.NowUTC().Add(reconcileSweepInterval),
		DedupeKey:       strPtr(reconcileSweepDedupeKey(guildID)),
	})
	return err
}

// handleTransferSweep runs reservation.Engine.ExpireOverdueTransfers, fans
// its events out exactly as a live xfer:* button would, and re-enqueues
// itself. JobTransferExpire and JobTransferExecute share this handler
// because the engine sweep already covers both halves of §4.3's
// expire_overdue_transfers in one pass (expire awaiting-approval requests,
// execute due scheduled ones); SeedSystemJobs only ever enqueues the
// Expire variant, the Execute registration exists so the type is never
// left with "no handler registered" if anything enqueues it directly.
func (d Deps) handleTransferSweep(ctx context.Context, job models.Job) error {
	now := d.Clock.NowUTC()
	events, err := d.Engine.ExpireOverdueTransfers(ctx, now)
	if err != nil {
		return err
	}
	d.Router.DispatchSweepEvents(ctx, events)
	_, err = d.Store.EnqueueJob(ctx, &models.Job{
		JobType: job.JobType, ScheduledForUTC: now.Add(transferSweepInterval),
		DedupeKey: strPtr(transferSweepDedupeKey),
	})
	return err
}

// handleWaitlistOfferExpire resolves the offer's equipment name and owning
// guild's notification settings, then delegates to waitlist.Manager, which
// already implements the full expire-and-reoffer behavior.
func (d Deps) handleWaitlistOfferExpire(ctx context.Context, job models.Job) error {
	offerID, err := strconv.ParseInt(job.Payload, 10, 64)
	if err != nil {
		return fmt.Errorf("worker: bad offer id payload %q: %w", job.Payload, err)
	}
	offer, err := d.Store.GetWaitlistOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.Status != models.OfferPending {
		return nil
	}
	entry, err := d.Store.GetWaitlistEntry(ctx, offer.WaitlistEntryID)
	if err != nil {
		return err
	}
	eq, err := d.Store.GetEquipment(ctx, entry.EquipmentID)
	if err != nil {
		return err
	}
	guild, err := d.Store.GetGuild(ctx, eq.GuildID)
	if err != nil {
		return err
	}
	return d.Waitlist.ExpireOffer(ctx, offerID, eq.Name, guild.ReservationChannelID, guild.DMFallbackToChannel)
}

// handleReminderDue renders the reminder text for whichever
// models.ReminderKind this job's dedupe key names and hands it to
// notify.Notifier, which owns the DM-first/channel-fallback delivery and
// the sent_reminders ledger write.
func (d Deps) handleReminderDue(ctx context.Context, job models.Job) error {
	resID, err := strconv.ParseInt(job.Payload, 10, 64)
	if err != nil {
		return fmt.Errorf("worker: bad reservation id payload %q: %w", job.Payload, err)
	}
	kind, ok := reminderKindFromDedupeKey(job.DedupeKey)
	if !ok {
		return fmt.Errorf("worker: reminder job %d has no usable dedupe key", job.ID)
	}
	r, err := d.Store.GetReservation(ctx, resID)
	if err != nil {
		return err
	}
	if r.Status != models.ReservationConfirmed || r.ReturnedAtUTC != nil {
		return nil // cancelled/returned since this job was scheduled; reminder.Planner.CancelAll should already have dropped it
	}
	if sent, err := d.Store.WasReminderSent(ctx, resID, kind); err != nil {
		return err
	} else if sent {
		return nil // redelivered after a lease expiry; the DM already went out
	}
	eq, err := d.Store.GetEquipment(ctx, r.EquipmentID)
	if err != nil {
		return err
	}
	guild, err := d.Store.GetGuild(ctx, eq.GuildID)
	if err != nil {
		return err
	}
	_, err = d.Notifier.Notify(ctx, r.UserID, r.ID, kind, reminderText(kind, *r, eq.Name), guild.ReservationChannelID, guild.DMFallbackToChannel)
	return err
}

// reminderText renders the DM/channel body for one reminder occurrence.
// Overdue_k kinds (k in 1..OverdueMaxCount) all render with the same
// "overdue" wording; only PreStart/Start/PreEnd get occasion-specific text.
func reminderText(kind models.ReminderKind, r models.Reservation, equipmentName string) string {
	switch kind {
	case models.ReminderPreStart:
		return fmt.Sprintf("Reminder: your reservation for %s starts %s (JST)", equipmentName, clock.FormatJST(r.StartUTC))
	case models.ReminderStart:
		return fmt.Sprintf("Your reservation for %s starts now. Use ret:start:%d when you're done.", equipmentName, r.EquipmentID)
	case models.ReminderPreEnd:
		return fmt.Sprintf("Reminder: your reservation for %s ends %s (JST)", equipmentName, clock.FormatJST(r.EndUTC))
	default:
		return fmt.Sprintf("Overdue: %s was due back %s (JST). Please return it with ret:start:%d.", equipmentName, clock.FormatJST(r.EndUTC), r.EquipmentID)
	}
}

// reminderKindFromDedupeKey recovers the ReminderKind from a
// "remind:<reservationId>:<kind>" dedupe key (reminder.Planner's format) --
// the job's Payload only carries the reservation ID, not which occurrence
// this is.
func reminderKindFromDedupeKey(dedupeKey *string) (models.ReminderKind, bool) {
	if dedupeKey == nil {
		return "", false
	}
	parts := strings.SplitN(*dedupeKey, ":", 3)
	if len(parts) != 3 || parts[0] != "remind" {
		return "", false
	}
	return models.ReminderKind(parts[2]), true
}

func strPtr(s string) *string { return &s }
