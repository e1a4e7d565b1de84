// Package reminder is the ReminderPlanner (C7): given a reservation, it
// computes the expected reminder-job set and reconciles it against
// existing Pending jobs in the Store, inserting/cancelling via the
// job-queue's dedupe keys.
package reminder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lsbgear/db"
	"lsbgear/models"
)

// expected is one reminder occurrence the planner wants scheduled.
type expected struct {
	kind models.ReminderKind
	at   time.Time
}

func dedupeKey(reservationID int64, kind models.ReminderKind) string {
	return fmt.Sprintf("remind:%d:%s", reservationID, kind)
}

// expectedSet implements §4.7: PreStart, Start, PreEnd always; Overdue_k
// for k in 1..guild.OverdueMaxCount only while the reservation is not yet
// returned (the set shrinks to nothing once returned_at is set and the
// reservation no longer needs overdue nagging).
func expectedSet(r models.Reservation, guild models.NotifySettings) []expected {
	out := []expected{
		{kind: models.ReminderPreStart, at: r.StartUTC.Add(-time.Duration(guild.PreStartMin) * time.Minute)},
		{kind: models.ReminderStart, at: r.StartUTC},
		{kind: models.ReminderPreEnd, at: r.EndUTC.Add(-time.Duration(guild.PreEndMin) * time.Minute)},
	}
	if r.ReturnedAtUTC != nil {
		return out
	}
	for k := 1; k <= guild.OverdueMaxCount; k++ {
		out = append(out, expected{
			kind: models.OverdueReminderKind(k),
			at:   r.EndUTC.Add(time.Duration(k) * time.Duration(guild.OverdueEveryH) * time.Hour),
		})
	}
	return out
}

// Planner is the stateless C7 component; all state lives in the jobs table.
type Planner struct {
	Store *db.Store
}

func New(store *db.Store) *Planner {
	return &Planner{Store: store}
}

// Sync implements §4.7's reconciliation rule: insert missing expected
// reminders, cancel Pending ones whose scheduled time no longer matches.
// Reminders already recorded in sent_reminders are never touched — only
// Pending rows are considered, matching "cancellation = delete Pending
// rows; never touch reminders already sent".
func (p *Planner) Sync(ctx context.Context, r models.Reservation, guild models.NotifySettings) error {
	want := expectedSet(r, guild)
	wantByKey := make(map[string]expected, len(want))
	for _, w := range want {
		wantByKey[dedupeKey(r.ID, w.kind)] = w
	}

	prefix := fmt.Sprintf("remind:%d:", r.ID)
	existingRows, err := p.Store.PendingJobsByDedupePrefix(ctx, prefix)
	if err != nil {
		return err
	}
	existing := make(map[string]time.Time, len(existingRows))
	for _, row := range existingRows {
		existing[row.DedupeKey] = row.ScheduledForUTC
	}

	for key, w := range wantByKey {
		if scheduledAt, ok := existing[key]; ok {
			if scheduledAt.Equal(w.at) {
				continue
			}
			// scheduled time drifted (guild notify settings changed
			// since this job was enqueued) -- cancel and re-insert below.
			if err := p.Store.CancelPendingByDedupeKey(ctx, key); err != nil {
				return err
			}
		}
		alreadySent, err := p.Store.WasReminderSent(ctx, r.ID, w.kind)
		if err != nil {
			return err
		}
		if alreadySent {
			continue
		}
		job := &models.Job{
			JobType:         models.JobReminderDue,
			Payload:         strconv.FormatInt(r.ID, 10),
			ScheduledForUTC: w.at,
			DedupeKey:       strPtr(key),
		}
		if _, err := p.Store.EnqueueJob(ctx, job); err != nil {
			return err
		}
	}

	for key := range existing {
		if _, ok := wantByKey[key]; !ok {
			if err := p.Store.CancelPendingByDedupeKey(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// CancelAll drops every future Pending reminder for a reservation —
// called on cancel/return per §4.7.
func (p *Planner) CancelAll(ctx context.Context, reservationID int64) error {
	return p.Store.CancelPendingByDedupePrefix(ctx, dedupeKey(reservationID, ""))
}

func strPtr(s string) *string { return &s }
