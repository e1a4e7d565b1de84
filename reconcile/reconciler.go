// Package reconcile is the Reconciler (C5): drives the EditPlanner against
// a notify.ChatSink, on startup, after any DomainEvent touching an
// equipment, and on demand. Rate discipline (debounce + content-hash dedup)
// lives in debounce.go.
package reconcile

import (
	"context"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/editplan"
	"lsbgear/logging"
	"lsbgear/models"
	"lsbgear/notify"
)

type Reconciler struct {
	Store *db.Store
	Sink  notify.ChatSink
	Clock clock.Clock

	debouncer *debouncer
}

func New(store *db.Store, sink notify.ChatSink, clk clock.Clock) *Reconciler {
	r := &Reconciler{Store: store, Sink: sink, Clock: clk}
	r.debouncer = newDebouncer(r.reconcileEquipmentNow)
	return r
}

// Run starts the debounce worker; call once at startup alongside
// scheduler.Scheduler.Run. It returns once ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.debouncer.run(ctx)
}

// NotifyEquipmentChanged schedules a debounced re-render of one equipment's
// embed — the §4.5 obligation #2 path, never a full rebuild.
func (r *Reconciler) NotifyEquipmentChanged(guildID, equipmentID int64) {
	r.debouncer.schedule(equipmentKey{guildID: guildID, equipmentID: equipmentID})
}

func (r *Reconciler) tagNamesFor(ctx context.Context, guildID int64) (map[int64]string, error) {
	tags, err := r.Store.ListTags(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(tags))
	for _, t := range tags {
		out[t.ID] = t.Name
	}
	return out, nil
}

func (r *Reconciler) renderEquipment(ctx context.Context, eq models.Equipment, tagNames map[int64]string, now time.Time) (string, error) {
	tagName := ""
	if eq.TagID != nil {
		tagName = tagNames[*eq.TagID]
	}
	currentLoan, err := r.Store.CurrentLoan(ctx, eq.ID, now)
	if err != nil {
		return "", err
	}
	upcoming, err := r.Store.UpcomingConfirmed(ctx, eq.ID, now, upcomingLimit)
	if err != nil {
		return "", err
	}
	return RenderEquipmentEmbed(eq, tagName, currentLoan, upcoming), nil
}

// desiredMessages builds the full ordered desired list for a guild:
// [Header] ++ [EquipmentEmbed(eq_i)] in (tag.sort_order ASC NULLS LAST,
// equipment.name ASC) order, per §4.4.
func (r *Reconciler) desiredMessages(ctx context.Context, guildID int64) ([]editplan.Desired, error) {
	eqs, err := r.Store.ListEquipmentOrdered(ctx, guildID)
	if err != nil {
		return nil, err
	}
	tagNames, err := r.tagNamesFor(ctx, guildID)
	if err != nil {
		return nil, err
	}

	now := r.Clock.NowUTC()
	desired := []editplan.Desired{{Kind: models.MessageHeader, Content: RenderHeader(guildID)}}
	for _, eq := range eqs {
		content, err := r.renderEquipment(ctx, eq, tagNames, now)
		if err != nil {
			return nil, err
		}
		eqID := eq.ID
		desired = append(desired, editplan.Desired{
			Kind: models.MessageEquipmentEmbed, EquipmentID: &eqID, Content: content,
		})
	}
	return desired, nil
}

func (r *Reconciler) existingMessages(ctx context.Context, guildID int64) ([]editplan.Existing, []models.ManagedMessage, error) {
	rows, err := r.Store.ListManagedMessages(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}
	out := make([]editplan.Existing, len(rows))
	for i, m := range rows {
		out[i] = editplan.Existing{
			MessageID:   m.MessageID,
			Kind:        m.Kind,
			EquipmentID: m.EquipmentID,
			// ContentHash is the LastContentHash stored on the row when
			// apply last wrote this message; it is not recomputed here.
			ContentHash: m.ContentHash(),
		}
	}
	return out, rows, nil
}

// ReconcileGuildStartup implements §4.5 obligation #1.
func (r *Reconciler) ReconcileGuildStartup(ctx context.Context, guildID int64) error {
	guild, err := r.Store.GetGuild(ctx, guildID)
	if err != nil {
		return err
	}
	if guild.ReservationChannelID == nil {
		logging.Warnf("reconcile: guild %d has no reservation channel configured", guildID)
		return nil
	}
	return r.reconcile(ctx, guildID, *guild.ReservationChannelID)
}

// reconcileEquipmentNow is the debouncer's flush callback: re-render just
// one equipment's embed, never a full rebuild, per §4.5 obligation #2.
func (r *Reconciler) reconcileEquipmentNow(ctx context.Context, key equipmentKey) {
	guild, err := r.Store.GetGuild(ctx, key.guildID)
	if err != nil {
		logging.Errorf("reconcile: guild %d lookup failed: %v", key.guildID, err)
		return
	}
	if guild.ReservationChannelID == nil {
		return
	}
	eq, err := r.Store.GetEquipment(ctx, key.equipmentID)
	if err != nil {
		logging.Errorf("reconcile: equipment %d lookup failed: %v", key.equipmentID, err)
		return
	}
	tagNames, err := r.tagNamesFor(ctx, key.guildID)
	if err != nil {
		logging.Errorf("reconcile: tag lookup for guild %d failed: %v", key.guildID, err)
		return
	}
	content, err := r.renderEquipment(ctx, *eq, tagNames, r.Clock.NowUTC())
	if err != nil {
		logging.Errorf("reconcile: render equipment %d failed: %v", key.equipmentID, err)
		return
	}
	msg, err := r.Store.ManagedMessageForEquipment(ctx, key.guildID, key.equipmentID)
	if err != nil {
		// no managed message yet (new equipment) — fall through to a full
		// reconcile pass, which will Create it.
		if rerr := r.reconcile(ctx, key.guildID, *guild.ReservationChannelID); rerr != nil {
			logging.Errorf("reconcile: fallback full pass for guild %d failed: %v", key.guildID, rerr)
		}
		return
	}
	if msg.ContentHash() == editplan.HashOf(content) {
		return // §4.5 "drop duplicate edits whose rendered payload matches"
	}
	if err := r.Sink.EditMessage(ctx, msg.ChannelID, msg.MessageID, content); err != nil {
		logging.Errorf("reconcile: edit message %d failed: %v", msg.MessageID, err)
		return
	}
	msg.LastContentHash = editplan.HashOf(content)
	if err := r.Store.UpsertManagedMessage(ctx, msg); err != nil {
		logging.Errorf("reconcile: persist content hash for message %d failed: %v", msg.MessageID, err)
	}
}

// reconcile runs one full plan-and-apply pass for a guild's reservation
// channel, then updates managed_messages to reflect reality — §4.5
// obligation #1's final step.
func (r *Reconciler) reconcile(ctx context.Context, guildID, channelID int64) error {
	desired, err := r.desiredMessages(ctx, guildID)
	if err != nil {
		return err
	}
	existing, rows, err := r.existingMessages(ctx, guildID)
	if err != nil {
		return err
	}

	ops := editplan.Plan(desired, existing)
	byMessageID := make(map[int64]models.ManagedMessage, len(rows))
	for _, m := range rows {
		byMessageID[m.MessageID] = m
	}

	for i, op := range ops {
		if err := r.apply(ctx, guildID, channelID, op, byMessageID, i); err != nil {
			return err
		}
	}
	return r.deleteUserMessages(ctx, guildID, channelID)
}

// deleteUserMessages implements §4.5 obligation #3: ignore deletion
// failures after logging, never propagate them as a reconcile failure.
func (r *Reconciler) deleteUserMessages(ctx context.Context, guildID, channelID int64) error {
	managed, err := r.Store.ListManagedMessages(ctx, guildID)
	if err != nil {
		return err
	}
	ours := make(map[int64]bool, len(managed))
	for _, m := range managed {
		ours[m.MessageID] = true
	}
	msgs, err := r.Sink.ListChannelMessages(ctx, channelID, 0)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.IsBot || ours[m.MessageID] {
			continue
		}
		if err := r.Sink.DeleteMessage(ctx, channelID, m.MessageID); err != nil {
			logging.Warnf("reconcile: delete user message %d in channel %d failed: %v", m.MessageID, channelID, err)
		}
	}
	return nil
}
