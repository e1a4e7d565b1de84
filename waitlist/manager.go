// Package waitlist is the WaitlistManager (C12): a FIFO queue per
// equipment+window, offering a freed slot to the head of the queue with a
// time-boxed hold, grounded in original_source/src/waitlist.rs.
package waitlist

import (
	"context"
	"fmt"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/errs"
	"lsbgear/models"
	"lsbgear/notify"
	"lsbgear/reservation"

	"gorm.io/gorm"
)

// Manager is the stateless C12 component; all state lives in
// waitlist_entries/waitlist_offers.
type Manager struct {
	Store    *db.Store
	Notifier *notify.Notifier
	Clock    clock.Clock
}

func New(store *db.Store, notifier *notify.Notifier, clk clock.Clock) *Manager {
	return &Manager{Store: store, Notifier: notifier, Clock: clk}
}

func offerDedupeKey(offerID int64) string { return fmt.Sprintf("wl_off_exp:%d", offerID) }

// Join implements waitlist.rs::join_waitlist: rejects InvalidTimeWindow
// (start in the past, start>=end) and Duplicate if the user already holds
// a Waiting/Offered entry for the same equipment with an overlapping
// desired window.
func (m *Manager) Join(ctx context.Context, guildID, equipmentID, userID int64, start, end time.Time) (*models.WaitlistEntry, error) {
	now := m.Clock.NowUTC()
	if !start.Before(end) {
		return nil, errs.New(errs.InvalidInput, "start must be before end")
	}
	if !start.After(now) {
		return nil, errs.New(errs.InvalidInput, "start must be in the future")
	}

	var out *models.WaitlistEntry
	err := m.Store.Tx(ctx, func(tx *gorm.DB) error {
		exists, err := db.ActiveWaitlistEntryExists(tx, equipmentID, userID, start, end)
		if err != nil {
			return err
		}
		if exists {
			return errs.New(errs.Duplicate, "already waiting for this equipment and window")
		}
		e := &models.WaitlistEntry{
			GuildID: guildID, EquipmentID: equipmentID, UserID: userID,
			DesiredStartUTC: start, DesiredEndUTC: end, CreatedUTC: now,
		}
		if err := db.InsertWaitlistEntry(tx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// Cancel marks a Waiting or Offered entry Cancelled. It does not touch an
// Offered entry's pending offer and does not call OfferNext; that offer
// stays Pending until its own expiry job handles it.
func (m *Manager) Cancel(ctx context.Context, entryID, userID int64) error {
	return m.Store.Tx(ctx, func(tx *gorm.DB) error {
		var e models.WaitlistEntry
		if err := tx.First(&e, "id = ?", entryID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "waitlist entry not found")
			}
			return err
		}
		if e.UserID != userID {
			return errs.New(errs.PermissionDenied, "not your waitlist entry")
		}
		if e.Status != models.WaitlistWaiting && e.Status != models.WaitlistOffered {
			return errs.New(errs.NoOp, "entry is not active")
		}
		e.Status = models.WaitlistCancelled
		return db.UpdateWaitlistEntry(tx, &e)
	})
}

// OfferNext implements create_offer_for_available_window +
// trigger_waitlist_processing: pops the oldest Waiting entry whose desired
// window fits inside [freedStart,freedEnd), creates a 30-minute
// WaitlistOffer, and notifies the user. A no-op (not an error) when the
// queue is empty for this equipment+window.
func (m *Manager) OfferNext(ctx context.Context, equipmentID int64, freedStart, freedEnd time.Time, equipmentName string, fallbackChannelID *int64, dmFallback bool) (*models.WaitlistOffer, error) {
	now := m.Clock.NowUTC()
	var offer *models.WaitlistOffer
	var entry *models.WaitlistEntry
	err := m.Store.Tx(ctx, func(tx *gorm.DB) error {
		e, err := db.OldestWaitingFor(tx, equipmentID, freedStart, freedEnd)
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}
		e.Status = models.WaitlistOffered
		if err := db.UpdateWaitlistEntry(tx, e); err != nil {
			return err
		}
		o := &models.WaitlistOffer{
			WaitlistEntryID: e.ID,
			OfferedStartUTC: e.DesiredStartUTC,
			OfferedEndUTC:   e.DesiredEndUTC,
			ExpiresAtUTC:    now.Add(models.WaitlistOfferWindow),
			CreatedUTC:      now,
		}
		if err := db.InsertWaitlistOffer(tx, o); err != nil {
			return err
		}
		entry, offer = e, o
		return nil
	})
	if err != nil || offer == nil {
		return nil, err
	}

	if _, err := m.Store.EnqueueJob(ctx, offerExpireJob(offer)); err != nil {
		return offer, err
	}
	m.notifyOffer(ctx, entry, offer, equipmentName, fallbackChannelID, dmFallback)
	return offer, nil
}

func offerExpireJob(o *models.WaitlistOffer) *models.Job {
	return &models.Job{
		JobType:         models.JobWaitlistOfferExpire,
		Payload:         fmt.Sprintf("%d", o.ID),
		ScheduledForUTC: o.ExpiresAtUTC,
		DedupeKey:       strPtr(offerDedupeKey(o.ID)),
	}
}

// notifyOffer sends the DM-then-channel-fallback notification for a new
// offer, recording delivery under the negative pseudo reservation ID trick
// the original source uses to share the sent_reminders ledger.
func (m *Manager) notifyOffer(ctx context.Context, entry *models.WaitlistEntry, offer *models.WaitlistOffer, equipmentName string, fallbackChannelID *int64, dmFallback bool) {
	msg := fmt.Sprintf(
		"Equipment available: %s\nAvailable %s to %s (JST)\nOffer expires %s\nAccept with wl:accept:%d or decline with wl:decline:%d",
		equipmentName,
		clock.FormatJST(offer.OfferedStartUTC), clock.FormatJST(offer.OfferedEndUTC),
		clock.FormatJSTWithMarker(offer.ExpiresAtUTC), offer.ID, offer.ID,
	)
	if _, err := m.Notifier.Notify(ctx, entry.UserID, -offer.ID, models.ReminderWaitlistOffer, msg, fallbackChannelID, dmFallback); err != nil {
		// delivery failure is already recorded as DeliveryFailed by Notify;
		// the offer itself still stands until it expires.
		_ = err
	}
}

// Accept implements accept_offer, re-validated against the live equipment
// state since the slot can race with another booking between offer and
// accept.
func (m *Manager) Accept(ctx context.Context, offerID int64, actor reservation.Actor, engine *reservation.Engine, roleIDs []int64) (*models.Reservation, error) {
	now := m.Clock.NowUTC()
	offer, err := m.Store.GetWaitlistOffer(ctx, offerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.New(errs.NotFound, "offer not found")
		}
		return nil, err
	}
	if offer.Status != models.OfferPending {
		return nil, errs.New(errs.InvalidInput, "offer is no longer pending")
	}
	if now.After(offer.ExpiresAtUTC) {
		return nil, errs.New(errs.WindowExpired, "offer has expired")
	}
	entry, err := m.Store.GetWaitlistEntry(ctx, offer.WaitlistEntryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != actor.UserID {
		return nil, errs.New(errs.PermissionDenied, "not your offer")
	}

	r, _, err := engine.Create(ctx, actor, entry.EquipmentID, entry.UserID, offer.OfferedStartUTC, offer.OfferedEndUTC, nil, roleIDs, now)
	if err != nil {
		return nil, err
	}

	if err := m.Store.Tx(ctx, func(tx *gorm.DB) error {
		offer.Status = models.OfferAccepted
		if err := db.UpdateWaitlistOffer(tx, offer); err != nil {
			return err
		}
		entry.Status = models.WaitlistClaimed
		return db.UpdateWaitlistEntry(tx, entry)
	}); err != nil {
		return r, err
	}
	return r, m.Store.CancelPendingByDedupeKey(ctx, offerDedupeKey(offer.ID))
}

// Decline implements decline_offer, re-offering the freed window to the
// next entry in the queue. The declining entry is dropped from the queue
// entirely rather than reset to Waiting, or OfferNext would immediately
// re-match it to the same window it just turned down.
func (m *Manager) Decline(ctx context.Context, offerID int64, userID int64, equipmentName string, fallbackChannelID *int64, dmFallback bool) error {
	offer, entry, err := m.settle(ctx, offerID, userID, models.OfferDeclined, models.WaitlistCancelled)
	if err != nil {
		return err
	}
	if err := m.Store.CancelPendingByDedupeKey(ctx, offerDedupeKey(offer.ID)); err != nil {
		return err
	}
	_, err = m.OfferNext(ctx, entry.EquipmentID, offer.OfferedStartUTC, offer.OfferedEndUTC, equipmentName, fallbackChannelID, dmFallback)
	return err
}

// settle transitions a Pending offer, verifying ownership, and resets the
// waitlist entry to resetEntryStatus (Waiting to re-queue it, or a terminal
// status if the caller wants the entry dropped entirely).
func (m *Manager) settle(ctx context.Context, offerID, userID int64, final models.WaitlistOfferStatus, resetEntryStatus models.WaitlistEntryStatus) (*models.WaitlistOffer, *models.WaitlistEntry, error) {
	var offer models.WaitlistOffer
	var entry models.WaitlistEntry
	err := m.Store.Tx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&offer, "id = ?", offerID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "offer not found")
			}
			return err
		}
		if offer.Status != models.OfferPending {
			return errs.New(errs.NoOp, "offer is not pending")
		}
		if err := tx.First(&entry, "id = ?", offer.WaitlistEntryID).Error; err != nil {
			return err
		}
		if entry.UserID != userID {
			return errs.New(errs.PermissionDenied, "not your offer")
		}
		offer.Status = final
		if err := db.UpdateWaitlistOffer(tx, &offer); err != nil {
			return err
		}
		entry.Status = resetEntryStatus
		return db.UpdateWaitlistEntry(tx, &entry)
	})
	return &offer, &entry, err
}

// ExpireOffer is the scheduler handler body for JobWaitlistOfferExpire: if
// still Pending past expiry, mark it Expired and re-offer the window to the
// next entry in the queue (process_expired_offers, generalized per-offer
// since our job queue dedupes per offer rather than batch-sweeping).
func (m *Manager) ExpireOffer(ctx context.Context, offerID int64, equipmentName string, fallbackChannelID *int64, dmFallback bool) error {
	now := m.Clock.NowUTC()
	offer, err := m.Store.GetWaitlistOffer(ctx, offerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	if offer.Status != models.OfferPending || now.Before(offer.ExpiresAtUTC) {
		return nil // already settled, or not actually due yet
	}
	entry, err := m.Store.GetWaitlistEntry(ctx, offer.WaitlistEntryID)
	if err != nil {
		return err
	}
	if err := m.Store.Tx(ctx, func(tx *gorm.DB) error {
		offer.Status = models.OfferExpired
		if err := db.UpdateWaitlistOffer(tx, offer); err != nil {
			return err
		}
		// dropped, not reset to Waiting -- OldestWaitingFor would otherwise
		// immediately re-match this same entry to the window it just missed.
		entry.Status = models.WaitlistExpired
		return db.UpdateWaitlistEntry(tx, entry)
	}); err != nil {
		return err
	}
	_, err = m.OfferNext(ctx, entry.EquipmentID, offer.OfferedStartUTC, offer.OfferedEndUTC, equipmentName, fallbackChannelID, dmFallback)
	return err
}

func strPtr(s string) *string { return &s }
