package reservation

import (
	"context"
	"time"

	"lsbgear/db"
	"lsbgear/errs"
	"lsbgear/models"

	"gorm.io/gorm"
)

// IsBotFunc lets the caller supply a platform-specific "is this a bot
// account" predicate without the engine importing a chat-transport package.
type IsBotFunc func(userID int64) bool

// RequestTransfer implements §4.3 request_transfer. NoOp (target equals
// current owner) is a data-integrity guard, not a permission check — see
// DESIGN.md's Open Question decision — so no capability bypasses it.
func (e *Engine) RequestTransfer(ctx context.Context, actor Actor, resID, toUser int64, executeAt *time.Time, note *string, isBot IsBotFunc, now time.Time) (*models.TransferRequest, []Event, error) {
	var out *models.TransferRequest
	var events []Event
	err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
		r, err := db.GetReservationForUpdate(tx, resID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "reservation not found")
			}
			return err
		}
		if r.Status != models.ReservationConfirmed {
			return errs.New(errs.InvalidInput, "reservation is not active")
		}
		if !canActOnReservation(actor, r.UserID) {
			return errs.New(errs.PermissionDenied, "not the owner")
		}
		if toUser == r.UserID {
			return errs.New(errs.NoOp, "target is already the current owner")
		}
		if isBot != nil && isBot(toUser) {
			return errs.New(errs.InvalidInput, "target cannot be a bot account")
		}
		existing, err := db.PendingTransferForReservationTx(tx, resID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.New(errs.Duplicate, "a transfer request is already pending")
		}
		if executeAt != nil {
			lo := now
			if r.StartUTC.After(lo) {
				lo = r.StartUTC
			}
			if executeAt.Before(lo) || !executeAt.Before(r.EndUTC) {
				return errs.New(errs.InvalidInput, "execute_at must fall within [max(now,start), end)")
			}
		}
		t := &models.TransferRequest{
			ReservationID:     resID,
			FromUserID:        r.UserID,
			ToUserID:          toUser,
			RequestedByUserID: actor.UserID,
			ExecuteAtUTC:      executeAt,
			Note:              note,
			CreatedUTC:        now,
			UpdatedUTC:        now,
		}
		if executeAt != nil {
			t.ExpiresAtUTC = *executeAt
		} else {
			t.ExpiresAtUTC = now.Add(models.TransferExpiryWindow)
		}
		if err := db.InsertTransfer(tx, t); err != nil {
			return err
		}
		out = t
		events = []Event{{Kind: EventTransferred, EquipmentID: r.EquipmentID, Reservation: r, Transfer: t}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

func (e *Engine) executeTransfer(tx *gorm.DB, t *models.TransferRequest, r *models.Reservation, now time.Time) error {
	r.UserID = t.ToUserID
	r.UpdatedUTC = now
	if err := db.UpdateReservation(tx, r); err != nil {
		return err
	}
	t.Status = models.TransferExecuted
	t.UpdatedUTC = now
	if err := db.UpdateTransfer(tx, t); err != nil {
		return err
	}
	return e.Store.AppendEquipmentLog(tx, &models.EquipmentLog{
		EquipmentID: r.EquipmentID, ActorUserID: t.RequestedByUserID, Action: models.LogTransferred,
		TimestampUTC: now,
	})
}

// AcceptTransfer implements §4.3 accept_transfer (actor must be to_user).
func (e *Engine) AcceptTransfer(ctx context.Context, actor Actor, reqID int64, now time.Time) (*models.TransferRequest, []Event, error) {
	var out *models.TransferRequest
	var events []Event
	err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
		t, err := db.GetTransferForUpdate(tx, reqID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "transfer request not found")
			}
			return err
		}
		if t.Status != models.TransferPending {
			return errs.New(errs.InvalidInput, "transfer request is not pending")
		}
		if !(actor.Has(CapSelf) && actor.UserID == t.ToUserID) && !actor.IsAdminOrSystem() {
			return errs.New(errs.PermissionDenied, "only the transfer target may accept")
		}
		r, err := db.GetReservationForUpdate(tx, t.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != models.ReservationConfirmed {
			t.Status = models.TransferCancelled
			t.UpdatedUTC = now
			_ = db.UpdateTransfer(tx, t)
			return errs.New(errs.InvalidInput, "reservation is no longer active")
		}
		if err := e.executeTransfer(tx, t, r, now); err != nil {
			return err
		}
		out = t
		events = []Event{{Kind: EventTransferred, EquipmentID: r.EquipmentID, Reservation: r, Transfer: t}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

// DenyTransfer implements §4.3 deny_transfer (actor must be to_user, or admin).
func (e *Engine) DenyTransfer(ctx context.Context, actor Actor, reqID int64, now time.Time) (*models.TransferRequest, []Event, error) {
	return e.settleTransfer(ctx, actor, reqID, models.TransferDenied, func(t *models.TransferRequest) bool {
		return (actor.Has(CapSelf) && actor.UserID == t.ToUserID) || actor.IsAdminOrSystem()
	}, now)
}

// CancelTransfer implements §4.3 cancel_transfer (actor in {requested_by, admin}).
func (e *Engine) CancelTransfer(ctx context.Context, actor Actor, reqID int64, now time.Time) (*models.TransferRequest, []Event, error) {
	return e.settleTransfer(ctx, actor, reqID, models.TransferCancelled, func(t *models.TransferRequest) bool {
		return (actor.Has(CapSelf) && actor.UserID == t.RequestedByUserID) || actor.IsAdminOrSystem()
	}, now)
}

func (e *Engine) settleTransfer(ctx context.Context, actor Actor, reqID int64, finalStatus models.TransferStatus, allowed func(*models.TransferRequest) bool, now time.Time) (*models.TransferRequest, []Event, error) {
	var out *models.TransferRequest
	var events []Event
	err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
		t, err := db.GetTransferForUpdate(tx, reqID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "transfer request not found")
			}
			return err
		}
		if t.Status != models.TransferPending {
			return errs.New(errs.InvalidInput, "transfer request is not pending")
		}
		if !allowed(t) {
			return errs.New(errs.PermissionDenied, "not permitted to settle this transfer")
		}
		t.Status = finalStatus
		t.UpdatedUTC = now
		if finalStatus == models.TransferCancelled {
			uid := actor.UserID
			t.CanceledAtUTC = &now
			t.CanceledByUserID = &uid
		}
		if err := db.UpdateTransfer(tx, t); err != nil {
			return err
		}
		out = t
		var r models.Reservation
		if err := tx.First(&r, "id = ?", t.ReservationID).Error; err != nil {
			return err
		}
		events = []Event{{Kind: EventStatusChanged, EquipmentID: r.EquipmentID, Transfer: t}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

// ExpireOverdueTransfers implements §4.3 expire_overdue_transfers, invoked
// by the JobScheduler's TransferExpire handler. Awaiting-approval transfers
// past their expiry become Expired; scheduled-execution transfers past
// execute_at are executed if the reservation is still Confirmed, else
// Cancelled(reason=ReservationEnded) per the §4.3 state machine.
func (e *Engine) ExpireOverdueTransfers(ctx context.Context, now time.Time) ([]Event, error) {
	var events []Event
	awaiting, err := e.Store.ExpiredPendingTransfers(ctx, now, 100)
	if err != nil {
		return nil, err
	}
	for _, t := range awaiting {
		if t.IsScheduled() {
			continue
		}
		t := t
		var equipmentID int64
		if err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
			cur, err := db.GetTransferForUpdate(tx, t.ID)
			if err != nil {
				return err
			}
			if cur.Status != models.TransferPending {
				return nil
			}
			var r models.Reservation
			if err := tx.First(&r, "id = ?", cur.ReservationID).Error; err != nil {
				return err
			}
			equipmentID = r.EquipmentID
			cur.Status = models.TransferExpired
			cur.UpdatedUTC = now
			return db.UpdateTransfer(tx, cur)
		}); err != nil {
			return events, err
		}
		if equipmentID != 0 {
			events = append(events, Event{Kind: EventStatusChanged, EquipmentID: equipmentID, Transfer: &t})
		}
	}

	due, err := e.Store.DuePendingScheduledTransfers(ctx, now, 100)
	if err != nil {
		return events, err
	}
	for _, t := range due {
		t := t
		var ev *Event
		if err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
			cur, err := db.GetTransferForUpdate(tx, t.ID)
			if err != nil {
				return err
			}
			if cur.Status != models.TransferPending {
				return nil
			}
			r, err := db.GetReservationForUpdate(tx, cur.ReservationID)
			if err != nil {
				return err
			}
			if r.Status != models.ReservationConfirmed {
				cur.Status = models.TransferCancelled
				cur.UpdatedUTC = now
				if err := db.UpdateTransfer(tx, cur); err != nil {
					return err
				}
				ev = &Event{Kind: EventStatusChanged, EquipmentID: r.EquipmentID, Transfer: cur}
				return nil
			}
			if err := e.executeTransfer(tx, cur, r, now); err != nil {
				return err
			}
			ev = &Event{Kind: EventTransferred, EquipmentID: r.EquipmentID, Reservation: r, Transfer: cur}
			return nil
		}); err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}
