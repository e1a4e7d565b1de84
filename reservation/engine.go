package reservation

import (
	"context"
	"time"

	"lsbgear/db"
	"lsbgear/errs"
	"lsbgear/models"

	"gorm.io/gorm"
)

// Engine is the ReservationEngine (C3). Every mutating operation opens a
// single Store transaction following a lock-validate-mutate-audit shape:
// lock the row, validate, mutate, append an audit log entry, all inside
// one db.Store.Tx call.
type Engine struct {
	Store *db.Store
	Quota QuotaGuard
}

func New(store *db.Store, quota QuotaGuard) *Engine {
	if quota == nil {
		quota = noQuota{}
	}
	return &Engine{Store: store, Quota: quota}
}

func validateWindow(start, end time.Time) error {
	if !start.Before(end) {
		return errs.New(errs.InvalidInput, "start must be before end")
	}
	if end.Sub(start) > models.MaxReservationDuration {
		return errs.New(errs.InvalidInput, "window exceeds 60 day maximum")
	}
	return nil
}

func canActOnReservation(actor Actor, ownerUserID int64) bool {
	return actor.IsSelf(ownerUserID) || actor.IsAdminOrSystem()
}

// Create implements §4.3 create: lock equipment row; reject if
// Unavailable; run the overlap predicate; insert; log.
func (e *Engine) Create(ctx context.Context, actor Actor, equipmentID, userID int64, start, end time.Time, location *string, roleIDs []int64, now time.Time) (*models.Reservation, []Event, error) {
	if !canActOnReservation(actor, userID) {
		return nil, nil, errs.New(errs.PermissionDenied, "cannot reserve on behalf of another user")
	}
	if err := validateWindow(start, end); err != nil {
		return nil, nil, err
	}
	var out *models.Reservation
	var events []Event
	err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
		eq, err := db.GetEquipmentForUpdate(tx, equipmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "equipment not found")
			}
			return err
		}
		if eq.Status == models.EquipmentUnavailable {
			return errs.New(errs.InvalidInput, "equipment is unavailable")
		}
		conflicts, err := db.ConflictingReservations(tx, equipmentID, start, end, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return errs.WithData(errs.Conflict, "overlaps an existing reservation", conflicts)
		}
		if !actor.IsAdminOrSystem() {
			if err := e.Quota.Check(tx, eq.GuildID, userID, roleIDs, start, end, now); err != nil {
				return err
			}
		}
		r := &models.Reservation{
			EquipmentID: equipmentID,
			UserID:      userID,
			StartUTC:    start,
			EndUTC:      end,
			Location:    location,
			CreatedUTC:  now,
			UpdatedUTC:  now,
		}
		if err := db.InsertReservation(tx, r); err != nil {
			return err
		}
		if err := e.Store.AppendEquipmentLog(tx, &models.EquipmentLog{
			EquipmentID: equipmentID, ActorUserID: actor.UserID, Action: models.LogReserved,
			Location: location, TimestampUTC: now,
		}); err != nil {
			return err
		}
		out = r
		events = []Event{{Kind: EventReserved, EquipmentID: equipmentID, Reservation: r}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

// Modify implements §4.3 modify: same conflict predicate, excluding resID.
func (e *Engine) Modify(ctx context.Context, actor Actor, resID int64, newStart, newEnd *time.Time, newLocation *string, now time.Time) (*models.Reservation, []Event, error) {
	var out *models.Reservation
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
		start, end := r.StartUTC, r.EndUTC
		if newStart != nil {
			start = *newStart
		}
		if newEnd != nil {
			end = *newEnd
		}
		if err := validateWindow(start, end); err != nil {
			return err
		}
		conflicts, err := db.ConflictingReservations(tx, r.EquipmentID, start, end, r.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return errs.WithData(errs.Conflict, "overlaps an existing reservation", conflicts)
		}
		r.StartUTC, r.EndUTC = start, end
		if newLocation != nil {
			r.Location = newLocation
		}
		r.UpdatedUTC = now
		if err := db.UpdateReservation(tx, r); err != nil {
			return err
		}
		if err := e.Store.AppendEquipmentLog(tx, &models.EquipmentLog{
			EquipmentID: r.EquipmentID, ActorUserID: actor.UserID, Action: models.LogModified,
			Location: newLocation, TimestampUTC: now,
		}); err != nil {
			return err
		}
		out = r
		events = []Event{{Kind: EventModified, EquipmentID: r.EquipmentID, Reservation: r}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

// Cancel implements §4.3 cancel: marks Cancelled, logs, returns the prior
// reservation for downstream notifications.
func (e *Engine) Cancel(ctx context.Context, actor Actor, resID int64, now time.Time) (*models.Reservation, []Event, error) {
	var out *models.Reservation
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
		r.Status = models.ReservationCancelled
		r.UpdatedUTC = now
		if err := db.UpdateReservation(tx, r); err != nil {
			return err
		}
		if err := e.Store.AppendEquipmentLog(tx, &models.EquipmentLog{
			EquipmentID: r.EquipmentID, ActorUserID: actor.UserID, Action: models.LogCancelled,
			TimestampUTC: now,
		}); err != nil {
			return err
		}
		out = r
		events = []Event{
			{Kind: EventCancelled, EquipmentID: r.EquipmentID, Reservation: r},
			{Kind: EventFreed, EquipmentID: r.EquipmentID, Reservation: r},
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

// Return implements §4.3 return: sets returned_at_utc/return_location;
// does not shorten end_utc (decided in DESIGN.md — the window stays
// blocked until end_utc; early reuse is the waitlist's job, not a
// shrunk interval).
func (e *Engine) Return(ctx context.Context, actor Actor, resID int64, location *string, now time.Time) (*models.Reservation, []Event, error) {
	var out *models.Reservation
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
		if r.ReturnedAtUTC != nil {
			return errs.New(errs.NoOp, "already returned")
		}
		r.ReturnedAtUTC = &now
		r.ReturnLocation = location
		r.UpdatedUTC = now
		if err := db.UpdateReservation(tx, r); err != nil {
			return err
		}
		if err := e.Store.AppendEquipmentLog(tx, &models.EquipmentLog{
			EquipmentID: r.EquipmentID, ActorUserID: actor.UserID, Action: models.LogReturned,
			Location: location, TimestampUTC: now,
		}); err != nil {
			return err
		}
		out = r
		events = []Event{{Kind: EventReturned, EquipmentID: r.EquipmentID, Reservation: r}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

// correctionDeadline implements the shared window of return_undo and
// return_correct_location: now <= min(returned_at+1h, next_confirmed_start-15m).
func correctionDeadline(tx *gorm.DB, r *models.Reservation) (time.Time, error) {
	deadline := r.ReturnedAtUTC.Add(1 * time.Hour)
	next, err := db.NextConfirmedStart(tx, r.EquipmentID, r.EndUTC.Add(-1))
	if err != nil {
		return time.Time{}, err
	}
	if next != nil {
		if alt := next.Add(-15 * time.Minute); alt.Before(deadline) {
			deadline = alt
		}
	}
	return deadline, nil
}

// ReturnUndo implements §4.3 return_undo: permitted only inside the
// correction window.
func (e *Engine) ReturnUndo(ctx context.Context, actor Actor, resID int64, now time.Time) (*models.Reservation, []Event, error) {
	var out *models.Reservation
	var events []Event
	err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
		r, err := db.GetReservationForUpdate(tx, resID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "reservation not found")
			}
			return err
		}
		if r.ReturnedAtUTC == nil {
			return errs.New(errs.InvalidInput, "reservation was not returned")
		}
		if !canActOnReservation(actor, r.UserID) {
			return errs.New(errs.PermissionDenied, "not the owner")
		}
		deadline, err := correctionDeadline(tx, r)
		if err != nil {
			return err
		}
		if now.After(deadline) {
			return errs.New(errs.WindowExpired, "correction window has passed")
		}
		r.ReturnedAtUTC = nil
		r.ReturnLocation = nil
		r.UpdatedUTC = now
		if err := db.UpdateReservation(tx, r); err != nil {
			return err
		}
		if err := e.Store.AppendEquipmentLog(tx, &models.EquipmentLog{
			EquipmentID: r.EquipmentID, ActorUserID: actor.UserID, Action: models.LogReturnUndo,
			TimestampUTC: now,
		}); err != nil {
			return err
		}
		out = r
		events = []Event{{Kind: EventStatusChanged, EquipmentID: r.EquipmentID, Reservation: r}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

// ReturnCorrectLocation implements §4.3 return_correct_location: same
// window as ReturnUndo, but corrects the location instead of undoing.
func (e *Engine) ReturnCorrectLocation(ctx context.Context, actor Actor, resID int64, location *string, now time.Time) (*models.Reservation, []Event, error) {
	var out *models.Reservation
	var events []Event
	err := e.Store.Tx(ctx, func(tx *gorm.DB) error {
		r, err := db.GetReservationForUpdate(tx, resID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.New(errs.NotFound, "reservation not found")
			}
			return err
		}
		if r.ReturnedAtUTC == nil {
			return errs.New(errs.InvalidInput, "reservation was not returned")
		}
		if !canActOnReservation(actor, r.UserID) {
			return errs.New(errs.PermissionDenied, "not the owner")
		}
		deadline, err := correctionDeadline(tx, r)
		if err != nil {
			return err
		}
		if now.After(deadline) {
			return errs.New(errs.WindowExpired, "correction window has passed")
		}
		r.ReturnLocation = location
		r.UpdatedUTC = now
		if err := db.UpdateReservation(tx, r); err != nil {
			return err
		}
		if err := e.Store.AppendEquipmentLog(tx, &models.EquipmentLog{
			EquipmentID: r.EquipmentID, ActorUserID: actor.UserID, Action: models.LogReturned,
			Location: location, Notes: strPtr("location correction"), TimestampUTC: now,
		}); err != nil {
			return err
		}
		out = r
		events = []Event{{Kind: EventStatusChanged, EquipmentID: r.EquipmentID, Reservation: r}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, events, nil
}

func strPtr(s string) *string { return &s }
