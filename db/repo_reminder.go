package db

import (
	"context"
	"time"

	"lsbgear/models"

	"gorm.io/gorm/clause"
)

// MarkReminderSent records the idempotency ledger row for (reservationID,
// kind). A duplicate is a no-op, not an error — the scheduler's at-least-
// once delivery guarantee relies on this being safe to call twice.
func (s *Store) MarkReminderSent(ctx context.Context, reservationID int64, kind models.ReminderKind, sentAt time.Time, delivery models.DeliveryMethod) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SentReminder{
		ReservationID: reservationID,
		Kind:          kind,
		SentAtUTC:     sentAt,
		Delivery:      delivery,
	}).Error
}

func (s *Store) WasReminderSent(ctx context.Context, reservationID int64, kind models.ReminderKind) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.SentReminder{}).
		Where("reservation_id = ? AND kind = ?", reservationID, kind).Count(&n).Error
	return n > 0, err
}

func (s *Store) SentReminderKinds(ctx context.Context, reservationID int64) ([]models.ReminderKind, error) {
	var kinds []models.ReminderKind
	err := s.DB.WithContext(ctx).Model(&models.SentReminder{}).
		Where("reservation_id = ?", reservationID).Pluck("kind", &kinds).Error
	return kinds, err
}
