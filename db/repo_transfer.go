package db

import (
	"context"
	"time"

	"lsbgear/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) PendingTransferForReservation(ctx context.Context, reservationID int64) (*models.TransferRequest, error) {
	var t models.TransferRequest
	err := s.DB.WithContext(ctx).
		Where("reservation_id = ? AND status = ?", reservationID, models.TransferPending).
		First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &t, err
}

func PendingTransferForReservationTx(tx *gorm.DB, reservationID int64) (*models.TransferRequest, error) {
	var t models.TransferRequest
	err := tx.Where("reservation_id = ? AND status = ?", reservationID, models.TransferPending).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &t, err
}

func InsertTransfer(tx *gorm.DB, t *models.TransferRequest) error {
	t.Status = models.TransferPending
	return tx.Create(t).Error
}

func GetTransferForUpdate(tx *gorm.DB, id int64) (*models.TransferRequest, error) {
	var t models.TransferRequest
	q := tx
	// SQLite has no row-level locking; its IMMEDIATE/EXCLUSIVE write
	// transaction already serializes writers, so clause.Locking is only
	// meaningful (and only supported) on Postgres.
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTransfer(ctx context.Context, id int64) (*models.TransferRequest, error) {
	var t models.TransferRequest
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func UpdateTransfer(tx *gorm.DB, t *models.TransferRequest) error {
	return tx.Save(t).Error
}

// ExpiredPendingTransfers returns Pending transfers whose ExpiresAtUTC has
// passed, for the TransferExpire job handler.
func (s *Store) ExpiredPendingTransfers(ctx context.Context, now time.Time, limit int) ([]models.TransferRequest, error) {
	var ts []models.TransferRequest
	err := s.DB.WithContext(ctx).
		Where("status = ? AND expires_at_utc <= ?", models.TransferPending, now).
		Order("expires_at_utc ASC").Limit(limit).Find(&ts).Error
	return ts, err
}

// DuePendingScheduledTransfers returns scheduled-execution Pending transfers
// whose execute_at_utc has arrived, for the TransferExecute job handler.
func (s *Store) DuePendingScheduledTransfers(ctx context.Context, now time.Time, limit int) ([]models.TransferRequest, error) {
	var ts []models.TransferRequest
	err := s.DB.WithContext(ctx).
		Where("status = ? AND execute_at_utc IS NOT NULL AND execute_at_utc <= ?", models.TransferPending, now).
		Order("execute_at_utc ASC").Limit(limit).Find(&ts).Error
	return ts, err
}
