package db

import (
	"context"
	"time"

	"lsbgear/models"

	"gorm.io/gorm"
)

func InsertWaitlistEntry(tx *gorm.DB, e *models.WaitlistEntry) error {
	e.Status = models.WaitlistWaiting
	return tx.Create(e).Error
}

func ActiveWaitlistEntryExists(tx *gorm.DB, equipmentID, userID int64, start, end time.Time) (bool, error) {
	var n int64
	err := tx.Model(&models.WaitlistEntry{}).
		Where("equipment_id = ? AND user_id = ? AND status IN ? AND desired_start_utc < ? AND desired_end_utc > ?",
			equipmentID, userID, []models.WaitlistEntryStatus{models.WaitlistWaiting, models.WaitlistOffered}, end, start).
		Count(&n).Error
	return n > 0, err
}

// OldestWaitingFor returns the oldest Waiting entry for equipmentID whose
// desired window fits within [start,end), implementing FIFO order.
func OldestWaitingFor(tx *gorm.DB, equipmentID int64, start, end time.Time) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	err := tx.Where(
		"equipment_id = ? AND status = ? AND desired_start_utc >= ? AND desired_end_utc <= ?",
		equipmentID, models.WaitlistWaiting, start, end,
	).Order("created_utc ASC").First(&e).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &e, err
}

func UpdateWaitlistEntry(tx *gorm.DB, e *models.WaitlistEntry) error {
	return tx.Save(e).Error
}

func (s *Store) GetWaitlistEntry(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	if err := s.DB.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func InsertWaitlistOffer(tx *gorm.DB, o *models.WaitlistOffer) error {
	o.Status = models.OfferPending
	return tx.Create(o).Error
}

func (s *Store) GetWaitlistOffer(ctx context.Context, id int64) (*models.WaitlistOffer, error) {
	var o models.WaitlistOffer
	if err := s.DB.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func UpdateWaitlistOffer(tx *gorm.DB, o *models.WaitlistOffer) error {
	return tx.Save(o).Error
}

func (s *Store) ExpiredPendingOffers(ctx context.Context, now time.Time, limit int) ([]models.WaitlistOffer, error) {
	var os []models.WaitlistOffer
	err := s.DB.WithContext(ctx).
		Where("status = ? AND expires_at_utc <= ?", models.OfferPending, now).
		Order("expires_at_utc ASC").Limit(limit).Find(&os).Error
	return os, err
}
