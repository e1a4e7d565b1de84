package db

import (
	"context"
	"time"

	"lsbgear/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConflictingReservations runs the §4.3 overlap predicate:
//   SELECT ... WHERE equipment_id=? AND status='Confirmed' AND start < :end AND end > :start
// excluding excludeResID when non-zero (used by modify).
func ConflictingReservations(tx *gorm.DB, equipmentID int64, start, end time.Time, excludeResID int64) ([]models.Reservation, error) {
	var rows []models.Reservation
	q := tx.Where(
		"equipment_id = ? AND status = ? AND start_utc < ? AND end_utc > ?",
		equipmentID, models.ReservationConfirmed, end, start,
	)
	if excludeResID != 0 {
		q = q.Where("id <> ?", excludeResID)
	}
	return rows, q.Find(&rows).Error
}

func InsertReservation(tx *gorm.DB, r *models.Reservation) error {
	r.Status = models.ReservationConfirmed
	return tx.Create(r).Error
}

func GetReservationForUpdate(tx *gorm.DB, id int64) (*models.Reservation, error) {
	var r models.Reservation
	q := tx
	// SQLite has no row-level locking; its IMMEDIATE/EXCLUSIVE write
	// transaction already serializes writers, so clause.Locking is only
	// meaningful (and only supported) on Postgres.
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.DB.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func UpdateReservation(tx *gorm.DB, r *models.Reservation) error {
	return tx.Save(r).Error
}

// NextConfirmedStart returns the start time of the soonest upcoming
// Confirmed reservation on equipmentID after `after`, used by the
// return-correction window rule (§4.3 return_undo/return_correct_location).
func NextConfirmedStart(tx *gorm.DB, equipmentID int64, after time.Time) (*time.Time, error) {
	var r models.Reservation
	err := tx.Where("equipment_id = ? AND status = ? AND start_utc > ?", equipmentID, models.ReservationConfirmed, after).
		Order("start_utc ASC").First(&r).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r.StartUTC, nil
}

// UpcomingConfirmed returns up to `limit` upcoming Confirmed reservations on
// equipmentID, used by the embed renderer's "next up-to-5" line.
func (s *Store) UpcomingConfirmed(ctx context.Context, equipmentID int64, after time.Time, limit int) ([]models.Reservation, error) {
	var rs []models.Reservation
	err := s.DB.WithContext(ctx).
		Where("equipment_id = ? AND status = ? AND end_utc > ?", equipmentID, models.ReservationConfirmed, after).
		Order("start_utc ASC").Limit(limit).Find(&rs).Error
	return rs, err
}

// CurrentLoan returns the Confirmed, not-yet-returned reservation that
// covers `at`, if any — the basis for the embed's "Loaned — @user" line.
func (s *Store) CurrentLoan(ctx context.Context, equipmentID int64, at time.Time) (*models.Reservation, error) {
	var r models.Reservation
	err := s.DB.WithContext(ctx).
		Where("equipment_id = ? AND status = ? AND returned_at_utc IS NULL AND start_utc <= ? AND end_utc > ?", equipmentID, models.ReservationConfirmed, at, at).
		Order("start_utc ASC").First(&r).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &r, err
}

// ListForExport returns all reservations joined with equipment name for the
// CSV export (§6), optionally filtered by guild/equipment/user/status/date.
type ExportFilter struct {
	GuildID     int64
	EquipmentID *int64
	UserID      *int64
	Status      *models.ReservationStatus
	From, To    *time.Time
}

type ExportRow struct {
	ReservationID  int64
	EquipmentName  string
	UserID         int64
	StartUTC       time.Time
	EndUTC         time.Time
	Status         models.ReservationStatus
	Location       *string
	ReturnedAtUTC  *time.Time
	ReturnLocation *string
}

func (s *Store) ListForExport(ctx context.Context, f ExportFilter) ([]ExportRow, error) {
	q := s.DB.WithContext(ctx).
		Table("reservations AS r").
		Select("r.id AS reservation_id, e.name AS equipment_name, r.user_id, r.start_utc, r.end_utc, r.status, r.location, r.returned_at_utc, r.return_location").
		Joins("JOIN equipment e ON e.id = r.equipment_id").
		Where("e.guild_id = ?", f.GuildID)

	if f.EquipmentID != nil {
		q = q.Where("r.equipment_id = ?", *f.EquipmentID)
	}
	if f.UserID != nil {
		q = q.Where("r.user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("r.status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("r.start_utc >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("r.start_utc < ?", *f.To)
	}

	var rows []ExportRow
	return rows, q.Order("r.start_utc ASC").Find(&rows).Error
}

// ActiveReservationCount and overlap/hour helpers back quota.Guard.

func ActiveReservationCount(tx *gorm.DB, userID int64, now time.Time) (int64, error) {
	var n int64
	err := tx.Model(&models.Reservation{}).
		Where("user_id = ? AND status = ? AND end_utc > ?", userID, models.ReservationConfirmed, now).
		Count(&n).Error
	return n, err
}

func OverlappingUserReservationCount(tx *gorm.DB, userID int64, start, end time.Time) (int64, error) {
	var n int64
	err := tx.Model(&models.Reservation{}).
		Where("user_id = ? AND status = ? AND start_utc < ? AND end_utc > ?", userID, models.ReservationConfirmed, end, start).
		Count(&n).Error
	return n, err
}

// ReservedHoursSince sums the hours of the user's Confirmed reservations
// whose window starts on/after `since`.
func ReservedHoursSince(tx *gorm.DB, userID int64, since time.Time) (float64, error) {
	var rs []models.Reservation
	if err := tx.Where("user_id = ? AND status = ? AND start_utc >= ?", userID, models.ReservationConfirmed, since).Find(&rs).Error; err != nil {
		return 0, err
	}
	var hours float64
	for _, r := range rs {
		hours += r.EndUTC.Sub(r.StartUTC).Hours()
	}
	return hours, nil
}
