package db

import (
	"context"

	"lsbgear/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateEquipment(ctx context.Context, e *models.Equipment) error {
	if e.Status == "" {
		e.Status = models.EquipmentAvailable
	}
	return s.DB.WithContext(ctx).Create(e).Error
}

func (s *Store) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	var e models.Equipment
	if err := s.DB.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEquipmentForUpdate locks the row inside tx — the first step of every
// reservation.Engine mutating operation (§4.3: "lock equipment row").
func GetEquipmentForUpdate(tx *gorm.DB, id int64) (*models.Equipment, error) {
	var e models.Equipment
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEquipmentOrdered returns desired-order equipment for the EditPlanner:
// (tag.sort_order ASC NULLS LAST, equipment.name ASC).
func (s *Store) ListEquipmentOrdered(ctx context.Context, guildID int64) ([]models.Equipment, error) {
	var eqs []models.Equipment
	err := s.DB.WithContext(ctx).
		Table("equipment AS e").
		Select("e.*").
		Joins("LEFT JOIN tags t ON t.id = e.tag_id").
		Where("e.guild_id = ?", guildID).
		Order("CASE WHEN t.sort_order IS NULL THEN 1 ELSE 0 END, t.sort_order ASC, e.name ASC").
		Find(&eqs).Error
	return eqs, err
}

func (s *Store) UpdateEquipmentStatus(tx *gorm.DB, id int64, status models.EquipmentStatus, location, reason *string) error {
	updates := map[string]any{"status": status}
	updates["current_location"] = location
	updates["unavailable_reason"] = reason
	return tx.Model(&models.Equipment{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) SetEquipmentMessageID(ctx context.Context, id int64, messageID int64) error {
	return s.DB.WithContext(ctx).Model(&models.Equipment{}).Where("id = ?", id).Update("message_id", messageID).Error
}

func (s *Store) AppendEquipmentLog(tx *gorm.DB, entry *models.EquipmentLog) error {
	return tx.Create(entry).Error
}

func (s *Store) ListEquipmentLogs(ctx context.Context, equipmentID int64, limit int) ([]models.EquipmentLog, error) {
	var logs []models.EquipmentLog
	q := s.DB.WithContext(ctx).Where("equipment_id = ?", equipmentID).Order("timestamp_utc DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return logs, q.Find(&logs).Error
}
