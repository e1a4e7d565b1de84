package db

import (
	"context"

	"lsbgear/models"
)

func (s *Store) ListManagedMessages(ctx context.Context, guildID int64) ([]models.ManagedMessage, error) {
	var ms []models.ManagedMessage
	err := s.DB.WithContext(ctx).Where("guild_id = ?", guildID).Order("sort_order ASC").Find(&ms).Error
	return ms, err
}

func (s *Store) UpsertManagedMessage(ctx context.Context, m *models.ManagedMessage) error {
	if m.ID != 0 {
		return s.DB.WithContext(ctx).Save(m).Error
	}
	return s.DB.WithContext(ctx).Create(m).Error
}

func (s *Store) DeleteManagedMessage(ctx context.Context, id int64) error {
	return s.DB.WithContext(ctx).Delete(&models.ManagedMessage{}, "id = ?", id).Error
}

func (s *Store) DeleteManagedMessagesByGuild(ctx context.Context, guildID int64) error {
	return s.DB.WithContext(ctx).Delete(&models.ManagedMessage{}, "guild_id = ?", guildID).Error
}

func (s *Store) ManagedMessageForEquipment(ctx context.Context, guildID, equipmentID int64) (*models.ManagedMessage, error) {
	var m models.ManagedMessage
	err := s.DB.WithContext(ctx).Where("guild_id = ? AND equipment_id = ?", guildID, equipmentID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
