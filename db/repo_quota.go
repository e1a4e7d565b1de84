package db

import (
	"context"

	"lsbgear/models"

	"gorm.io/gorm"
)

func (s *Store) GetQuotaSettings(ctx context.Context, guildID int64) (*models.QuotaSettings, error) {
	var q models.QuotaSettings
	err := s.DB.WithContext(ctx).First(&q, "guild_id = ?", guildID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &q, err
}

func (s *Store) UpsertQuotaSettings(ctx context.Context, q *models.QuotaSettings) error {
	return s.DB.WithContext(ctx).Save(q).Error
}

func (s *Store) ListRoleOverrides(ctx context.Context, guildID int64, roleIDs []int64) ([]models.QuotaRoleOverride, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var overrides []models.QuotaRoleOverride
	err := s.DB.WithContext(ctx).Where("guild_id = ? AND role_id IN ?", guildID, roleIDs).Find(&overrides).Error
	return overrides, err
}

func (s *Store) UpsertRoleOverride(ctx context.Context, o *models.QuotaRoleOverride) error {
	return s.DB.WithContext(ctx).Save(o).Error
}

// these read through tx so quota.Guard can run inside the reservation
// transaction; exposed here rather than duplicated in the quota package.

func GetQuotaSettingsTx(tx *gorm.DB, guildID int64) (*models.QuotaSettings, error) {
	var q models.QuotaSettings
	err := tx.First(&q, "guild_id = ?", guildID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &q, err
}

func ListRoleOverridesTx(tx *gorm.DB, guildID int64, roleIDs []int64) ([]models.QuotaRoleOverride, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var overrides []models.QuotaRoleOverride
	err := tx.Where("guild_id = ? AND role_id IN ?", guildID, roleIDs).Find(&overrides).Error
	return overrides, err
}
