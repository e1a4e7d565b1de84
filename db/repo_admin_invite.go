package db

import (
	"context"
	"errors"
	"time"

	"lsbgear/models"
)

func (r *AdminRepo) CreateInvite(ctx context.Context, email, token string, expiresAt time.Time, createdBy string) (*models.AdminInvite, error) {
	inv := &models.AdminInvite{Email: email, Token: token, ExpiresAt: expiresAt, CreatedBy: createdBy}
	return inv, r.DB.WithContext(ctx).Create(inv).Error
}

func (r *AdminRepo) GetInviteByToken(ctx context.Context, token string) (*models.AdminInvite, error) {
	var inv models.AdminInvite
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *AdminRepo) MarkInviteUsed(ctx context.Context, token string) error {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&models.AdminInvite{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("invite already used or not found")
	}
	return nil
}
