package db

import (
	"context"
	"errors"
	"strings"

	"lsbgear/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminRepo is the thin CRUD layer backing the admin web dashboard (C13) —
// login, credentials, user management. It never touches the domain model
// (guilds/equipment/reservations); that lives in Store (store.go).
type AdminRepo struct{ DB *gorm.DB }

func NewAdminRepo(db *gorm.DB) *AdminRepo { return &AdminRepo{DB: db} }

func (r *AdminRepo) TouchLogin(ctx context.Context, userID, ip, ua string) error {
	return r.DB.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": gorm.Expr("CURRENT_TIMESTAMP"),
			"last_seen_at":  gorm.Expr("CURRENT_TIMESTAMP"),
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
		}).Error
}

func (r *AdminRepo) TouchSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", userID).
		Update("last_seen_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *AdminRepo) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	var u models.AdminUser
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *AdminRepo) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var u models.AdminUser
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *AdminRepo) FindOrCreate(ctx context.Context, username, newID string) (*models.AdminUser, error) {
	var u models.AdminUser
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = models.AdminUser{ID: newID, Username: username, DisplayName: username}
		if err := r.DB.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
		return &u, nil
	}
	return &u, err
}

func (r *AdminRepo) LoadCredentials(ctx context.Context, userID string) ([]models.AdminCredential, error) {
	var cs []models.AdminCredential
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *AdminRepo) AddCredential(ctx context.Context, c *models.AdminCredential) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *AdminRepo) TouchCredentialUsed(ctx context.Context, credID []byte) error {
	return r.DB.WithContext(ctx).Model(&models.AdminCredential{}).
		Where("credential_id = ?", credID).
		Update("last_used_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *AdminRepo) UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error {
	return r.DB.WithContext(ctx).Model(&models.AdminCredential{}).
		Where("credential_id = ?", credID).
		Updates(map[string]any{"sign_count": newCount, "clone_warning": cloneWarn}).Error
}

func (r *AdminRepo) FindByCredentialID(ctx context.Context, credID []byte) (*models.AdminUser, *models.AdminCredential, error) {
	var c models.AdminCredential
	if err := r.DB.WithContext(ctx).Where("credential_id = ?", credID).First(&c).Error; err != nil {
		return nil, nil, err
	}
	var u models.AdminUser
	if err := r.DB.WithContext(ctx).Where("id = ?", c.UserID).First(&u).Error; err != nil {
		return nil, nil, err
	}
	return &u, &c, nil
}

func (r *AdminRepo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.AdminUser{}).Where("is_admin = TRUE").Count(&n).Error
	return n, err
}

func (r *AdminRepo) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return r.DB.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", userID).Update("is_admin", isAdmin).Error
}

type ListAdminUsersResult struct {
	Users []models.AdminUser `json:"users"`
	Total int64              `json:"total"`
}

func (r *AdminRepo) ListUsers(ctx context.Context, q string, page, size int) (ListAdminUsersResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.AdminUser{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListAdminUsersResult{}, err
	}

	var users []models.AdminUser
	if err := tx.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&users).Error; err != nil {
		return ListAdminUsersResult{}, err
	}
	return ListAdminUsersResult{Users: users, Total: total}, nil
}

func (r *AdminRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.DB.WithContext(ctx).Where("user_id = ?", id).Delete(&models.AdminCredential{}).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Clauses(clause.Returning{}).Delete(&models.AdminUser{ID: id}).Error
}
