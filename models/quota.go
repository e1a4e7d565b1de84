package models

import "time"

// QuotaSettings is the guild-wide default borrowing quota. A nil field
// means "no limit of that kind" — grounded in original_source/src/quotas.rs
// QuotaSettings, which stores the same four optional limits.
type QuotaSettings struct {
	GuildID         int64 `gorm:"primaryKey"`
	MaxActiveCount  *int  `json:"maxActiveCount,omitempty"`
	MaxOverlapCount *int  `json:"maxOverlapCount,omitempty"`
	MaxHours7d      *int  `json:"maxHours7d,omitempty"`
	MaxHours30d     *int  `json:"maxHours30d,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (QuotaSettings) TableName() string { return "quota_settings" }

// QuotaRoleOverride narrows or widens QuotaSettings for members of a
// specific role; the highest-priority (most restrictive is not assumed —
// see quota.Guard) override among the user's roles wins.
type QuotaRoleOverride struct {
	ID              int64 `gorm:"primaryKey"`
	GuildID         int64 `gorm:"uniqueIndex:idx_qro_guild_role,priority:1;not null"`
	RoleID          int64 `gorm:"uniqueIndex:idx_qro_guild_role,priority:2;not null"`
	MaxActiveCount  *int
	MaxOverlapCount *int
	MaxHours7d      *int
	MaxHours30d     *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (QuotaRoleOverride) TableName() string { return "quota_role_overrides" }
