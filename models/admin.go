package models

import "time"

// AdminUser is a human operator of the admin web dashboard (C13). It is
// intentionally disjoint from the Discord-domain user_id referenced by
// Reservation/TransferRequest etc. — those are opaque int64 snowflakes
// owned by the chat platform, never rows this Store creates.
type AdminUser struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	DisplayName string `gorm:"size:255;not null" json:"displayName"`
	IsAdmin     bool   `gorm:"not null;default:false" json:"isAdmin"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`

	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Credentials []AdminCredential `gorm:"foreignKey:UserID"`
}

func (AdminUser) TableName() string { return "admin_users" }

// AdminCredential is a registered WebAuthn passkey for an AdminUser.
type AdminCredential struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"type:uuid;index" json:"userId"`
	CredentialID    []byte    `gorm:"uniqueIndex" json:"credentialId"`
	PublicKey       []byte    `json:"publicKey"`
	AttestationType string    `gorm:"size:64" json:"attestationType"`
	AAGUID          []byte    `json:"aaguid"`
	SignCount       uint32    `json:"signCount"`
	CloneWarning    bool      `json:"cloneWarning"`
	BackupEligible  bool      `json:"backupEligible"`
	BackupState     bool      `json:"backupState"`
	TransportsJSON  string    `gorm:"type:text" json:"transportsJson"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	LastUsedAt      *time.Time `gorm:"index" json:"lastUsedAt,omitempty"`
}

func (AdminCredential) TableName() string { return "admin_credentials" }

// AdminInvite is a one-time token granting dashboard access, created either
// by an existing admin or by BootstrapFirstAdmin on first run.
type AdminInvite struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"index;size:255;not null"`
	Token     string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	UsedAt    *time.Time
	CreatedBy string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AdminInvite) TableName() string { return "admin_invites" }
