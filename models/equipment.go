package models

import "time"

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "Available"
	EquipmentLoaned      EquipmentStatus = "Loaned"
	EquipmentUnavailable EquipmentStatus = "Unavailable"
)

// Equipment is one loanable item. Status is derived/maintained by
// reservation.Engine, not recomputed ad hoc by readers.
type Equipment struct {
	ID      int64  `gorm:"primaryKey" json:"id"`
	GuildID int64  `gorm:"uniqueIndex:idx_equip_guild_name,priority:1;not null" json:"guildId"`
	TagID   *int64 `gorm:"index" json:"tagId,omitempty"`

	Name                 string          `gorm:"uniqueIndex:idx_equip_guild_name,priority:2;size:200;not null" json:"name"`
	Status               EquipmentStatus `gorm:"size:20;not null;default:'Available'" json:"status"`
	CurrentLocation      *string         `gorm:"size:200" json:"currentLocation,omitempty"`
	UnavailableReason    *string         `gorm:"size:500" json:"unavailableReason,omitempty"`
	DefaultReturnLocation *string        `gorm:"size:200" json:"defaultReturnLocation,omitempty"`
	MessageID            *int64          `json:"messageId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Equipment) TableName() string { return "equipment" }

type EquipmentLogAction string

const (
	LogReserved    EquipmentLogAction = "Reserved"
	LogModified    EquipmentLogAction = "Modified"
	LogCancelled   EquipmentLogAction = "Cancelled"
	LogReturned    EquipmentLogAction = "Returned"
	LogReturnUndo  EquipmentLogAction = "ReturnUndo"
	LogTransferred EquipmentLogAction = "Transferred"
	LogStatusChanged EquipmentLogAction = "StatusChanged"
)

// EquipmentLog is an append-only audit trail.
type EquipmentLog struct {
	ID            int64              `gorm:"primaryKey" json:"id"`
	EquipmentID   int64              `gorm:"index;not null" json:"equipmentId"`
	ActorUserID   int64              `gorm:"not null" json:"actorUserId"`
	Action        EquipmentLogAction `gorm:"size:40;not null" json:"action"`
	PreviousStatus *EquipmentStatus  `gorm:"size:20" json:"previousStatus,omitempty"`
	NewStatus      *EquipmentStatus  `gorm:"size:20" json:"newStatus,omitempty"`
	Location      *string            `gorm:"size:200" json:"location,omitempty"`
	Notes         *string            `gorm:"size:1000" json:"notes,omitempty"`
	TimestampUTC  time.Time          `gorm:"index;not null" json:"timestampUtc"`
}

func (EquipmentLog) TableName() string { return "equipment_logs" }
