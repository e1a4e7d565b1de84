package models

type ManagedMessageKind string

const (
	MessageHeader         ManagedMessageKind = "Header"
	MessageEquipmentEmbed ManagedMessageKind = "EquipmentEmbed"
	MessageGuide          ManagedMessageKind = "Guide"
)

// ManagedMessage is a weak reference from the Store into a chat message the
// bot owns. (GuildID, MessageID) is unique; if a lookup against the chat
// platform fails, the Reconciler recreates the message and rewrites this
// row's MessageID.
type ManagedMessage struct {
	ID          int64              `gorm:"primaryKey" json:"id"`
	GuildID     int64              `gorm:"uniqueIndex:idx_mm_guild_msg,priority:1;not null" json:"guildId"`
	ChannelID   int64              `gorm:"not null" json:"channelId"`
	MessageID   int64              `gorm:"uniqueIndex:idx_mm_guild_msg,priority:2;not null" json:"messageId"`
	Kind        ManagedMessageKind `gorm:"size:30;not null" json:"kind"`
	EquipmentID *int64             `gorm:"index" json:"equipmentId,omitempty"`
	SortOrder   int                `gorm:"not null;default:0" json:"sortOrder"`

	// LastContentHash is the editplan content hash this message was last
	// rendered with, so the Reconciler can tell Keep from Edit without
	// re-fetching the message body from the chat platform.
	LastContentHash string `gorm:"size:64" json:"lastContentHash,omitempty"`
}

func (ManagedMessage) TableName() string { return "managed_messages" }

func (m ManagedMessage) ContentHash() string { return m.LastContentHash }
