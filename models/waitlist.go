package models

import "time"

type WaitlistEntryStatus string

const (
	WaitlistWaiting   WaitlistEntryStatus = "Waiting"
	WaitlistOffered   WaitlistEntryStatus = "Offered"
	WaitlistExpired   WaitlistEntryStatus = "Expired"
	WaitlistClaimed   WaitlistEntryStatus = "Claimed"
	WaitlistCancelled WaitlistEntryStatus = "Cancelled"
)

// WaitlistEntry is a FIFO queue position for a desired equipment+window,
// grounded in original_source/src/waitlist.rs WaitlistEntry.
type WaitlistEntry struct {
	ID               int64               `gorm:"primaryKey" json:"id"`
	GuildID          int64               `gorm:"index;not null" json:"guildId"`
	EquipmentID      int64               `gorm:"index:idx_wl_equip_status;not null" json:"equipmentId"`
	UserID           int64               `gorm:"not null" json:"userId"`
	DesiredStartUTC  time.Time           `gorm:"not null" json:"desiredStartUtc"`
	DesiredEndUTC    time.Time           `gorm:"not null" json:"desiredEndUtc"`
	Status           WaitlistEntryStatus `gorm:"size:20;index:idx_wl_equip_status;not null;default:'Waiting'" json:"status"`
	CreatedUTC       time.Time           `gorm:"index" json:"createdUtc"`
}

func (WaitlistEntry) TableName() string { return "waitlist_entries" }

type WaitlistOfferStatus string

const (
	OfferPending  WaitlistOfferStatus = "Pending"
	OfferAccepted WaitlistOfferStatus = "Accepted"
	OfferExpired  WaitlistOfferStatus = "Expired"
	OfferDeclined WaitlistOfferStatus = "Declined"
)

// WaitlistOfferWindow is how long a user has to accept an offered slot
// before it is re-offered to the next entry in the queue.
const WaitlistOfferWindow = 30 * time.Minute

// WaitlistOffer is a time-boxed offer of a freed slot to the head of the
// queue, grounded in original_source/src/waitlist.rs WaitlistOfferResult.
type WaitlistOffer struct {
	ID              int64               `gorm:"primaryKey" json:"id"`
	WaitlistEntryID int64               `gorm:"index;not null" json:"waitlistEntryId"`
	OfferedStartUTC time.Time           `gorm:"not null" json:"offeredStartUtc"`
	OfferedEndUTC   time.Time           `gorm:"not null" json:"offeredEndUtc"`
	ExpiresAtUTC    time.Time           `gorm:"index;not null" json:"expiresAtUtc"`
	Status          WaitlistOfferStatus `gorm:"size:20;index;not null;default:'Pending'" json:"status"`
	CreatedUTC      time.Time           `json:"createdUtc"`
}

func (WaitlistOffer) TableName() string { return "waitlist_offers" }
