package models

import "time"

// Guild is created on first /setup and lives forever.
type Guild struct {
	ID                  int64  `gorm:"primaryKey" json:"id"`
	ReservationChannelID *int64 `json:"reservationChannelId,omitempty"`
	// AdminRoleIDsCSV stores the admin_role_ids set as a comma-joined list
	// of snowflakes — a JSON column would work equally well, but this
	// model favours plain scalar columns over JSON blobs.
	AdminRoleIDsCSV string `gorm:"type:text" json:"adminRoleIdsCsv"`

	DMFallbackToChannel bool  `gorm:"not null;default:true" json:"dmFallbackToChannel"`
	PreStartMin         int   `gorm:"not null;default:15" json:"preStartMin"`
	PreEndMin           int   `gorm:"not null;default:15" json:"preEndMin"`
	OverdueEveryH       int   `gorm:"not null;default:12" json:"overdueEveryH"`
	OverdueMaxCount     int   `gorm:"not null;default:3" json:"overdueMaxCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Guild) TableName() string { return "guilds" }

// NotifySettings is the subset of Guild fields the §4.7/§4.8 planners read.
type NotifySettings struct {
	DMFallbackToChannel bool
	PreStartMin         int
	PreEndMin           int
	OverdueEveryH       int
	OverdueMaxCount     int
}

func (g Guild) Notify() NotifySettings {
	return NotifySettings{
		DMFallbackToChannel: g.DMFallbackToChannel,
		PreStartMin:         g.PreStartMin,
		PreEndMin:           g.PreEndMin,
		OverdueEveryH:       g.OverdueEveryH,
		OverdueMaxCount:     g.OverdueMaxCount,
	}
}

// Tag groups equipment for display ordering; deleting one detaches
// equipment rather than cascading.
type Tag struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	GuildID   int64  `gorm:"uniqueIndex:idx_tag_guild_name,priority:1;not null" json:"guildId"`
	Name      string `gorm:"uniqueIndex:idx_tag_guild_name,priority:2;size:200;not null" json:"name"`
	SortOrder int    `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Tag) TableName() string { return "tags" }

// Location is a named place equipment can be checked out to / returned to.
type Location struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	GuildID   int64  `gorm:"uniqueIndex:idx_loc_guild_name,priority:1;not null" json:"guildId"`
	Name      string `gorm:"uniqueIndex:idx_loc_guild_name,priority:2;size:200;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Location) TableName() string { return "locations" }
