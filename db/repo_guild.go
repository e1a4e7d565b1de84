package db

import (
	"context"
	"strconv"
	"strings"

	"lsbgear/models"

	"gorm.io/gorm"
)

// GetOrCreateGuild implements "created on first /setup; lives forever".
func (s *Store) GetOrCreateGuild(ctx context.Context, guildID int64) (*models.Guild, error) {
	var g models.Guild
	err := s.DB.WithContext(ctx).First(&g, "id = ?", guildID).Error
	if err == gorm.ErrRecordNotFound {
		g = models.Guild{
			ID:                  guildID,
			DMFallbackToChannel: true,
			PreStartMin:         15,
			PreEndMin:           15,
			OverdueEveryH:       12,
			OverdueMaxCount:     3,
		}
		if err := s.DB.WithContext(ctx).Create(&g).Error; err != nil {
			return nil, err
		}
		return &g, nil
	}
	return &g, err
}

func (s *Store) GetGuild(ctx context.Context, guildID int64) (*models.Guild, error) {
	var g models.Guild
	if err := s.DB.WithContext(ctx).First(&g, "id = ?", guildID).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGuilds(ctx context.Context) ([]models.Guild, error) {
	var gs []models.Guild
	err := s.DB.WithContext(ctx).Find(&gs).Error
	return gs, err
}

type GuildSettingsUpdate struct {
	ReservationChannelID *int64
	AdminRoleIDs         []int64
	DMFallbackToChannel  *bool
	PreStartMin          *int
	PreEndMin            *int
	OverdueEveryH        *int
	OverdueMaxCount      *int
}

func (s *Store) UpdateGuildSettings(ctx context.Context, guildID int64, in GuildSettingsUpdate) error {
	updates := map[string]any{}
	if in.ReservationChannelID != nil {
		updates["reservation_channel_id"] = *in.ReservationChannelID
	}
	if in.AdminRoleIDs != nil {
		updates["admin_role_ids_csv"] = joinInt64CSV(in.AdminRoleIDs)
	}
	if in.DMFallbackToChannel != nil {
		updates["dm_fallback_to_channel"] = *in.DMFallbackToChannel
	}
	if in.PreStartMin != nil {
		updates["pre_start_min"] = *in.PreStartMin
	}
	if in.PreEndMin != nil {
		updates["pre_end_min"] = *in.PreEndMin
	}
	if in.OverdueEveryH != nil {
		updates["overdue_every_h"] = *in.OverdueEveryH
	}
	if in.OverdueMaxCount != nil {
		updates["overdue_max_count"] = *in.OverdueMaxCount
	}
	if len(updates) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Model(&models.Guild{}).Where("id = ?", guildID).Updates(updates).Error
}

// AdminRoleIDs parses the CSV column back into a slice.
func AdminRoleIDs(g models.Guild) []int64 {
	return parseInt64CSV(g.AdminRoleIDsCSV)
}

func joinInt64CSV(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func parseInt64CSV(csv string) []int64 {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// Tags

func (s *Store) CreateTag(ctx context.Context, guildID int64, name string, sortOrder int) (*models.Tag, error) {
	t := &models.Tag{GuildID: guildID, Name: name, SortOrder: sortOrder}
	return t, s.DB.WithContext(ctx).Create(t).Error
}

func (s *Store) ListTags(ctx context.Context, guildID int64) ([]models.Tag, error) {
	var ts []models.Tag
	err := s.DB.WithContext(ctx).Where("guild_id = ?", guildID).Order("sort_order ASC, name ASC").Find(&ts).Error
	return ts, err
}

// DeleteTag detaches equipment (tag_id = NULL) rather than cascading,
// per §3: "Deleting a tag detaches equipment".
func (s *Store) DeleteTag(ctx context.Context, tagID int64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Equipment{}).Where("tag_id = ?", tagID).Update("tag_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tag{}, "id = ?", tagID).Error
	})
}

// Locations

func (s *Store) CreateLocation(ctx context.Context, guildID int64, name string) (*models.Location, error) {
	l := &models.Location{GuildID: guildID, Name: name}
	return l, s.DB.WithContext(ctx).Create(l).Error
}

func (s *Store) ListLocations(ctx context.Context, guildID int64) ([]models.Location, error) {
	var ls []models.Location
	err := s.DB.WithContext(ctx).Where("guild_id = ?", guildID).Order("name ASC").Find(&ls).Error
	return ls, err
}
