package interaction

import "context"

func (r *Router) loadGuildSettings(ctx context.Context, guildID int64) (guildNotifySettings, error) {
	g, err := r.Store.GetOrCreateGuild(ctx, guildID)
	if err != nil {
		return guildNotifySettings{}, err
	}
	return guildNotifySettings{
		GuildID:           g.ID,
		Settings:          g.Notify(),
		FallbackChannelID: g.ReservationChannelID,
	}, nil
}
