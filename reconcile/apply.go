package reconcile

import (
	"context"

	"lsbgear/editplan"
	"lsbgear/models"
)

// apply executes one editplan.Op against the ChatSink and updates
// managed_messages to match, completing §4.5 obligation #1's "then update
// managed_messages to reflect reality". sortOrder is this op's position in
// the desired list (ignored for Keep/Delete, which don't change it).
func (r *Reconciler) apply(ctx context.Context, guildID, channelID int64, op editplan.Op, byMessageID map[int64]models.ManagedMessage, sortOrder int) error {
	switch op.Type {
	case editplan.OpKeep:
		return nil

	case editplan.OpEdit:
		existing, ok := byMessageID[op.MessageID]
		if !ok {
			return nil
		}
		if err := r.Sink.EditMessage(ctx, channelID, op.MessageID, op.Desired.Content); err != nil {
			return err
		}
		existing.LastContentHash = editplan.HashOf(op.Desired.Content)
		existing.SortOrder = sortOrder
		return r.Store.UpsertManagedMessage(ctx, &existing)

	case editplan.OpCreate:
		messageID, err := r.Sink.SendMessage(ctx, channelID, op.Desired.Content)
		if err != nil {
			return err
		}
		return r.Store.UpsertManagedMessage(ctx, &models.ManagedMessage{
			GuildID: guildID, ChannelID: channelID, MessageID: messageID,
			Kind: op.Desired.Kind, EquipmentID: op.Desired.EquipmentID,
			LastContentHash: editplan.HashOf(op.Desired.Content),
			SortOrder:       sortOrder,
		})

	case editplan.OpDelete:
		if err := r.Sink.DeleteMessage(ctx, channelID, op.MessageID); err != nil {
			return err
		}
		if existing, ok := byMessageID[op.MessageID]; ok {
			return r.Store.DeleteManagedMessage(ctx, existing.ID)
		}
		return nil

	case editplan.OpRebuildAll:
		for _, id := range op.DeleteIDs {
			if existing, ok := byMessageID[id]; ok {
				if err := r.Sink.DeleteMessage(ctx, channelID, id); err != nil {
					return err
				}
				if err := r.Store.DeleteManagedMessage(ctx, existing.ID); err != nil {
					return err
				}
			}
		}
		for i, d := range op.Rebuild {
			messageID, err := r.Sink.SendMessage(ctx, channelID, d.Content)
			if err != nil {
				return err
			}
			if err := r.Store.UpsertManagedMessage(ctx, &models.ManagedMessage{
				GuildID: guildID, ChannelID: channelID, MessageID: messageID,
				Kind: d.Kind, EquipmentID: d.EquipmentID,
				LastContentHash: editplan.HashOf(d.Content),
				SortOrder:       i,
			}); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
