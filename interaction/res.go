package interaction

import (
	"context"
	"fmt"

	"lsbgear/clock"
	"lsbgear/errs"
)

// handleResButton handles res:new:{eq}, res:edit:{res}, res:cancel:{res}.
// new/edit always fall through to a Modal — a button click alone can't
// carry the desired time window, per §6.
func (r *Router) handleResButton(ctx context.Context, btn Button, verb string, args []string) (Reply, error) {
	switch verb {
	case "new":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed reservation request"))
		}
		return Reply{
			Ephemeral: true,
			OpenModal: &ModalPrompt{
				CustomID: fmt.Sprintf("res:new:%s", args[0]),
				Title:    "New reservation",
				Fields:   []string{"start", "end", "location"},
			},
		}, nil
	case "edit":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed reservation request"))
		}
		return Reply{
			Ephemeral: true,
			OpenModal: &ModalPrompt{
				CustomID: fmt.Sprintf("res:edit:%s", args[0]),
				Title:    "Change reservation",
				Fields:   []string{"start", "end", "location"},
			},
		}, nil
	case "cancel":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed reservation request"))
		}
		resID, err := parseID(args[0])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed reservation id"))
		}
		return r.cancelReservation(ctx, btn.GuildID, btn.Actor, resID)
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized reservation action"))
	}
}

func (r *Router) cancelReservation(ctx context.Context, guildID int64, actor Actor, resID int64) (Reply, error) {
	guild, err := r.loadGuildSettings(ctx, guildID)
	if err != nil {
		return Reply{}, err
	}
	_, events, err := r.Engine.Cancel(ctx, actor.toReservationActor(), resID, r.Clock.NowUTC())
	if err != nil {
		return errReply(err)
	}
	r.dispatchEvents(ctx, guild, events)
	return ephemeral("Reservation cancelled.")
}

// handleResModal handles the res:new:{eq} and res:edit:{res} modal
// submissions, where the actual start/end/location values arrive.
func (r *Router) handleResModal(ctx context.Context, modal Modal, verb string, args []string) (Reply, error) {
	if len(args) != 1 {
		return errReply(errs.New(errs.InvalidInput, "malformed reservation request"))
	}
	start, err := clock.ParseJST(modal.Fields["start"])
	if err != nil {
		return errReply(errs.New(errs.InvalidInput, "start must be a valid JST timestamp"))
	}
	end, err := clock.ParseJST(modal.Fields["end"])
	if err != nil {
		return errReply(errs.New(errs.InvalidInput, "end must be a valid JST timestamp"))
	}
	var location *string
	if loc, ok := modal.Fields["location"]; ok && loc != "" {
		location = &loc
	}

	guild, err := r.loadGuildSettings(ctx, modal.GuildID)
	if err != nil {
		return Reply{}, err
	}

	switch verb {
	case "new":
		equipmentID, err := parseID(args[0])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed equipment id"))
		}
		_, events, err := r.Engine.Create(ctx, modal.Actor.toReservationActor(), equipmentID, modal.Actor.UserID,
			start, end, location, modal.Actor.RoleIDs, r.Clock.NowUTC())
		if err != nil {
			return errReply(err)
		}
		r.dispatchEvents(ctx, guild, events)
		return ephemeral(fmt.Sprintf("Reserved for %s to %s.", clock.FormatJST(start), clock.FormatJST(end)))
	case "edit":
		resID, err := parseID(args[0])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed reservation id"))
		}
		_, events, err := r.Engine.Modify(ctx, modal.Actor.toReservationActor(), resID, &start, &end, location, r.Clock.NowUTC())
		if err != nil {
			return errReply(err)
		}
		r.dispatchEvents(ctx, guild, events)
		return ephemeral("Reservation updated.")
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized reservation action"))
	}
}
