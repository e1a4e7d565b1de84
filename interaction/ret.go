package interaction

import (
	"context"
	"fmt"

	"lsbgear/errs"
)

// handleRetButton handles ret:start:{eq}, ret:loc:{res}:{loc}, ret:undo:{res}.
// start opens the location-picker Modal; loc and undo act immediately.
func (r *Router) handleRetButton(ctx context.Context, btn Button, verb string, args []string) (Reply, error) {
	switch verb {
	case "start":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed return request"))
		}
		return Reply{
			Ephemeral: true,
			OpenModal: &ModalPrompt{
				CustomID: fmt.Sprintf("ret:start:%s", args[0]),
				Title:    "Return equipment",
				Fields:   []string{"location"},
			},
		}, nil
	case "loc":
		if len(args) != 2 {
			return errReply(errs.New(errs.InvalidInput, "malformed return correction"))
		}
		resID, err := parseID(args[0])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed reservation id"))
		}
		location := args[1]
		guild, err := r.loadGuildSettings(ctx, btn.GuildID)
		if err != nil {
			return Reply{}, err
		}
		_, events, err := r.Engine.ReturnCorrectLocation(ctx, btn.Actor.toReservationActor(), resID, &location, r.Clock.NowUTC())
		if err != nil {
			return errReply(err)
		}
		r.dispatchEvents(ctx, guild, events)
		return ephemeral("Return location corrected.")
	case "undo":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed return undo"))
		}
		resID, err := parseID(args[0])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed reservation id"))
		}
		guild, err := r.loadGuildSettings(ctx, btn.GuildID)
		if err != nil {
			return Reply{}, err
		}
		_, events, err := r.Engine.ReturnUndo(ctx, btn.Actor.toReservationActor(), resID, r.Clock.NowUTC())
		if err != nil {
			return errReply(err)
		}
		r.dispatchEvents(ctx, guild, events)
		return ephemeral("Return undone; reservation is active again.")
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized return action"))
	}
}

// handleRetModal handles the ret:start:{eq} modal, which actually needs the
// reservation being returned rather than the equipment id — the handler
// resolves eq -> the equipment's current loan (Store.CurrentLoan) before
// calling Engine.Return, since the button only ever carries the equipment.
func (r *Router) handleRetModal(ctx context.Context, modal Modal, verb string, args []string) (Reply, error) {
	if verb != "start" || len(args) != 1 {
		return errReply(errs.New(errs.NotFound, "unrecognized return action"))
	}
	equipmentID, err := parseID(args[0])
	if err != nil {
		return errReply(errs.New(errs.InvalidInput, "malformed equipment id"))
	}
	loan, err := r.Store.CurrentLoan(ctx, equipmentID, r.Clock.NowUTC())
	if err != nil {
		return Reply{}, err
	}
	if loan == nil {
		return errReply(errs.New(errs.NoOp, "this item is not currently loaned"))
	}
	var location *string
	if loc, ok := modal.Fields["location"]; ok && loc != "" {
		location = &loc
	}

	guild, err := r.loadGuildSettings(ctx, modal.GuildID)
	if err != nil {
		return Reply{}, err
	}
	_, events, err := r.Engine.Return(ctx, modal.Actor.toReservationActor(), loan.ID, location, r.Clock.NowUTC())
	if err != nil {
		return errReply(err)
	}
	r.dispatchEvents(ctx, guild, events)
	return ephemeral("Return recorded.")
}
