package interaction

import (
	"context"
	"fmt"
	"time"

	"lsbgear/clock"
	"lsbgear/errs"
)

// handleXferButton handles xfer:new:{res}, xfer:ack:{req}:{accept|deny},
// xfer:cancel:{req}. new falls through to a Modal for the target user and
// optional scheduled execution time; ack/cancel act immediately.
func (r *Router) handleXferButton(ctx context.Context, btn Button, verb string, args []string) (Reply, error) {
	switch verb {
	case "new":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed transfer request"))
		}
		return Reply{
			Ephemeral: true,
			OpenModal: &ModalPrompt{
				CustomID: fmt.Sprintf("xfer:new:%s", args[0]),
				Title:    "Transfer reservation",
				Fields:   []string{"to_user_id", "execute_at", "note"},
			},
		}, nil
	case "ack":
		if len(args) != 2 {
			return errReply(errs.New(errs.InvalidInput, "malformed transfer ack"))
		}
		reqID, err := parseID(args[0])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed transfer request id"))
		}
		guild, err := r.loadGuildSettings(ctx, btn.GuildID)
		if err != nil {
			return Reply{}, err
		}
		switch args[1] {
		case "accept":
			_, events, err := r.Engine.AcceptTransfer(ctx, btn.Actor.toReservationActor(), reqID, r.Clock.NowUTC())
			if err != nil {
				return errReply(err)
			}
			r.dispatchEvents(ctx, guild, events)
			return ephemeral("Transfer accepted.")
		case "deny":
			_, events, err := r.Engine.DenyTransfer(ctx, btn.Actor.toReservationActor(), reqID, r.Clock.NowUTC())
			if err != nil {
				return errReply(err)
			}
			r.dispatchEvents(ctx, guild, events)
			return ephemeral("Transfer denied.")
		default:
			return errReply(errs.New(errs.InvalidInput, "transfer ack must be accept or deny"))
		}
	case "cancel":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed transfer request"))
		}
		reqID, err := parseID(args[0])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed transfer request id"))
		}
		guild, err := r.loadGuildSettings(ctx, btn.GuildID)
		if err != nil {
			return Reply{}, err
		}
		_, events, err := r.Engine.CancelTransfer(ctx, btn.Actor.toReservationActor(), reqID, r.Clock.NowUTC())
		if err != nil {
			return errReply(err)
		}
		r.dispatchEvents(ctx, guild, events)
		return ephemeral("Transfer request cancelled.")
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized transfer action"))
	}
}

// handleXferModal handles the xfer:new:{res} modal: target user, optional
// scheduled execution time, optional note.
func (r *Router) handleXferModal(ctx context.Context, modal Modal, verb string, args []string) (Reply, error) {
	if verb != "new" || len(args) != 1 {
		return errReply(errs.New(errs.NotFound, "unrecognized transfer action"))
	}
	resID, err := parseID(args[0])
	if err != nil {
		return errReply(errs.New(errs.InvalidInput, "malformed reservation id"))
	}
	toUser, err := parseID(modal.Fields["to_user_id"])
	if err != nil {
		return errReply(errs.New(errs.InvalidInput, "to_user_id must be a user id"))
	}
	var executeAt *time.Time
	if raw, ok := modal.Fields["execute_at"]; ok && raw != "" {
		t, err := clock.ParseJST(raw)
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "execute_at must be a valid JST timestamp"))
		}
		executeAt = &t
	}
	var note *string
	if n, ok := modal.Fields["note"]; ok && n != "" {
		note = &n
	}

	guild, err := r.loadGuildSettings(ctx, modal.GuildID)
	if err != nil {
		return Reply{}, err
	}

	_, events, err := r.Engine.RequestTransfer(ctx, modal.Actor.toReservationActor(), resID, toUser,
		executeAt, note, r.IsBot, r.Clock.NowUTC())
	if err != nil {
		return errReply(err)
	}
	r.dispatchEvents(ctx, guild, events)
	return ephemeral("Transfer request sent.")
}
