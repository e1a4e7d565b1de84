// Package interaction is the InteractionRouter (C10): dispatches typed
// SlashCommand/Button/Modal events by custom_id namespace prefix (§6:
// res:*, xfer:*, ret:*, mgmt:*) to handlers that call into
// reservation/reconcile/wizard/waitlist. custom_ids are opaque to the
// transport; only this package parses them.
package interaction

import (
	"context"
	"strconv"
	"strings"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/errs"
	"lsbgear/models"
	"lsbgear/reconcile"
	"lsbgear/reminder"
	"lsbgear/reservation"
	"lsbgear/waitlist"
	"lsbgear/wizard"
)

// SlashCommand is a top-level "/" command invocation.
type SlashCommand struct {
	Name      string
	GuildID   int64
	ChannelID int64
	Actor     Actor
	Fields    map[string]string
}

// Button is a component-click event carrying the custom_id it was built
// with and a reference back to the message it lives on.
type Button struct {
	CustomID  string
	GuildID   int64
	ChannelID int64
	MessageID int64
	Actor     Actor
}

// Modal is a submitted modal's fields, keyed by the custom_id of the
// button/command that opened it.
type Modal struct {
	CustomID  string
	GuildID   int64
	ChannelID int64
	Actor     Actor
	Fields    map[string]string
}

// Actor is the platform-agnostic identity + role facts the router needs to
// build a reservation.Actor; handlers never query the platform themselves.
type Actor struct {
	UserID  int64
	IsAdmin bool    // via native platform admin perm or an AdminRoleIDs match
	RoleIDs []int64 // the platform's role snowflakes for this user, for quota.Guard
}

func (a Actor) toReservationActor() reservation.Actor {
	if a.IsAdmin {
		return reservation.AdminActor(a.UserID)
	}
	return reservation.SelfActor(a.UserID)
}

// Router wires every collaborator a custom_id handler might need. IsBot
// answers whether a given user ID is a bot account, used by transfer
// target validation.
type Router struct {
	Store     *db.Store
	Engine    *reservation.Engine
	Reminders *reminder.Planner
	Reconcile *reconcile.Reconciler
	Waitlist  *waitlist.Manager
	Wizard    *wizard.Registry
	Clock     clock.Clock
	IsBot     reservation.IsBotFunc
}

// Reply is what a handler hands back to the transport: ephemeral text plus
// whether the caller should additionally open a modal (most res:*/xfer:*
// button actions can't carry their real input — a time window, a location
// string — as part of a button click, so they always fall through to a
// follow-up Modal).
type Reply struct {
	Ephemeral bool
	Text      string
	OpenModal *ModalPrompt
	TriggerGC bool // set by /setup cancel, informational only
}

// ModalPrompt describes the modal the transport should open next.
type ModalPrompt struct {
	CustomID string
	Title    string
	Fields   []string
}

func ephemeral(text string) (Reply, error) { return Reply{Ephemeral: true, Text: text}, nil }

func errReply(err error) (Reply, error) {
	if d, ok := err.(*errs.Domain); ok {
		return Reply{Ephemeral: true, Text: d.Detail}, nil
	}
	return Reply{}, err
}

// splitCustomID splits "ns:verb:rest..." into its namespace, verb, and the
// remaining colon-separated arguments.
func splitCustomID(customID string) (ns, verb string, args []string) {
	parts := strings.Split(customID, ":")
	if len(parts) == 0 {
		return "", "", nil
	}
	ns = parts[0]
	if len(parts) > 1 {
		verb = parts[1]
	}
	if len(parts) > 2 {
		args = parts[2:]
	}
	return
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// HandleSlashCommand dispatches the one slash command of §6, /setup.
func (r *Router) HandleSlashCommand(ctx context.Context, cmd SlashCommand) (Reply, error) {
	switch cmd.Name {
	case "setup":
		return r.handleSetupCommand(ctx, cmd)
	default:
		return errReply(errs.New(errs.InvalidInput, "unknown command"))
	}
}

// HandleButton dispatches a component click by custom_id namespace.
func (r *Router) HandleButton(ctx context.Context, btn Button) (Reply, error) {
	ns, verb, args := splitCustomID(btn.CustomID)
	switch ns {
	case "res":
		return r.handleResButton(ctx, btn, verb, args)
	case "xfer":
		return r.handleXferButton(ctx, btn, verb, args)
	case "ret":
		return r.handleRetButton(ctx, btn, verb, args)
	case "mgmt":
		return r.handleMgmtButton(ctx, btn, verb, args)
	case "wiz":
		return r.handleWizardButton(ctx, btn, verb, args)
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized interaction; the message may be stale"))
	}
}

// HandleModal dispatches a submitted modal by the custom_id of whatever
// opened it.
func (r *Router) HandleModal(ctx context.Context, modal Modal) (Reply, error) {
	ns, verb, args := splitCustomID(modal.CustomID)
	switch ns {
	case "res":
		return r.handleResModal(ctx, modal, verb, args)
	case "xfer":
		return r.handleXferModal(ctx, modal, verb, args)
	case "ret":
		return r.handleRetModal(ctx, modal, verb, args)
	case "wiz":
		return r.handleWizardModal(ctx, modal, verb, args)
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized interaction; the message may be stale"))
	}
}

// dispatchEvents fans DomainEvents out to the other collaborators exactly
// once per caller, so every entry point (button, modal, scheduler job) that
// produces events goes through the same fan-out instead of repeating it.
func (r *Router) dispatchEvents(ctx context.Context, guild guildNotifySettings, events []reservation.Event) {
	for _, ev := range events {
		r.Reconcile.NotifyEquipmentChanged(guild.GuildID, ev.EquipmentID)

		switch ev.Kind {
		case reservation.EventCancelled, reservation.EventReturned:
			if ev.Reservation != nil {
				_ = r.Reminders.CancelAll(ctx, ev.Reservation.ID)
			}
		case reservation.EventReserved, reservation.EventModified, reservation.EventTransferred:
			if ev.Reservation != nil {
				_ = r.Reminders.Sync(ctx, *ev.Reservation, guild.Settings)
			}
		}

		if ev.Kind == reservation.EventFreed && ev.Reservation != nil {
			eq, err := r.Store.GetEquipment(ctx, ev.EquipmentID)
			if err != nil {
				continue
			}
			_, _ = r.Waitlist.OfferNext(ctx, ev.EquipmentID, ev.Reservation.StartUTC, ev.Reservation.EndUTC,
				eq.Name, guild.FallbackChannelID, guild.Settings.DMFallbackToChannel)
		}
	}
}

// DispatchSweepEvents is dispatchEvents's entry point for the scheduler's
// transfer-sweep handler, which produces events across every guild in one
// pass rather than one caller-known guild. Each event is routed through its
// own equipment's guild settings; an event whose equipment or guild can no
// longer be loaded is dropped rather than failing the whole sweep.
func (r *Router) DispatchSweepEvents(ctx context.Context, events []reservation.Event) {
	for _, ev := range events {
		eq, err := r.Store.GetEquipment(ctx, ev.EquipmentID)
		if err != nil {
			continue
		}
		guild, err := r.loadGuildSettings(ctx, eq.GuildID)
		if err != nil {
			continue
		}
		r.dispatchEvents(ctx, guild, []reservation.Event{ev})
	}
}

// guildNotifySettings bundles what dispatchEvents needs about the owning
// guild without forcing every caller to look it up twice.
type guildNotifySettings struct {
	GuildID           int64
	Settings          models.NotifySettings
	FallbackChannelID *int64
}
