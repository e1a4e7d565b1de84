package interaction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lsbgear/errs"
	"lsbgear/wizard"
)

func (r *Router) wizardKey(guildID, userID int64) wizard.Key {
	return wizard.Key{GuildID: guildID, UserID: userID, Kind: wizard.KindSetup}
}

// handleSetupCommand starts or resumes a /setup wizard (§6: admin-only).
func (r *Router) handleSetupCommand(ctx context.Context, cmd SlashCommand) (Reply, error) {
	if !cmd.Actor.IsAdmin {
		return errReply(errs.New(errs.PermissionDenied, "/setup is admin-only"))
	}
	key := r.wizardKey(cmd.GuildID, cmd.Actor.UserID)
	state := wizard.NewSetupState(cmd.GuildID)
	r.Wizard.Put(key, state)
	return Reply{
		Ephemeral: true,
		OpenModal: &ModalPrompt{
			CustomID: fmt.Sprintf("wiz:chan:%d", cmd.GuildID),
			Title:    "Setup: reservation channel",
			Fields:   []string{"channel_id"},
		},
	}, nil
}

// handleWizardButton handles wiz:perm:{ok|fail} and wiz:cancel —
// the steps of the wizard that are answered with a click rather than free
// text.
func (r *Router) handleWizardButton(ctx context.Context, btn Button, verb string, args []string) (Reply, error) {
	key := r.wizardKey(btn.GuildID, btn.Actor.UserID)
	raw, ok := r.Wizard.Get(key)
	if !ok {
		return errReply(errs.New(errs.NotFound, "setup wizard expired; run /setup again"))
	}
	state := raw.(*wizard.SetupState)

	switch verb {
	case "perm":
		if len(args) != 1 {
			return errReply(errs.New(errs.InvalidInput, "malformed setup step"))
		}
		if err := state.ConfirmPermissions(args[0] == "ok"); err != nil {
			return ephemeral("Bot is missing required permissions in that channel; re-invite with the right scopes and try again.")
		}
		r.Wizard.Put(key, state)
		return Reply{
			Ephemeral: true,
			OpenModal: &ModalPrompt{
				CustomID: fmt.Sprintf("wiz:roles:%d", btn.GuildID),
				Title:    "Setup: admin roles (optional)",
				Fields:   []string{"role_ids"},
			},
		}, nil
	case "cancel":
		r.Wizard.Delete(key)
		return Reply{Ephemeral: true, Text: "Setup cancelled.", TriggerGC: true}, nil
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized setup action"))
	}
}

// handleWizardModal handles wiz:chan, wiz:roles, wiz:notify — the free-text
// steps. The notify step persists the settings as soon as they validate;
// there is no separate confirmation prompt before the write.
func (r *Router) handleWizardModal(ctx context.Context, modal Modal, verb string, args []string) (Reply, error) {
	key := r.wizardKey(modal.GuildID, modal.Actor.UserID)
	raw, ok := r.Wizard.Get(key)
	if !ok {
		return errReply(errs.New(errs.NotFound, "setup wizard expired; run /setup again"))
	}
	state := raw.(*wizard.SetupState)

	switch verb {
	case "chan":
		channelID, err := parseID(modal.Fields["channel_id"])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "channel_id must be a channel id"))
		}
		state.ConfirmChannel(channelID)
		r.Wizard.Put(key, state)
		return Reply{
			Ephemeral: true,
			OpenModal: &ModalPrompt{
				CustomID: fmt.Sprintf("wiz:perm:%d", modal.GuildID),
				Title:    "Confirm bot permissions in that channel",
				Fields:   nil,
			},
		}, nil
	case "roles":
		state.SetAdminRoles(parseRoleIDs(modal.Fields["role_ids"]))
		r.Wizard.Put(key, state)
		return Reply{
			Ephemeral: true,
			OpenModal: &ModalPrompt{
				CustomID: fmt.Sprintf("wiz:notify:%d", modal.GuildID),
				Title:    "Notification settings",
				Fields:   []string{"pre_start_min", "pre_end_min", "overdue_every_h", "overdue_max_count", "dm_fallback"},
			},
		}, nil
	case "notify":
		preStart, err1 := strconv.Atoi(modal.Fields["pre_start_min"])
		preEnd, err2 := strconv.Atoi(modal.Fields["pre_end_min"])
		overdueEvery, err3 := strconv.Atoi(modal.Fields["overdue_every_h"])
		overdueMax, err4 := strconv.Atoi(modal.Fields["overdue_max_count"])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return errReply(errs.New(errs.InvalidInput, "notification settings must be numbers"))
		}
		dmFallback := strings.EqualFold(modal.Fields["dm_fallback"], "true") || modal.Fields["dm_fallback"] == "1"
		if err := state.SetNotifySettings(preStart, preEnd, overdueEvery, overdueMax, dmFallback); err != nil {
			return errReply(err)
		}
		r.Wizard.Put(key, state)
		upd, err := state.SettingsUpdate()
		if err != nil {
			return Reply{}, err
		}
		if _, err := r.Store.GetOrCreateGuild(ctx, modal.GuildID); err != nil {
			return Reply{}, err
		}
		if err := r.Store.UpdateGuildSettings(ctx, modal.GuildID, upd); err != nil {
			return Reply{}, err
		}
		r.Wizard.Delete(key)
		return ephemeral("Setup complete.")
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized setup action"))
	}
}

func parseRoleIDs(csv string) []int64 {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
