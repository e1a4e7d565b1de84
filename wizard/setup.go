package wizard

import (
	"lsbgear/db"
	"lsbgear/errs"
)

// SetupStep is one stage of the /setup sub-flow of §6: confirm channel →
// permission check → optional admin-role multi-select → notification
// settings → confirmation.
type SetupStep string

const (
	StepAwaitChannel       SetupStep = "AwaitChannel"
	StepAwaitPermissions   SetupStep = "AwaitPermissions"
	StepAwaitAdminRoles    SetupStep = "AwaitAdminRoles"
	StepAwaitNotifySettings SetupStep = "AwaitNotifySettings"
	StepConfirm            SetupStep = "Confirm"
)

var (
	validPreMinutes    = []int{5, 15, 30}
	validOverdueHours  = []int{6, 12, 24}
)

// SetupState is the state_blob of §4.9 for Kind=setup — a pure value with
// no I/O, advanced one field at a time by the InteractionRouter's /setup
// handlers and persisted only in the Registry until Confirm.
type SetupState struct {
	Step    SetupStep
	GuildID int64

	ChannelID       *int64
	HasPermission   bool
	AdminRoleIDs    []int64
	PreStartMin     int
	PreEndMin       int
	OverdueEveryH   int
	OverdueMaxCount int
	DMFallback      bool
}

// NewSetupState begins the wizard at AwaitChannel with the §3 Guild
// defaults pre-filled so a user who accepts every default reaches
// Confirm having touched nothing.
func NewSetupState(guildID int64) *SetupState {
	return &SetupState{
		Step: StepAwaitChannel, GuildID: guildID,
		PreStartMin: 15, PreEndMin: 15, OverdueEveryH: 12, OverdueMaxCount: 3,
		DMFallback: true,
	}
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// ConfirmChannel records the chosen reservation channel and advances to
// the bot-permission check, the next required step.
func (s *SetupState) ConfirmChannel(channelID int64) {
	s.ChannelID = &channelID
	s.Step = StepAwaitPermissions
}

// ConfirmPermissions records whether the bot has the permissions it needs
// in the chosen channel; failing this keeps the wizard at the same step so
// the handler can re-prompt after the admin fixes it.
func (s *SetupState) ConfirmPermissions(hasPermission bool) error {
	if !hasPermission {
		return errs.New(errs.InvalidInput, "bot lacks required channel permissions")
	}
	s.HasPermission = true
	s.Step = StepAwaitAdminRoles
	return nil
}

// SetAdminRoles records the optional admin-role multi-select (may be
// empty — admin-only actions then fall back to the chat platform's native
// admin permission) and advances to notification settings.
func (s *SetupState) SetAdminRoles(roleIDs []int64) {
	if roleIDs == nil {
		roleIDs = []int64{}
	}
	s.AdminRoleIDs = roleIDs
	s.Step = StepAwaitNotifySettings
}

// SetNotifySettings validates the §6 enumerated choices and advances to
// Confirm.
func (s *SetupState) SetNotifySettings(preStartMin, preEndMin, overdueEveryH, overdueMaxCount int, dmFallback bool) error {
	if !contains(validPreMinutes, preStartMin) {
		return errs.New(errs.InvalidInput, "pre_start_min must be one of 5, 15, 30")
	}
	if !contains(validPreMinutes, preEndMin) {
		return errs.New(errs.InvalidInput, "pre_end_min must be one of 5, 15, 30")
	}
	if !contains(validOverdueHours, overdueEveryH) {
		return errs.New(errs.InvalidInput, "overdue_every_h must be one of 6, 12, 24")
	}
	if overdueMaxCount < 1 {
		return errs.New(errs.InvalidInput, "overdue_max_count must be >= 1")
	}
	s.PreStartMin, s.PreEndMin = preStartMin, preEndMin
	s.OverdueEveryH, s.OverdueMaxCount = overdueEveryH, overdueMaxCount
	s.DMFallback = dmFallback
	s.Step = StepConfirm
	return nil
}

// SettingsUpdate builds the db.GuildSettingsUpdate the confirmation step
// persists. Called only once Step == StepConfirm; earlier calls would
// write an incomplete guild.
func (s *SetupState) SettingsUpdate() (db.GuildSettingsUpdate, error) {
	if s.Step != StepConfirm {
		return db.GuildSettingsUpdate{}, errs.New(errs.InvalidInput, "setup wizard is not ready to confirm")
	}
	preStart, preEnd := s.PreStartMin, s.PreEndMin
	overdueEvery, overdueMax := s.OverdueEveryH, s.OverdueMaxCount
	dmFallback := s.DMFallback
	return db.GuildSettingsUpdate{
		ReservationChannelID: s.ChannelID,
		AdminRoleIDs:         s.AdminRoleIDs,
		DMFallbackToChannel:  &dmFallback,
		PreStartMin:          &preStart,
		PreEndMin:            &preEnd,
		OverdueEveryH:        &overdueEvery,
		OverdueMaxCount:      &overdueMax,
	}, nil
}
