package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupFlow_HappyPathReachesConfirm(t *testing.T) {
	s := NewSetupState(1)
	s.ConfirmChannel(999)
	require.Equal(t, StepAwaitPermissions, s.Step)

	require.NoError(t, s.ConfirmPermissions(true))
	require.Equal(t, StepAwaitAdminRoles, s.Step)

	s.SetAdminRoles([]int64{10, 20})
	require.Equal(t, StepAwaitNotifySettings, s.Step)

	require.NoError(t, s.SetNotifySettings(15, 15, 12, 3, true))
	require.Equal(t, StepConfirm, s.Step)

	upd, err := s.SettingsUpdate()
	require.NoError(t, err)
	require.Equal(t, []int64{10, 20}, upd.AdminRoleIDs)
	require.Equal(t, int64(999), *upd.ReservationChannelID)
	require.Equal(t, 15, *upd.PreStartMin)
}

func TestConfirmPermissions_FailureStaysAtSameStep(t *testing.T) {
	s := NewSetupState(1)
	s.ConfirmChannel(999)
	require.Error(t, s.ConfirmPermissions(false))
	require.Equal(t, StepAwaitPermissions, s.Step)
}

func TestSetNotifySettings_RejectsOutOfEnumValues(t *testing.T) {
	s := NewSetupState(1)
	s.ConfirmChannel(999)
	require.NoError(t, s.ConfirmPermissions(true))
	s.SetAdminRoles(nil)

	require.Error(t, s.SetNotifySettings(7, 15, 12, 3, true))   // pre_start_min not in {5,15,30}
	require.Error(t, s.SetNotifySettings(15, 15, 10, 3, true))  // overdue_every_h not in {6,12,24}
	require.Error(t, s.SetNotifySettings(15, 15, 12, 0, true))  // overdue_max_count < 1
	require.Equal(t, StepAwaitNotifySettings, s.Step, "rejected settings must not advance the step")
}

func TestSettingsUpdate_RejectsBeforeConfirmStep(t *testing.T) {
	s := NewSetupState(1)
	_, err := s.SettingsUpdate()
	require.Error(t, err)
}

func TestSetAdminRoles_EmptySelectionClearsToNonNilSlice(t *testing.T) {
	s := NewSetupState(1)
	s.ConfirmChannel(999)
	require.NoError(t, s.ConfirmPermissions(true))
	s.SetAdminRoles(nil)
	require.NotNil(t, s.AdminRoleIDs)
	require.Empty(t, s.AdminRoleIDs)
}
