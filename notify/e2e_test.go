package notify

import (
	"context"
	"testing"
	"time"

	"lsbgear/clock"
	"lsbgear/models"

	"github.com/stretchr/testify/require"
)

// TestE2E_DMFallbackPostsMentionInReservationChannel covers scenario 5:
// with dm_fallback_to_channel enabled on the guild, a failed DM falls back
// to an @-mention in the reservation channel and the ledger records
// Channel, not DM.
func TestE2E_DMFallbackPostsMentionInReservationChannel(t *testing.T) {
	store := newTestStore(t)
	resID := seedReservation(t, store, 1)

	sink := NewMockSink()
	sink.FailDMFor[42] = true
	n := New(sink, store, clock.NewTest(time.Now()))

	reservationChannelID := int64(999)
	delivery, err := n.Notify(context.Background(), 42, resID, models.ReminderPreEnd,
		"Equipment reminder: your reservation ends soon", &reservationChannelID, true)
	require.NoError(t, err)
	require.Equal(t, models.DeliveryChannel, delivery)

	require.Empty(t, sink.DMs, "the DM attempt must have failed, not succeeded")
	msgs := sink.Messages[reservationChannelID]
	require.Len(t, msgs, 1)
	for _, content := range msgs {
		require.Contains(t, content, "<@42>", "fallback post must @-mention the user")
		require.Contains(t, content, "Equipment reminder")
	}

	sent, err := store.WasReminderSent(context.Background(), resID, models.ReminderPreEnd)
	require.NoError(t, err)
	require.True(t, sent)
	kinds, err := store.SentReminderKinds(context.Background(), resID)
	require.NoError(t, err)
	require.ElementsMatch(t, []models.ReminderKind{models.ReminderPreEnd}, kinds)
}
