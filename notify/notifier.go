package notify

import (
	"context"
	"time"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/models"

	"lsbgear/logging"
)

// Notifier implements §4.8 notify: DM first, channel-mention fallback on
// DM failure when the guild permits it, recording the outcome in the
// sent_reminders ledger. It never retries a failed delivery — the next
// scheduled reminder, if any, is the retry.
type Notifier struct {
	Sink  ChatSink
	Store *db.Store
	Clock clock.Clock
}

func New(sink ChatSink, store *db.Store, clk clock.Clock) *Notifier {
	return &Notifier{Sink: sink, Store: store, Clock: clk}
}

// Notify delivers message to userID for reservationID/kind, recording the
// outcome. fallbackChannelID is the guild's reservation channel, used only
// when dmFallback is true and the DM failed.
func (n *Notifier) Notify(ctx context.Context, userID int64, reservationID int64, kind models.ReminderKind, message string, fallbackChannelID *int64, dmFallback bool) (models.DeliveryMethod, error) {
	now := n.Clock.NowUTC()

	if err := n.Sink.SendDM(ctx, userID, message); err == nil {
		return n.record(ctx, reservationID, kind, now, models.DeliveryDM)
	}
	logging.Warnf("notify: DM to user %d failed, considering channel fallback", userID)

	if !dmFallback || fallbackChannelID == nil {
		return n.record(ctx, reservationID, kind, now, models.DeliveryFailed)
	}

	mention := n.Sink.Mention(userID)
	if _, err := n.Sink.SendMessage(ctx, *fallbackChannelID, mention+" "+message); err != nil {
		logging.Warnf("notify: channel fallback for user %d failed: %v", userID, err)
		return n.record(ctx, reservationID, kind, now, models.DeliveryFailed)
	}
	return n.record(ctx, reservationID, kind, now, models.DeliveryChannel)
}

func (n *Notifier) record(ctx context.Context, reservationID int64, kind models.ReminderKind, at time.Time, delivery models.DeliveryMethod) (models.DeliveryMethod, error) {
	if err := n.Store.MarkReminderSent(ctx, reservationID, kind, at, delivery); err != nil {
		return delivery, err
	}
	return delivery, nil
}
