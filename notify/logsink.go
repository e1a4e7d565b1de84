package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	"lsbgear/logging"
)

// LogSink is the production default ChatSink until a real chat-platform
// gateway client is wired in — per the package doc, "nothing above this
// package ever talks to the real transport directly", and that transport
// is explicitly out of scope here. It never fails a call, so DM-then-
// channel-fallback and the reconciler's edit/create/delete plan all run
// their real logic end to end; a deployment that needs actual delivery
// swaps this for a ChatSink backed by its gateway SDK of choice without
// touching reconcile/notify/waitlist.
type LogSink struct {
	nextMessageID int64
}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) SendMessage(ctx context.Context, channelID int64, content string) (int64, error) {
	id := atomic.AddInt64(&s.nextMessageID, 1)
	logging.Infof("chat: send channel=%d message=%d %q", channelID, id, content)
	return id, nil
}

func (s *LogSink) EditMessage(ctx context.Context, channelID, messageID int64, content string) error {
	logging.Infof("chat: edit channel=%d message=%d %q", channelID, messageID, content)
	return nil
}

func (s *LogSink) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	logging.Infof("chat: delete channel=%d message=%d", channelID, messageID)
	return nil
}

func (s *LogSink) SendDM(ctx context.Context, userID int64, content string) error {
	logging.Infof("chat: dm user=%d %q", userID, content)
	return nil
}

func (s *LogSink) ListChannelMessages(ctx context.Context, channelID int64, since int64) ([]ChatMessage, error) {
	return nil, nil
}

func (s *LogSink) Mention(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}
