// Package clock provides an injectable "now" source and the fixed JST
// (UTC+9, no DST) display timezone used throughout the reservation core.
package clock

import (
	"fmt"
	"time"
)

// JST is Japan Standard Time: a fixed +09:00 offset, never a tz-database
// lookup, matching the original's static offset rather than DST-aware rules.
var JST = time.FixedZone("JST", 9*60*60)

const (
	inputLayout  = "2006-01-02 15:04"
	displayLayout = "2006/01/02 15:04"
)

// Clock is the sole source of "now" for every time-sensitive operation.
// Production code takes clock.Real{}; tests take *Test.
type Clock interface {
	NowUTC() time.Time
	NowJST() time.Time
}

// Real is the production clock.
type Real struct{}

func (Real) NowUTC() time.Time { return time.Now().UTC() }
func (Real) NowJST() time.Time { return time.Now().In(JST) }

// Test is a deterministic, manually-advanced clock for tests and for
// replaying time-window filters.
type Test struct {
	now time.Time
}

// NewTest returns a Test clock fixed at t (any timezone; stored as UTC).
func NewTest(t time.Time) *Test { return &Test{now: t.UTC()} }

func (c *Test) NowUTC() time.Time { return c.now }
func (c *Test) NowJST() time.Time { return c.now.In(JST) }

// Advance moves the clock forward by d and returns the new time.
func (c *Test) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

// Set pins the clock to t.
func (c *Test) Set(t time.Time) { c.now = t.UTC() }

// ParseJST parses "YYYY-MM-DD HH:MM" (or FormatJST's "YYYY/MM/DD HH:MM") as a
// JST wall-clock time and returns the equivalent UTC instant. This is the sole
// parser for user-supplied wizard input (§6 time formats).
func ParseJST(s string) (time.Time, error) {
	t, err := time.ParseInLocation(inputLayout, s, JST)
	if err != nil {
		var derr error
		if t, derr = time.ParseInLocation(displayLayout, s, JST); derr != nil {
			return time.Time{}, fmt.Errorf("parse jst %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

// FormatJST renders a UTC instant as "YYYY/MM/DD HH:MM" in JST. Callers that
// need the "(JST)" marker on first mention append it themselves so the
// marker isn't repeated on every line of a rendered embed.
func FormatJST(t time.Time) string {
	return t.In(JST).Format(displayLayout)
}

// FormatJSTWithMarker is FormatJST with the trailing "(JST)" suffix used on
// the first timestamp mentioned in a message.
func FormatJSTWithMarker(t time.Time) string {
	return FormatJST(t) + " (JST)"
}
