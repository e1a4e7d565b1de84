package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	utc, err := ParseJST("2024-01-15 10:30")
	require.NoError(t, err)
	assert.Equal(t, "2024/01/15 10:30", FormatJST(utc))

	again, err := ParseJST(FormatJST(utc))
	require.NoError(t, err)
	assert.Equal(t, utc.Truncate(time.Minute), again)
}

func TestJSTHasNoDST(t *testing.T) {
	winter, err := ParseJST("2024-01-15 10:00")
	require.NoError(t, err)
	summer, err := ParseJST("2024-07-15 10:00")
	require.NoError(t, err)

	_, winterOffset := winter.In(JST).Zone()
	_, summerOffset := summer.In(JST).Zone()
	assert.Equal(t, 9*60*60, winterOffset)
	assert.Equal(t, winterOffset, summerOffset)
}

func TestTestClockAdvance(t *testing.T) {
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	c := NewTest(base)
	assert.Equal(t, base, c.NowUTC())

	c.Advance(90 * time.Minute)
	assert.Equal(t, base.Add(90*time.Minute), c.NowUTC())
}
