package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meenmo/volib/calendar"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBusinessDays(t *testing.T) {
	t.Parallel()

	assert.False(t, calendar.IsBusinessDay(calendar.USD, date(2025, 7, 4)))
	assert.False(t, calendar.IsBusinessDay(calendar.TARGET, date(2025, 12, 26)))
	assert.False(t, calendar.IsBusinessDay(calendar.WeekendsOnly, date(2025, 7, 5)))
	assert.True(t, calendar.IsBusinessDay(calendar.WeekendsOnly, date(2025, 7, 4)))
}

func TestAdjust(t *testing.T) {
	t.Parallel()

	// Saturday 2025-05-31 rolls back into May under Modified Following.
	assert.Equal(t, date(2025, 5, 30), calendar.Adjust(calendar.TARGET, date(2025, 5, 31)))
	assert.Equal(t, date(2025, 6, 2), calendar.AdjustFollowing(calendar.TARGET, date(2025, 5, 31)))
}

func TestAddBusinessDays(t *testing.T) {
	t.Parallel()

	// Thursday 2025-07-03 + 1 USD day skips Independence Day and the weekend.
	assert.Equal(t, date(2025, 7, 7), calendar.AddBusinessDays(calendar.USD, date(2025, 7, 3), 1))
	assert.Equal(t, date(2025, 7, 3), calendar.AddBusinessDays(calendar.USD, date(2025, 7, 7), -1))
}

func TestAddJointBusinessDays(t *testing.T) {
	t.Parallel()

	// EURUSD T+2 from Wednesday 2025-07-02: Thursday 3rd, Friday 4th is a USD holiday -> Monday 7th.
	got := calendar.AddJointBusinessDays(date(2025, 7, 2), 2, calendar.TARGET, calendar.USD)
	assert.Equal(t, date(2025, 7, 7), got)
	assert.Equal(t, calendar.TARGET, calendar.ForCurrency("EUR"))
	assert.Equal(t, calendar.WeekendsOnly, calendar.ForCurrency("ZAR"))
}
