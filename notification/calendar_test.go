package notification_test

import (
	"github.com/denismitr/kire/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestNextOccurrence(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 9, 30, 15, 0, loc)

	t.Run("later today", func(t *testing.T) {
		next := notification.NextOccurrence(now, 18, 5)
		assert.Equal(t, time.Date(2026, 3, 10, 18, 5, 0, 0, loc), next)
	})

	t.Run("earlier today moves to tomorrow", func(t *testing.T) {
		next := notification.NextOccurrence(now, 7, 0)
		assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, loc), next)
	})

	t.Run("same minute already started moves to tomorrow", func(t *testing.T) {
		next := notification.NextOccurrence(now, 9, 30)
		assert.Equal(t, time.Date(2026, 3, 11, 9, 30, 0, 0, loc), next)
	})

	t.Run("exact instant is not in the future", func(t *testing.T) {
		exact := time.Date(2026, 3, 10, 9, 30, 0, 0, loc)
		next := notification.NextOccurrence(exact, 9, 30)
		assert.Equal(t, time.Date(2026, 3, 11, 9, 30, 0, 0, loc), next)
	})

	t.Run("end of month rolls over", func(t *testing.T) {
		eom := time.Date(2026, 1, 31, 23, 59, 0, 0, loc)
		next := notification.NextOccurrence(eom, 8, 0)
		assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, loc), next)
	})
}

func TestPlatformWeekday(t *testing.T) {
	tt := []struct {
		in, out int
	}{
		{0, 1}, {1, 2}, {6, 7}, {7, 1}, {-1, 7}, {13, 7}, {-8, 7},
	}

	for _, tc := range tt {
		assert.Equal(t, tc.out, notification.PlatformWeekday(tc.in), "day %d", tc.in)
	}
}

func TestNextWeekly(t *testing.T) {
	loc := time.UTC
	// 2026-03-10 is a Tuesday
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, loc)
	require.Equal(t, time.Tuesday, now.Weekday())

	t.Run("later this week", func(t *testing.T) {
		next := notification.NextWeekly(now, notification.PlatformWeekday(5), 8, 0)
		assert.Equal(t, time.Date(2026, 3, 13, 8, 0, 0, 0, loc), next)
	})

	t.Run("later today", func(t *testing.T) {
		next := notification.NextWeekly(now, notification.PlatformWeekday(2), 10, 0)
		assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, loc), next)
	})

	t.Run("already passed today goes to next week", func(t *testing.T) {
		next := notification.NextWeekly(now, notification.PlatformWeekday(2), 9, 30)
		assert.Equal(t, time.Date(2026, 3, 17, 9, 30, 0, 0, loc), next)
	})

	t.Run("sunday", func(t *testing.T) {
		next := notification.NextWeekly(now, 1, 12, 0)
		assert.Equal(t, time.Sunday, next.Weekday())
		assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, loc), next)
	})
}

func TestTrigger_Validate(t *testing.T) {
	assert.NoError(t, notification.Weekly(1, 0, 0, "").Validate())
	assert.NoError(t, notification.AtDate(time.Now(), "c").Validate())

	assert.ErrorIs(t, notification.Weekly(0, 1, 1, "").Validate(), notification.ErrInvalidTrigger)
	assert.ErrorIs(t, notification.Weekly(8, 1, 1, "").Validate(), notification.ErrInvalidTrigger)
	assert.ErrorIs(t, notification.Weekly(3, 24, 1, "").Validate(), notification.ErrInvalidTrigger)
	assert.ErrorIs(t, notification.Weekly(3, 1, 60, "").Validate(), notification.ErrInvalidTrigger)
	assert.ErrorIs(t, notification.Trigger{Type: notification.DateTrigger}.Validate(), notification.ErrInvalidTrigger)
	assert.ErrorIs(t, notification.Trigger{Type: "cron"}.Validate(), notification.ErrInvalidTrigger)
}

func TestTrigger_Next(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	date := notification.AtDate(now.Add(time.Hour), "")
	next, ok := date.Next(now)
	assert.True(t, ok)
	assert.Equal(t, now.Add(time.Hour), next)

	_, ok = date.Next(now.Add(2 * time.Hour))
	assert.False(t, ok)

	weekly := notification.Weekly(3, 9, 30, "")
	next, ok = weekly.Next(now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 17, 9, 30, 0, 0, time.UTC), next)
}
