package window_test

import (
	"testing"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/atasun/UltraDialer-sub011/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func weekdayCampaign() *model.Campaign {
	return &model.Campaign{
		ID:                "c1",
		ScheduleEnabled:   true,
		ScheduleDays:      []string{"monday"},
		ScheduleTimeStart: "09:00",
		ScheduleTimeEnd:   "17:00",
		ScheduleTimezone:  "America/New_York",
	}
}

func TestIsWithin(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	c := weekdayCampaign()

	// 2024-06-03 is a Monday.
	assert.True(t, window.IsWithin(c, time.Date(2024, 6, 3, 10, 0, 0, 0, ny)), "monday 10:00")
	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 2, 10, 0, 0, 0, ny)), "sunday 10:00")
	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 3, 18, 0, 0, 0, ny)), "monday 18:00")

	// The instant is converted, whatever zone it arrives in.
	assert.True(t, window.IsWithin(c, time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)), "monday 10:00 EDT given as UTC")
}

func TestIsWithin_BoundariesInclusive(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	c := weekdayCampaign()

	assert.True(t, window.IsWithin(c, time.Date(2024, 6, 3, 9, 0, 0, 0, ny)))
	assert.True(t, window.IsWithin(c, time.Date(2024, 6, 3, 17, 0, 30, 0, ny)))
	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 3, 8, 59, 0, 0, ny)))
	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 3, 17, 1, 0, 0, ny)))
}

func TestIsWithin_DisabledAlwaysOpen(t *testing.T) {
	c := weekdayCampaign()
	c.ScheduleEnabled = false

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*7; h += 5 {
		assert.True(t, window.IsWithin(c, base.Add(time.Duration(h)*time.Hour)))
	}
}

func TestIsWithin_DaysOnly(t *testing.T) {
	c := &model.Campaign{ScheduleEnabled: true, ScheduleDays: []string{"Saturday", "SUNDAY"}}

	assert.True(t, window.IsWithin(c, time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)))
	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 3, 3, 0, 0, 0, time.UTC)))
}

func TestIsWithin_OnlyOneBoundSetIgnoresTime(t *testing.T) {
	c := &model.Campaign{ScheduleEnabled: true, ScheduleTimeStart: "09:00"}
	assert.True(t, window.IsWithin(c, time.Date(2024, 6, 3, 3, 0, 0, 0, time.UTC)))
}

func TestIsWithin_CrossingMidnightNeverMatches(t *testing.T) {
	c := &model.Campaign{ScheduleEnabled: true, ScheduleTimeStart: "22:00", ScheduleTimeEnd: "06:00"}

	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC)))
	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 3, 2, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, window.Validate(c), window.ErrWindowCrossesMidnight)
}

func TestIsWithin_InvalidTimeFailsClosed(t *testing.T) {
	c := &model.Campaign{ScheduleEnabled: true, ScheduleTimeStart: "9am", ScheduleTimeEnd: "17:00"}
	assert.False(t, window.IsWithin(c, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)))
}

func TestNextOpen(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	c := weekdayCampaign()

	t.Run("opens on the next listed day", func(t *testing.T) {
		next, ok := window.NextOpen(c, time.Date(2024, 6, 2, 10, 0, 0, 0, ny))
		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2024, 6, 3, 9, 0, 0, 0, ny)), "got %s", next)
	})

	t.Run("same day when start is still ahead", func(t *testing.T) {
		next, ok := window.NextOpen(c, time.Date(2024, 6, 3, 7, 0, 0, 0, ny))
		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2024, 6, 3, 9, 0, 0, 0, ny)), "got %s", next)
	})

	t.Run("a week ahead once today's start has passed", func(t *testing.T) {
		next, ok := window.NextOpen(c, time.Date(2024, 6, 3, 10, 0, 0, 0, ny))
		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2024, 6, 10, 9, 0, 0, 0, ny)), "got %s", next)
	})

	t.Run("local midnight without a start time", func(t *testing.T) {
		c := &model.Campaign{ScheduleEnabled: true, ScheduleDays: []string{"tuesday"}, ScheduleTimezone: "America/New_York"}
		next, ok := window.NextOpen(c, time.Date(2024, 6, 3, 10, 0, 0, 0, ny))
		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2024, 6, 4, 0, 0, 0, 0, ny)), "got %s", next)
	})

	t.Run("disabled returns now", func(t *testing.T) {
		c := &model.Campaign{}
		now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
		next, ok := window.NextOpen(c, now)
		require.True(t, ok)
		assert.Equal(t, now, next)
	})

	t.Run("no matching day", func(t *testing.T) {
		c := &model.Campaign{ScheduleEnabled: true, ScheduleDays: []string{"funday"}}
		_, ok := window.NextOpen(c, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
		assert.False(t, ok)
	})
}

func TestNextOpen_SpringForward(t *testing.T) {
	ny := mustLoad(t, "America/New_York")

	// Clocks jump from 02:00 EST to 03:00 EDT on 2024-03-10 (07:00 UTC).
	c := &model.Campaign{ScheduleEnabled: true, ScheduleTimeStart: "03:00", ScheduleTimezone: "America/New_York"}
	next, ok := window.NextOpen(c, time.Date(2024, 3, 9, 12, 0, 0, 0, ny))
	require.True(t, ok)

	assert.Equal(t, "2024-03-10 03:00", next.In(ny).Format("2006-01-02 15:04"))
	assert.True(t, next.Equal(time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)), "got %s", next.UTC())
}

func TestNextOpen_AfterTransitions(t *testing.T) {
	tests := []struct {
		name  string
		zone  string
		start string
		now   time.Time
		want  time.Time
	}{
		{
			name:  "new york spring forward morning",
			zone:  "America/New_York",
			start: "09:00",
			now:   time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC),
		},
		{
			name:  "new york fall back morning",
			zone:  "America/New_York",
			start: "09:00",
			now:   time.Date(2024, 11, 3, 4, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 11, 3, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "london first valid minute after the jump",
			zone:  "Europe/London",
			start: "02:00",
			now:   time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC),
		},
		{
			name:  "half hour offset",
			zone:  "Asia/Kolkata",
			start: "09:30",
			now:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &model.Campaign{ScheduleEnabled: true, ScheduleTimeStart: tt.start, ScheduleTimezone: tt.zone}
			next, ok := window.NextOpen(c, tt.now)
			require.True(t, ok)
			assert.True(t, next.Equal(tt.want), "got %s want %s", next.UTC(), tt.want)
			assert.Equal(t, tt.start, next.In(mustLoad(t, tt.zone)).Format("15:04"))
		})
	}
}

func TestWallClock_MatchesTimeDateOutsideTransitions(t *testing.T) {
	for _, zone := range []string{"UTC", "America/Los_Angeles", "Europe/Berlin", "Australia/Sydney", "Asia/Kathmandu"} {
		loc := mustLoad(t, zone)
		for month := time.January; month <= time.December; month++ {
			got := window.WallClock(2024, month, 15, 10, 45, loc)
			want := time.Date(2024, month, 15, 10, 45, 0, 0, loc)
			assert.True(t, got.Equal(want), "%s %s: got %s want %s", zone, month, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, window.Validate(weekdayCampaign()))

	c := &model.Campaign{ScheduleDays: []string{"mon"}, ScheduleTimezone: "Mars/Olympus", ScheduleTimeStart: "25:00"}
	err := window.Validate(c)
	assert.ErrorIs(t, err, window.ErrInvalidDay)
	assert.ErrorIs(t, err, window.ErrInvalidTimezone)
	assert.ErrorIs(t, err, window.ErrInvalidTime)
}
