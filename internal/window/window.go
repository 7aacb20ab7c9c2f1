// Package window decides whether a campaign may place calls at a given instant
// and when its call window next opens.
package window

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/model"
)

// DefaultTimezone is used when a campaign does not name one.
const DefaultTimezone = "UTC"

// scanDays is how far ahead NextOpen looks for an opening.
const scanDays = 7

// maxOffsetCorrections bounds the wall-clock to instant fixed-point loop. Three
// corrections resolve single-hour DST shifts; zones with stranger offset
// changes may not converge.
const maxOffsetCorrections = 3

var (
	ErrInvalidTime           = errors.New("invalid time of day")
	ErrInvalidDay            = errors.New("invalid schedule day")
	ErrInvalidTimezone       = errors.New("invalid timezone")
	ErrWindowCrossesMidnight = errors.New("window crosses midnight")
)

// IsWithin reports whether now falls inside the campaign call window.
func IsWithin(c *model.Campaign, now time.Time) bool {
	if !c.ScheduleEnabled {
		return true
	}

	local := now.In(location(c))

	if len(c.ScheduleDays) > 0 && !containsDay(c.ScheduleDays, local.Weekday()) {
		return false
	}

	if c.ScheduleTimeStart != "" && c.ScheduleTimeEnd != "" {
		start, err := parseMinutes(c.ScheduleTimeStart)
		if err != nil {
			slog.Warn("unparseable schedule start, treating as closed", "campaign_id", c.ID, "error", err)
			return false
		}
		end, err := parseMinutes(c.ScheduleTimeEnd)
		if err != nil {
			slog.Warn("unparseable schedule end, treating as closed", "campaign_id", c.ID, "error", err)
			return false
		}

		// A window with start after end never matches. See Validate.
		current := local.Hour()*60 + local.Minute()
		if current < start || current > end {
			return false
		}
	}

	return true
}

// NextOpen returns the first instant strictly after now at which the window
// opens. It returns now when scheduling is disabled and false when nothing
// opens within the next week.
func NextOpen(c *model.Campaign, now time.Time) (time.Time, bool) {
	if !c.ScheduleEnabled {
		return now, true
	}

	loc := location(c)

	startHour, startMinute := 0, 0
	if c.ScheduleTimeStart != "" {
		minutes, err := parseMinutes(c.ScheduleTimeStart)
		if err != nil {
			slog.Warn("unparseable schedule start", "campaign_id", c.ID, "error", err)
			return time.Time{}, false
		}
		startHour, startMinute = minutes/60, minutes%60
	}

	local := now.In(loc)
	for i := 0; i <= scanDays; i++ {
		// Calendar arithmetic on the local date, not on 24h offsets.
		day := time.Date(local.Year(), local.Month(), local.Day()+i, 12, 0, 0, 0, loc)
		if len(c.ScheduleDays) > 0 && !containsDay(c.ScheduleDays, day.Weekday()) {
			continue
		}

		candidate := WallClock(day.Year(), day.Month(), day.Day(), startHour, startMinute, loc)
		if candidate.After(now) {
			return candidate, true
		}
	}

	return time.Time{}, false
}

// WallClock resolves a local wall-clock time in loc to an instant. The zone
// offset depends on the instant being solved for, so the answer is found by
// guessing the wall clock as UTC, measuring how far the guess lands from the
// target once rendered in loc, and correcting.
func WallClock(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	want := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	guess := want
	for i := 0; i < maxOffsetCorrections; i++ {
		local := guess.In(loc)
		got := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
		drift := got.Sub(want)
		if drift == 0 {
			break
		}
		guess = guess.Add(-drift)
	}
	return guess.In(loc)
}

// Validate reports configuration the evaluator cannot honour as written.
func Validate(c *model.Campaign) error {
	var errs []error
	if c.ScheduleTimezone != "" {
		if _, err := time.LoadLocation(c.ScheduleTimezone); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %w", ErrInvalidTimezone, c.ScheduleTimezone, err))
		}
	}
	for _, d := range c.ScheduleDays {
		if _, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidDay, d))
		}
	}

	var start, end int
	var startErr, endErr error
	if c.ScheduleTimeStart != "" {
		start, startErr = parseMinutes(c.ScheduleTimeStart)
		if startErr != nil {
			errs = append(errs, startErr)
		}
	}
	if c.ScheduleTimeEnd != "" {
		end, endErr = parseMinutes(c.ScheduleTimeEnd)
		if endErr != nil {
			errs = append(errs, endErr)
		}
	}
	if c.ScheduleTimeStart != "" && c.ScheduleTimeEnd != "" && startErr == nil && endErr == nil && start > end {
		errs = append(errs, fmt.Errorf("%w: %s-%s never matches", ErrWindowCrossesMidnight, c.ScheduleTimeStart, c.ScheduleTimeEnd))
	}

	return errors.Join(errs...)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func containsDay(days []string, wd time.Weekday) bool {
	name := strings.ToLower(wd.String())
	for _, d := range days {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}

func location(c *model.Campaign) *time.Location {
	name := c.ScheduleTimezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown schedule timezone, using default", "campaign_id", c.ID, "timezone", name, "default", DefaultTimezone)
		return time.UTC
	}
	return loc
}

// parseMinutes parses "HH:MM" into minutes since midnight.
func parseMinutes(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour*60 + minute, nil
}
