// Package reminder computes signed minute offsets between an event's start
// instant and the instant a reminder slot should fire.
package reminder

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bretthoffman/goteamgo/internal/civiltime"
	"github.com/bretthoffman/goteamgo/internal/models"
)

const (
	dayBeforeHour = 11 // 11:00 local, day before the call
	morningOfHour = 9  // 09:00 local, day of the call
)

// ComputeOffsetMinutes resolves a named preset against an event start instant
// and returns the signed minute offset (negative = before start).
// 15_min_before is a pure relative offset; the two civil presets resolve
// through the reference zone.
func ComputeOffsetMinutes(key models.ReminderKey, startAt time.Time, loc *time.Location) (int, error) {
	switch key {
	case models.ReminderFifteenMinBefore:
		return -15, nil
	case models.ReminderDayBefore:
		return civilOffset(startAt, loc, -1, dayBeforeHour)
	case models.ReminderMorningOf:
		return civilOffset(startAt, loc, 0, morningOfHour)
	default:
		return 0, errors.Errorf("unknown reminder key %q", key)
	}
}

func civilOffset(startAt time.Time, loc *time.Location, dayShift, hour int) (int, error) {
	local := startAt.In(loc)
	date := local.AddDate(0, 0, dayShift)

	target, err := civiltime.ResolveInstant(date.Year(), date.Month(), date.Day(), hour, 0, loc)
	if err != nil {
		return 0, errors.Wrap(err, "failed to resolve reminder instant")
	}

	return minutesBetween(startAt, target), nil
}

// InferPreset reports which preset, if any, a stored offset corresponds to
// for an event starting at startAt. Used on the read path when a slot carries
// a bare offset with no reminder key.
func InferPreset(offsetMinutes int, startAt time.Time, loc *time.Location) (models.ReminderKey, bool) {
	keys := []models.ReminderKey{
		models.ReminderDayBefore,
		models.ReminderMorningOf,
		models.ReminderFifteenMinBefore,
	}
	for _, key := range keys {
		computed, err := ComputeOffsetMinutes(key, startAt, loc)
		if err != nil {
			continue
		}
		if computed == offsetMinutes {
			return key, true
		}
	}
	return "", false
}

// TimingChoice is the manual slot editor's free-form alternative to the named
// presets: either a direct minutes-before value, or a day offset plus a
// 12-hour wall clock.
type TimingChoice struct {
	MinutesBefore *int   `json:"minutes_before"`
	DaysBefore    int    `json:"days_before"`
	Hour          int    `json:"hour"`
	Minute        int    `json:"minute"`
	Meridiem      string `json:"meridiem"`
}

// ComputeOffsetFromUI converts a TimingChoice into a signed minute offset
// relative to the event start instant.
func ComputeOffsetFromUI(choice TimingChoice, startAt time.Time, loc *time.Location) (int, error) {
	if choice.MinutesBefore != nil {
		if *choice.MinutesBefore < 0 {
			return 0, errors.New("minutes_before must not be negative")
		}
		return -*choice.MinutesBefore, nil
	}

	if choice.DaysBefore < 0 || choice.DaysBefore > 2 {
		return 0, errors.Errorf("days_before must be 0, 1 or 2, got %d", choice.DaysBefore)
	}
	if choice.Hour < 1 || choice.Hour > 12 {
		return 0, errors.Errorf("hour must be between 1 and 12, got %d", choice.Hour)
	}
	if choice.Minute < 0 || choice.Minute > 59 {
		return 0, errors.Errorf("minute must be between 0 and 59, got %d", choice.Minute)
	}

	hour24 := choice.Hour % 12
	switch strings.ToUpper(choice.Meridiem) {
	case "AM":
	case "PM":
		hour24 += 12
	default:
		return 0, errors.Errorf("meridiem must be AM or PM, got %q", choice.Meridiem)
	}

	local := startAt.In(loc)
	date := local.AddDate(0, 0, -choice.DaysBefore)

	target, err := civiltime.ResolveInstant(date.Year(), date.Month(), date.Day(), hour24, choice.Minute, loc)
	if err != nil {
		return 0, errors.Wrap(err, "failed to resolve reminder instant")
	}

	return minutesBetween(startAt, target), nil
}

func minutesBetween(startAt, target time.Time) int {
	return int(math.Round(target.Sub(startAt).Minutes()))
}
