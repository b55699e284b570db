package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bretthoffman/goteamgo/internal/models"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestComputeOffsetMinutesFifteenMinBefore(t *testing.T) {
	loc := newYork(t)

	// pure relative preset: same answer regardless of date or zone state
	starts := []time.Time{
		time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC),
		time.Date(2025, time.November, 5, 21, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 10, 2, 17, 0, 0, time.UTC),
	}
	for _, start := range starts {
		got, err := ComputeOffsetMinutes(models.ReminderFifteenMinBefore, start, loc)
		require.NoError(t, err)
		require.Equal(t, -15, got)
	}
}

func TestComputeOffsetMinutesDayBefore(t *testing.T) {
	loc := newYork(t)

	// Call at 2025-11-05 16:00 EST (21:00Z). Day before is Nov 4, 11:00 EST,
	// which is 2025-11-04 16:00Z: 29 hours before the call.
	start := time.Date(2025, time.November, 5, 21, 0, 0, 0, time.UTC)

	got, err := ComputeOffsetMinutes(models.ReminderDayBefore, start, loc)
	require.NoError(t, err)
	require.Equal(t, -1740, got)
}

func TestComputeOffsetMinutesMorningOf(t *testing.T) {
	loc := newYork(t)

	// Same call: morning-of fires 09:00 EST = 14:00Z, 7 hours before.
	start := time.Date(2025, time.November, 5, 21, 0, 0, 0, time.UTC)

	got, err := ComputeOffsetMinutes(models.ReminderMorningOf, start, loc)
	require.NoError(t, err)
	require.Equal(t, -420, got)
}

func TestComputeOffsetMinutesDayBeforeAcrossDSTStart(t *testing.T) {
	loc := newYork(t)

	// Call at 2025-03-10 14:00 EDT (18:00Z), the day after clocks sprang
	// forward. The day before, Mar 9, 11:00 is EDT too (15:00Z): 27 hours.
	start := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)

	got, err := ComputeOffsetMinutes(models.ReminderDayBefore, start, loc)
	require.NoError(t, err)
	require.Equal(t, -1620, got)
}

func TestComputeOffsetMinutesUnknownKey(t *testing.T) {
	loc := newYork(t)

	_, err := ComputeOffsetMinutes(models.ReminderKey("hour_before"), time.Now(), loc)
	require.Error(t, err)
}

func TestInferPresetRoundTrips(t *testing.T) {
	loc := newYork(t)
	start := time.Date(2025, time.November, 5, 21, 0, 0, 0, time.UTC)

	for _, key := range []models.ReminderKey{
		models.ReminderDayBefore,
		models.ReminderMorningOf,
		models.ReminderFifteenMinBefore,
	} {
		offset, err := ComputeOffsetMinutes(key, start, loc)
		require.NoError(t, err)

		inferred, ok := InferPreset(offset, start, loc)
		require.True(t, ok, "offset %d should infer %s", offset, key)
		require.Equal(t, key, inferred)
	}
}

func TestInferPresetUnknownOffset(t *testing.T) {
	loc := newYork(t)
	start := time.Date(2025, time.November, 5, 21, 0, 0, 0, time.UTC)

	_, ok := InferPreset(-999, start, loc)
	require.False(t, ok)
}

func TestComputeOffsetFromUIMinutesBefore(t *testing.T) {
	loc := newYork(t)
	start := time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

	minutes := 90
	got, err := ComputeOffsetFromUI(TimingChoice{MinutesBefore: &minutes}, start, loc)
	require.NoError(t, err)
	require.Equal(t, -90, got)

	negative := -5
	_, err = ComputeOffsetFromUI(TimingChoice{MinutesBefore: &negative}, start, loc)
	require.Error(t, err)
}

func TestComputeOffsetFromUIWallClock(t *testing.T) {
	loc := newYork(t)

	// Call at 2025-11-05 16:00 EST (21:00Z); one day before at 11:00 AM
	// matches the day_before preset exactly.
	start := time.Date(2025, time.November, 5, 21, 0, 0, 0, time.UTC)

	got, err := ComputeOffsetFromUI(TimingChoice{
		DaysBefore: 1,
		Hour:       11,
		Minute:     0,
		Meridiem:   "AM",
	}, start, loc)
	require.NoError(t, err)
	require.Equal(t, -1740, got)
}

func TestComputeOffsetFromUITwelveHourEdges(t *testing.T) {
	loc := newYork(t)

	// Call at 2025-06-10 11:00 EDT (15:00Z)
	start := time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

	// 12 AM is midnight local: 04:00Z, eleven hours before the call
	got, err := ComputeOffsetFromUI(TimingChoice{Hour: 12, Minute: 0, Meridiem: "AM"}, start, loc)
	require.NoError(t, err)
	require.Equal(t, -660, got)

	// 12 PM is noon local: 16:00Z, one hour after the call
	got, err = ComputeOffsetFromUI(TimingChoice{Hour: 12, Minute: 0, Meridiem: "PM"}, start, loc)
	require.NoError(t, err)
	require.Equal(t, 60, got)
}

func TestComputeOffsetFromUIRejectsInvalidInput(t *testing.T) {
	loc := newYork(t)
	start := time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

	cases := []TimingChoice{
		{DaysBefore: 3, Hour: 11, Minute: 0, Meridiem: "AM"},
		{DaysBefore: 0, Hour: 0, Minute: 0, Meridiem: "AM"},
		{DaysBefore: 0, Hour: 13, Minute: 0, Meridiem: "AM"},
		{DaysBefore: 0, Hour: 11, Minute: 60, Meridiem: "AM"},
		{DaysBefore: 0, Hour: 11, Minute: 0, Meridiem: "XM"},
	}
	for _, choice := range cases {
		_, err := ComputeOffsetFromUI(choice, start, loc)
		require.Error(t, err)
	}
}
