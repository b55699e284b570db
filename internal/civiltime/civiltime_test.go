package civiltime

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestResolveInstantStandardTime(t *testing.T) {
	loc := newYork(t)

	// 2025-11-04 is EST (UTC-5)
	got, err := ResolveInstant(2025, time.November, 4, 11, 0, loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.November, 4, 16, 0, 0, 0, time.UTC), got.UTC())
}

func TestResolveInstantDaylightTime(t *testing.T) {
	loc := newYork(t)

	// 2025-06-10 is EDT (UTC-4); minute not aligned to the scan step
	got, err := ResolveInstant(2025, time.June, 10, 11, 7, loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.June, 10, 15, 7, 0, 0, time.UTC), got.UTC())
}

func TestResolveInstantRoundTrip(t *testing.T) {
	loc := newYork(t)

	dates := []struct {
		year   int
		month  time.Month
		day    int
		hour   int
		minute int
	}{
		{2025, time.January, 15, 0, 0},
		{2025, time.March, 8, 23, 45},
		{2025, time.July, 4, 12, 30},
		{2025, time.November, 3, 9, 0},
		{2025, time.December, 31, 23, 59},
	}

	for _, d := range dates {
		got, err := ResolveInstant(d.year, d.month, d.day, d.hour, d.minute, loc)
		require.NoError(t, err)

		local := got.In(loc)
		require.Equal(t, d.year, local.Year())
		require.Equal(t, d.month, local.Month())
		require.Equal(t, d.day, local.Day())
		require.Equal(t, d.hour, local.Hour())
		require.Equal(t, d.minute, local.Minute())
	}
}

func TestResolveInstantSpringForwardGap(t *testing.T) {
	loc := newYork(t)

	// 2025-03-09 02:30 does not exist in New York; clocks jump 02:00 -> 03:00
	_, err := ResolveInstant(2025, time.March, 9, 2, 30, loc)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnresolvable))
}

func TestResolveInstantFallBackPicksEarlierInstant(t *testing.T) {
	loc := newYork(t)

	// 2025-11-02 01:30 occurs twice in New York: 05:30Z (EDT) and 06:30Z (EST).
	// The earlier instant wins.
	got, err := ResolveInstant(2025, time.November, 2, 1, 30, loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.November, 2, 5, 30, 0, 0, time.UTC), got.UTC())
}

func TestResolveInstantRejectsInvalidInput(t *testing.T) {
	loc := newYork(t)

	_, err := ResolveInstant(2025, time.June, 10, 24, 0, loc)
	require.Error(t, err)

	_, err = ResolveInstant(2025, time.June, 10, 11, 60, loc)
	require.Error(t, err)

	_, err = ResolveInstant(2025, time.June, 10, 11, 0, nil)
	require.Error(t, err)
}
