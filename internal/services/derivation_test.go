package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bretthoffman/goteamgo/internal/models"
)

func TestIsEligibleForPostEvent(t *testing.T) {
	cases := []struct {
		title    string
		eligible bool
	}{
		{"Ask Us Anything Call", true},
		{"Copy Clinic", true},
		{"Mastery Day Call", true},
		{"30-30-30 Call", false},
		{"30-30-30 call", false},
		{"  30-30-30 Call  ", false},
		{"30-30-30 Call Special", true}, // exclusion matches whole titles only
		{"Obvio Q&A", false},
		{"Weekly Obvio Q&A Session", false},
		{"obvio q&a", false},
	}

	for _, c := range cases {
		require.Equal(t, c.eligible, isEligibleForPostEvent(c.title), "title %q", c.title)
	}
}

func TestDerivedTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ask Us Anything Call", "Ask Us Anything Description Copy"},
		{"Mastery Day call", "Mastery Day Description Copy"},
		{"Copy Clinic", "Copy Clinic Description Copy"},
		{"Call", "Description Copy"},
		{"", "Description Copy"},
	}

	for _, c := range cases {
		require.Equal(t, c.want, derivedTitle(c.in), "title %q", c.in)
	}
}

func TestDerivedTiming(t *testing.T) {
	start := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)

	// Without a recorded end the call is assumed an hour long
	gotStart, gotEnd := derivedTiming(&models.CallEvent{StartAt: start})
	require.Equal(t, start.Add(time.Hour+time.Minute), gotStart)
	require.Equal(t, gotStart.Add(30*time.Minute), gotEnd)

	end := start.Add(45 * time.Minute)
	gotStart, gotEnd = derivedTiming(&models.CallEvent{StartAt: start, EndAt: &end})
	require.Equal(t, end.Add(time.Minute), gotStart)
	require.Equal(t, gotStart.Add(30*time.Minute), gotEnd)
}

func TestScriptCallType(t *testing.T) {
	require.Equal(t, models.CallTypeCopyCall, scriptCallType("Copy Clinic"))
	require.Equal(t, models.CallTypeMasteryDay, scriptCallType("Mastery Day Call"))
	require.Equal(t, models.CallTypeAskUsAnything, scriptCallType(" Ask Us Anything "))
}
