// Package civiltime converts wall-clock tuples in a reference time zone into
// absolute instants without going through a civil-calendar construction API.
// Resolution is a bounded search over candidate instants, which keeps the
// result correct across daylight-saving transitions.
package civiltime

import (
	"time"

	"github.com/pkg/errors"
)

const (
	searchWindow = 36 * time.Hour
	searchStep   = 15 * time.Minute
)

// ErrUnresolvable is returned when no instant in the search window projects
// onto the requested wall-clock fields. This happens for wall times inside a
// spring-forward gap, and otherwise signals a broken zone database.
var ErrUnresolvable = errors.New("civiltime: no instant matches the requested wall clock")

// ResolveInstant returns the absolute instant whose wall-clock representation
// in loc equals the given civil fields.
//
// The search seeds a coarse candidate by reading the target fields as UTC,
// then scans ±36h in 15-minute steps from earliest to latest and returns the
// first candidate whose projection into loc matches exactly. Scanning from
// the earliest edge makes the policy for fall-back ambiguity explicit: the
// earlier of the two valid instants wins.
func ResolveInstant(year int, month time.Month, day, hour, minute int, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, errors.New("civiltime: nil location")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, errors.Errorf("civiltime: invalid wall clock %02d:%02d", hour, minute)
	}

	// Reading the target fields as UTC is plain instant arithmetic, not a
	// zone conversion; it only anchors the scan so candidate minutes stay
	// congruent with the target for any zone offset that is a multiple of
	// the step.
	seed := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)

	steps := int(searchWindow / searchStep)
	for k := -steps; k <= steps; k++ {
		candidate := seed.Add(time.Duration(k) * searchStep)
		if matchesWallClock(candidate, year, month, day, hour, minute, loc) {
			return candidate, nil
		}
	}

	return time.Time{}, errors.Wrapf(ErrUnresolvable,
		"%04d-%02d-%02d %02d:%02d in %s", year, int(month), day, hour, minute, loc)
}

func matchesWallClock(candidate time.Time, year int, month time.Month, day, hour, minute int, loc *time.Location) bool {
	local := candidate.In(loc)
	y, m, d := local.Date()
	return y == year && m == month && d == day &&
		local.Hour() == hour && local.Minute() == minute && local.Second() == 0
}
