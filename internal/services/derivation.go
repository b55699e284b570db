package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/bretthoffman/goteamgo/internal/models"
)

var (
	ineligible303030 = regexp.MustCompile(`(?i)^30-30-30\s+call$`)
	ineligibleObvio  = regexp.MustCompile(`(?i)obvio\s+q&a`)
	trailingCall     = regexp.MustCompile(`(?i)\s*call\s*$`)
)

// isEligibleForPostEvent applies the title-based exclusion rules: a whole
// title of "30-30-30 Call" or any mention of "Obvio Q&A" is excluded.
func isEligibleForPostEvent(title string) bool {
	t := strings.TrimSpace(title)
	if ineligible303030.MatchString(t) {
		return false
	}
	if ineligibleObvio.MatchString(t) {
		return false
	}
	return true
}

// derivedTitle strips a trailing "call" suffix from the original title and
// appends the copy-review label.
func derivedTitle(originalTitle string) string {
	t := strings.TrimSpace(originalTitle)
	if t == "" {
		return "Description Copy"
	}
	base := strings.TrimSpace(trailingCall.ReplaceAllString(t, ""))
	if base == "" {
		return "Description Copy"
	}
	return base + " Description Copy"
}

// derivedTiming computes the copy-review window: one minute past the call's
// end (start + 1h when no end is recorded), thirty minutes long.
func derivedTiming(original *models.CallEvent) (start, end time.Time) {
	callEnd := original.StartAt.Add(time.Hour)
	if original.EndAt != nil {
		callEnd = *original.EndAt
	}
	start = callEnd.Add(time.Minute)
	end = start.Add(30 * time.Minute)
	return start, end
}

// scriptCallType maps dashboard call-type labels onto the provisioning
// script's template keys.
func scriptCallType(callType string) string {
	switch strings.TrimSpace(callType) {
	case "Copy Clinic":
		return models.CallTypeCopyCall
	case "Mastery Day Call":
		return models.CallTypeMasteryDay
	default:
		return strings.TrimSpace(callType)
	}
}
