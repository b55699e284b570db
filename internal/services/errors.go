package services

import "github.com/pkg/errors"

// Sentinel errors for the engine's failure taxonomy. Adapters' errors are
// wrapped with context but never swallowed; handlers map these onto HTTP
// statuses.
var (
	// ErrValidation marks missing or invalid input; never retried.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a referenced event or slot that does not exist.
	ErrNotFound = errors.New("event not found")

	// ErrSlotLocked is returned when timing or enablement changes hit a
	// slot whose document has been provisioned.
	ErrSlotLocked = errors.New("slot is locked: document already provisioned")

	// ErrNotCallEvent is returned when a post-event is requested for a
	// derived event.
	ErrNotCallEvent = errors.New("only call events can have a post-event")

	// ErrNotYetEligible is returned when a post-event is requested for a
	// future-dated call.
	ErrNotYetEligible = errors.New("post-event is only for past events")

	// ErrNotEligible is returned when the call's title excludes it from
	// post-event copy review.
	ErrNotEligible = errors.New("this call type is not eligible for post-event copy review")

	// ErrConsistency marks a violated event link invariant; fatal for the
	// request it surfaces on.
	ErrConsistency = errors.New("event link consistency violation")
)
