package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// EventKind discriminates originating calls from their derived copy-review events
type EventKind string

const (
	KindCall            EventKind = "call"
	KindDescriptionCopy EventKind = "description_copy"
)

// ReminderKey is a named civil-time policy for a slot's send time
type ReminderKey string

const (
	ReminderDayBefore        ReminderKey = "day_before"
	ReminderMorningOf        ReminderKey = "morning_of"
	ReminderFifteenMinBefore ReminderKey = "15_min_before"
)

// Known call types used by the dashboard
const (
	CallTypeAskUsAnything = "Ask Us Anything"
	CallTypeCopyCall      = "Copy Call"
	CallTypeMasteryDay    = "Mastery Day"
	CallTypeObvioQA       = "Obvio Q&A"
	CallType303030        = "30-30-30 Call"
)

// SlotState describes where a reminder slot is in its lifecycle
type SlotState string

const (
	SlotUnconfigured SlotState = "unconfigured"
	SlotConfigured   SlotState = "configured"
	SlotLocked       SlotState = "locked"
)

// CallEvent represents a scheduled call on the calendar, or a derived
// description-copy event linked to one
type CallEvent struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	Title            string         `gorm:"not null" json:"title"`
	CallType         string         `gorm:"not null" json:"call_type"`
	StartAt          time.Time      `gorm:"not null;index" json:"start_at"`
	EndAt            *time.Time     `json:"end_at"`
	Kind             EventKind      `gorm:"type:varchar(32);not null;default:'call';index" json:"kind"`
	Confirmed        bool           `gorm:"not null;default:false" json:"confirmed"`
	PostEventEnabled bool           `gorm:"not null;default:false" json:"post_event_enabled"`
	PostEventEventID *uuid.UUID     `gorm:"type:uuid" json:"post_event_event_id"`
	ParentEventID    *uuid.UUID     `gorm:"type:uuid;index" json:"parent_event_id"`
	Slots            []ReminderSlot `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
}

// SlotCount returns how many reminder slots an event of this kind carries
func (e *CallEvent) SlotCount() int {
	if e.Kind == KindDescriptionCopy {
		return 1
	}
	return 3
}

// ReminderSlot is one of up to three reminder units attached to an event,
// keyed by (event id, slot index)
type ReminderSlot struct {
	EventID       uuid.UUID    `gorm:"type:uuid;primaryKey" json:"event_id"`
	SlotIndex     int          `gorm:"primaryKey" json:"slot_index"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	Enabled       bool         `gorm:"not null;default:false" json:"enabled"`
	OffsetMinutes int          `gorm:"not null;default:0" json:"offset_minutes"`
	ReminderKey   *ReminderKey `gorm:"type:varchar(32)" json:"reminder_key"`
	Subject       string       `gorm:"not null;default:''" json:"subject"`
	BodyHTML      string       `gorm:"column:body_html;not null;default:''" json:"body_html"`
	BodyText      string       `gorm:"not null;default:''" json:"body_text"`
	DocID         *string      `gorm:"column:doc_id" json:"doc_id"`
	DocURL        *string      `gorm:"column:doc_url" json:"doc_url"`
}

// Locked reports whether the slot's document has been provisioned. A locked
// slot's timing and enablement are immutable.
func (s *ReminderSlot) Locked() bool {
	return s.DocID != nil && s.DocURL != nil
}

// State returns the slot's lifecycle state
func (s *ReminderSlot) State() SlotState {
	switch {
	case s.Locked():
		return SlotLocked
	case s.ReminderKey != nil || s.OffsetMinutes != 0:
		return SlotConfigured
	default:
		return SlotUnconfigured
	}
}

// SendAt computes the absolute instant this slot should fire for an event
// starting at startAt
func (s *ReminderSlot) SendAt(startAt time.Time) time.Time {
	return startAt.Add(time.Duration(s.OffsetMinutes) * time.Minute)
}

// DefaultSlots builds the initial slot batch for a new event: three enabled
// slots at 24h / 6h / 15m before the call, or a single disabled slot for a
// description-copy event
func DefaultSlots(event *CallEvent) []ReminderSlot {
	if event.Kind == KindDescriptionCopy {
		return []ReminderSlot{{
			EventID:   event.ID,
			SlotIndex: 1,
			Enabled:   false,
		}}
	}

	offsets := []int{-1440, -360, -15}
	slots := make([]ReminderSlot, 0, len(offsets))
	for i, offset := range offsets {
		slots = append(slots, ReminderSlot{
			EventID:       event.ID,
			SlotIndex:     i + 1,
			Enabled:       true,
			OffsetMinutes: offset,
		})
	}
	return slots
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&CallEvent{},
		&ReminderSlot{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
