// Package store is the persistence boundary for events and reminder slots.
// The engine only talks to the Store interface; the gorm/postgres adapter is
// the primary implementation and an in-memory adapter serves as the startup
// fallback and test double.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bretthoffman/goteamgo/internal/models"
)

// ErrNotFound is returned when a referenced event or slot does not exist
var ErrNotFound = errors.New("store: record not found")

// EventPatch is a partial update of an event. Nil fields are left unchanged.
type EventPatch struct {
	Title            *string
	CallType         *string
	StartAt          *time.Time
	EndAt            *time.Time
	Confirmed        *bool
	PostEventEnabled *bool
	PostEventEventID *uuid.UUID
}

// SlotPatch is a partial update of a reminder slot. Nil fields are left
// unchanged; ClearReminderKey nulls the key when a custom offset replaces a
// preset.
type SlotPatch struct {
	Enabled          *bool
	OffsetMinutes    *int
	ReminderKey      *models.ReminderKey
	ClearReminderKey bool
	Subject          *string
	BodyHTML         *string
	BodyText         *string
}

// Store provides persisted access to events and their reminder slots
type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.CallEvent, error)
	ListEventsInRange(ctx context.Context, start, end time.Time, kind models.EventKind) ([]models.CallEvent, error)
	ListEventsWithPostEvent(ctx context.Context) ([]models.CallEvent, error)
	InsertEvent(ctx context.Context, event *models.CallEvent) error
	UpdateEvent(ctx context.Context, id uuid.UUID, patch EventPatch) (*models.CallEvent, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	GetSlot(ctx context.Context, eventID uuid.UUID, slotIndex int) (*models.ReminderSlot, error)
	ListSlots(ctx context.Context, eventID uuid.UUID) ([]models.ReminderSlot, error)
	InsertSlots(ctx context.Context, slots []models.ReminderSlot) error
	UpdateSlot(ctx context.Context, eventID uuid.UUID, slotIndex int, patch SlotPatch) (*models.ReminderSlot, error)

	// ClaimSlotDocument stores a provisioned document reference on a slot,
	// conditional on no document being present yet. Returns false when
	// another caller already claimed the slot.
	ClaimSlotDocument(ctx context.Context, eventID uuid.UUID, slotIndex int, docID, docURL string) (bool, error)
}

func (p EventPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.CallType != nil {
		cols["call_type"] = *p.CallType
	}
	if p.StartAt != nil {
		cols["start_at"] = *p.StartAt
	}
	if p.EndAt != nil {
		cols["end_at"] = *p.EndAt
	}
	if p.Confirmed != nil {
		cols["confirmed"] = *p.Confirmed
	}
	if p.PostEventEnabled != nil {
		cols["post_event_enabled"] = *p.PostEventEnabled
	}
	if p.PostEventEventID != nil {
		cols["post_event_event_id"] = *p.PostEventEventID
	}
	return cols
}

func (p SlotPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Enabled != nil {
		cols["enabled"] = *p.Enabled
	}
	if p.OffsetMinutes != nil {
		cols["offset_minutes"] = *p.OffsetMinutes
	}
	if p.ReminderKey != nil {
		cols["reminder_key"] = *p.ReminderKey
	} else if p.ClearReminderKey {
		cols["reminder_key"] = nil
	}
	if p.Subject != nil {
		cols["subject"] = *p.Subject
	}
	if p.BodyHTML != nil {
		cols["body_html"] = *p.BodyHTML
	}
	if p.BodyText != nil {
		cols["body_text"] = *p.BodyText
	}
	return cols
}
