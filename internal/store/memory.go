package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bretthoffman/goteamgo/internal/models"
)

type slotKey struct {
	eventID   uuid.UUID
	slotIndex int
}

// MemoryStore is an in-process Store used when the persistent store is
// unreachable at startup, and as the test double for the engine.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID]models.CallEvent
	slots  map[slotKey]models.ReminderSlot
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[uuid.UUID]models.CallEvent),
		slots:  make(map[slotKey]models.ReminderSlot),
	}
}

// GetEvent gets an event by id
func (s *MemoryStore) GetEvent(_ context.Context, id uuid.UUID) (*models.CallEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEvent(event), nil
}

// ListEventsInRange lists events of the given kind starting within [start, end]
func (s *MemoryStore) ListEventsInRange(_ context.Context, start, end time.Time, kind models.EventKind) ([]models.CallEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []models.CallEvent
	for _, event := range s.events {
		if event.Kind != kind {
			continue
		}
		if event.StartAt.Before(start) || event.StartAt.After(end) {
			continue
		}
		events = append(events, *copyEvent(event))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartAt.Before(events[j].StartAt) })
	return events, nil
}

// ListEventsWithPostEvent lists call events that carry a post-event link
func (s *MemoryStore) ListEventsWithPostEvent(_ context.Context) ([]models.CallEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []models.CallEvent
	for _, event := range s.events {
		if event.Kind == models.KindCall && event.PostEventEventID != nil {
			events = append(events, *copyEvent(event))
		}
	}
	return events, nil
}

// InsertEvent creates a new event
func (s *MemoryStore) InsertEvent(_ context.Context, event *models.CallEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	s.events[event.ID] = *copyEvent(*event)
	return nil
}

// UpdateEvent applies a partial update and returns the updated row
func (s *MemoryStore) UpdateEvent(_ context.Context, id uuid.UUID, patch EventPatch) (*models.CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.CallType != nil {
		event.CallType = *patch.CallType
	}
	if patch.StartAt != nil {
		event.StartAt = *patch.StartAt
	}
	if patch.EndAt != nil {
		end := *patch.EndAt
		event.EndAt = &end
	}
	if patch.Confirmed != nil {
		event.Confirmed = *patch.Confirmed
	}
	if patch.PostEventEnabled != nil {
		event.PostEventEnabled = *patch.PostEventEnabled
	}
	if patch.PostEventEventID != nil {
		linked := *patch.PostEventEventID
		event.PostEventEventID = &linked
	}
	event.UpdatedAt = time.Now()

	s.events[id] = event
	return copyEvent(event), nil
}

// DeleteEvent deletes an event and its slots
func (s *MemoryStore) DeleteEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	for key := range s.slots {
		if key.eventID == id {
			delete(s.slots, key)
		}
	}
	return nil
}

// GetSlot gets a slot by (event id, slot index)
func (s *MemoryStore) GetSlot(_ context.Context, eventID uuid.UUID, slotIndex int) (*models.ReminderSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[slotKey{eventID, slotIndex}]
	if !ok {
		return nil, ErrNotFound
	}
	return copySlot(slot), nil
}

// ListSlots lists an event's slots ordered by index
func (s *MemoryStore) ListSlots(_ context.Context, eventID uuid.UUID) ([]models.ReminderSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var slots []models.ReminderSlot
	for key, slot := range s.slots {
		if key.eventID == eventID {
			slots = append(slots, *copySlot(slot))
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotIndex < slots[j].SlotIndex })
	return slots, nil
}

// InsertSlots creates a batch of slots
func (s *MemoryStore) InsertSlots(_ context.Context, slots []models.ReminderSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, slot := range slots {
		slot.CreatedAt = now
		slot.UpdatedAt = now
		s.slots[slotKey{slot.EventID, slot.SlotIndex}] = *copySlot(slot)
	}
	return nil
}

// UpdateSlot applies a partial update and returns the updated row
func (s *MemoryStore) UpdateSlot(_ context.Context, eventID uuid.UUID, slotIndex int, patch SlotPatch) (*models.ReminderSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{eventID, slotIndex}
	slot, ok := s.slots[key]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Enabled != nil {
		slot.Enabled = *patch.Enabled
	}
	if patch.OffsetMinutes != nil {
		slot.OffsetMinutes = *patch.OffsetMinutes
	}
	if patch.ReminderKey != nil {
		reminderKey := *patch.ReminderKey
		slot.ReminderKey = &reminderKey
	} else if patch.ClearReminderKey {
		slot.ReminderKey = nil
	}
	if patch.Subject != nil {
		slot.Subject = *patch.Subject
	}
	if patch.BodyHTML != nil {
		slot.BodyHTML = *patch.BodyHTML
	}
	if patch.BodyText != nil {
		slot.BodyText = *patch.BodyText
	}
	slot.UpdatedAt = time.Now()

	s.slots[key] = slot
	return copySlot(slot), nil
}

// ClaimSlotDocument stores a document reference only while the slot has none
func (s *MemoryStore) ClaimSlotDocument(_ context.Context, eventID uuid.UUID, slotIndex int, docID, docURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{eventID, slotIndex}
	slot, ok := s.slots[key]
	if !ok {
		return false, ErrNotFound
	}
	if slot.DocID != nil {
		return false, nil
	}

	slot.DocID = &docID
	slot.DocURL = &docURL
	slot.UpdatedAt = time.Now()
	s.slots[key] = slot
	return true, nil
}

func copyEvent(event models.CallEvent) *models.CallEvent {
	out := event
	if event.EndAt != nil {
		end := *event.EndAt
		out.EndAt = &end
	}
	if event.PostEventEventID != nil {
		linked := *event.PostEventEventID
		out.PostEventEventID = &linked
	}
	if event.ParentEventID != nil {
		parent := *event.ParentEventID
		out.ParentEventID = &parent
	}
	out.Slots = nil
	return &out
}

func copySlot(slot models.ReminderSlot) *models.ReminderSlot {
	out := slot
	if slot.ReminderKey != nil {
		key := *slot.ReminderKey
		out.ReminderKey = &key
	}
	if slot.DocID != nil {
		id := *slot.DocID
		out.DocID = &id
	}
	if slot.DocURL != nil {
		url := *slot.DocURL
		out.DocURL = &url
	}
	return &out
}
