package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bretthoffman/goteamgo/internal/models"
)

func seedEvent(t *testing.T, s *MemoryStore, start time.Time, kind models.EventKind) *models.CallEvent {
	t.Helper()
	event := &models.CallEvent{
		ID:       uuid.New(),
		Title:    "Ask Us Anything Call",
		CallType: models.CallTypeAskUsAnything,
		StartAt:  start,
		Kind:     kind,
	}
	require.NoError(t, s.InsertEvent(context.Background(), event))
	require.NoError(t, s.InsertSlots(context.Background(), models.DefaultSlots(event)))
	return event
}

func TestMemoryStoreClaimSlotDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	event := seedEvent(t, s, time.Now(), models.KindCall)

	claimed, err := s.ClaimSlotDocument(ctx, event.ID, 1, "doc-1", "https://docs/doc-1")
	require.NoError(t, err)
	require.True(t, claimed)

	// Second claim loses; the first reference stands
	claimed, err = s.ClaimSlotDocument(ctx, event.ID, 1, "doc-2", "https://docs/doc-2")
	require.NoError(t, err)
	require.False(t, claimed)

	slot, err := s.GetSlot(ctx, event.ID, 1)
	require.NoError(t, err)
	require.True(t, slot.Locked())
	require.Equal(t, "doc-1", *slot.DocID)
	require.Equal(t, "https://docs/doc-1", *slot.DocURL)

	_, err = s.ClaimSlotDocument(ctx, event.ID, 9, "doc-3", "https://docs/doc-3")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateSlotPartialPatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	event := seedEvent(t, s, time.Now(), models.KindCall)

	subject := "Reminder: call tomorrow"
	_, err := s.UpdateSlot(ctx, event.ID, 1, SlotPatch{Subject: &subject})
	require.NoError(t, err)

	offset := -1740
	key := models.ReminderDayBefore
	slot, err := s.UpdateSlot(ctx, event.ID, 1, SlotPatch{OffsetMinutes: &offset, ReminderKey: &key})
	require.NoError(t, err)
	require.Equal(t, -1740, slot.OffsetMinutes)
	require.Equal(t, models.ReminderDayBefore, *slot.ReminderKey)
	// The earlier subject edit survives unrelated patches
	require.Equal(t, subject, slot.Subject)

	slot, err = s.UpdateSlot(ctx, event.ID, 1, SlotPatch{ClearReminderKey: true})
	require.NoError(t, err)
	require.Nil(t, slot.ReminderKey)
	require.Equal(t, -1740, slot.OffsetMinutes)
}

func TestMemoryStoreUpdateEventNotFound(t *testing.T) {
	s := NewMemoryStore()

	title := "renamed"
	_, err := s.UpdateEvent(context.Background(), uuid.New(), EventPatch{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteEventRemovesSlots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	event := seedEvent(t, s, time.Now(), models.KindCall)

	require.NoError(t, s.DeleteEvent(ctx, event.ID))

	_, err := s.GetEvent(ctx, event.ID)
	require.ErrorIs(t, err, ErrNotFound)

	slots, err := s.ListSlots(ctx, event.ID)
	require.NoError(t, err)
	require.Empty(t, slots)

	require.ErrorIs(t, s.DeleteEvent(ctx, event.ID), ErrNotFound)
}

func TestMemoryStoreListEventsInRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2025, time.November, 1, 12, 0, 0, 0, time.UTC)
	late := seedEvent(t, s, base.AddDate(0, 0, 10), models.KindCall)
	early := seedEvent(t, s, base, models.KindCall)
	seedEvent(t, s, base.AddDate(0, 1, 0), models.KindCall)           // outside range
	seedEvent(t, s, base.AddDate(0, 0, 5), models.KindDescriptionCopy) // wrong kind

	events, err := s.ListEventsInRange(ctx, base, base.AddDate(0, 0, 14), models.KindCall)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Ordered by start
	require.Equal(t, early.ID, events[0].ID)
	require.Equal(t, late.ID, events[1].ID)
}

func TestMemoryStoreListEventsWithPostEvent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	linked := seedEvent(t, s, time.Now(), models.KindCall)
	seedEvent(t, s, time.Now(), models.KindCall)

	derived := uuid.New()
	_, err := s.UpdateEvent(ctx, linked.ID, EventPatch{PostEventEventID: &derived})
	require.NoError(t, err)

	events, err := s.ListEventsWithPostEvent(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, linked.ID, events[0].ID)
	require.Equal(t, derived, *events[0].PostEventEventID)
}
