package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bretthoffman/goteamgo/internal/models"
)

// GormStore is the postgres-backed Store. Reads go to the read-only
// connection, writes to the primary.
type GormStore struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewGormStore creates a gorm-backed store
func NewGormStore(db *gorm.DB, readOnlyDB *gorm.DB) *GormStore {
	if readOnlyDB == nil {
		readOnlyDB = db
	}
	return &GormStore{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetEvent gets an event by id
func (s *GormStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.CallEvent, error) {
	var event models.CallEvent
	err := s.readOnlyDB.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get event")
	}
	return &event, nil
}

// ListEventsInRange lists events of the given kind whose start instant falls
// within [start, end], ordered by start
func (s *GormStore) ListEventsInRange(ctx context.Context, start, end time.Time, kind models.EventKind) ([]models.CallEvent, error) {
	var events []models.CallEvent
	err := s.readOnlyDB.WithContext(ctx).
		Where("kind = ? AND start_at >= ? AND start_at <= ?", kind, start, end).
		Order("start_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events in range")
	}
	return events, nil
}

// ListEventsWithPostEvent lists call events that carry a post-event link
func (s *GormStore) ListEventsWithPostEvent(ctx context.Context) ([]models.CallEvent, error) {
	var events []models.CallEvent
	err := s.readOnlyDB.WithContext(ctx).
		Where("kind = ? AND post_event_event_id IS NOT NULL", models.KindCall).
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list linked events")
	}
	return events, nil
}

// InsertEvent creates a new event
func (s *GormStore) InsertEvent(ctx context.Context, event *models.CallEvent) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(event).Error, "failed to insert event")
}

// UpdateEvent applies a partial update and returns the updated row
func (s *GormStore) UpdateEvent(ctx context.Context, id uuid.UUID, patch EventPatch) (*models.CallEvent, error) {
	cols := patch.columns()
	if len(cols) > 0 {
		result := s.db.WithContext(ctx).
			Model(&models.CallEvent{}).
			Where("id = ?", id).
			Updates(cols)
		if result.Error != nil {
			return nil, errors.Wrap(result.Error, "failed to update event")
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.getEventPrimary(ctx, id)
}

// DeleteEvent deletes an event and its slots
func (s *GormStore) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return errors.Wrap(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.ReminderSlot{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.CallEvent{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}), "failed to delete event")
}

// GetSlot gets a slot by (event id, slot index)
func (s *GormStore) GetSlot(ctx context.Context, eventID uuid.UUID, slotIndex int) (*models.ReminderSlot, error) {
	var slot models.ReminderSlot
	err := s.readOnlyDB.WithContext(ctx).
		Where("event_id = ? AND slot_index = ?", eventID, slotIndex).
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get slot")
	}
	return &slot, nil
}

// ListSlots lists an event's slots ordered by index
func (s *GormStore) ListSlots(ctx context.Context, eventID uuid.UUID) ([]models.ReminderSlot, error) {
	var slots []models.ReminderSlot
	err := s.readOnlyDB.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("slot_index ASC").
		Find(&slots).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list slots")
	}
	return slots, nil
}

// InsertSlots creates a batch of slots
func (s *GormStore) InsertSlots(ctx context.Context, slots []models.ReminderSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(&slots).Error, "failed to insert slots")
}

// UpdateSlot applies a partial update and returns the updated row
func (s *GormStore) UpdateSlot(ctx context.Context, eventID uuid.UUID, slotIndex int, patch SlotPatch) (*models.ReminderSlot, error) {
	cols := patch.columns()
	if len(cols) > 0 {
		result := s.db.WithContext(ctx).
			Model(&models.ReminderSlot{}).
			Where("event_id = ? AND slot_index = ?", eventID, slotIndex).
			Updates(cols)
		if result.Error != nil {
			return nil, errors.Wrap(result.Error, "failed to update slot")
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.getSlotPrimary(ctx, eventID, slotIndex)
}

// ClaimSlotDocument performs the conditional write that locks a slot: the
// document reference is stored only while doc_id is still null.
func (s *GormStore) ClaimSlotDocument(ctx context.Context, eventID uuid.UUID, slotIndex int, docID, docURL string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.ReminderSlot{}).
		Where("event_id = ? AND slot_index = ? AND doc_id IS NULL", eventID, slotIndex).
		Updates(map[string]interface{}{
			"doc_id":  docID,
			"doc_url": docURL,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to claim slot document")
	}
	return result.RowsAffected > 0, nil
}

// Re-reads after a write go to the primary to avoid replica lag.
func (s *GormStore) getEventPrimary(ctx context.Context, id uuid.UUID) (*models.CallEvent, error) {
	var event models.CallEvent
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get event")
	}
	return &event, nil
}

func (s *GormStore) getSlotPrimary(ctx context.Context, eventID uuid.UUID, slotIndex int) (*models.ReminderSlot, error) {
	var slot models.ReminderSlot
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND slot_index = ?", eventID, slotIndex).
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get slot")
	}
	return &slot, nil
}
