package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bretthoffman/goteamgo/internal/cache"
	"github.com/bretthoffman/goteamgo/internal/docs"
	"github.com/bretthoffman/goteamgo/internal/messaging"
	"github.com/bretthoffman/goteamgo/internal/metrics"
	"github.com/bretthoffman/goteamgo/internal/models"
	"github.com/bretthoffman/goteamgo/internal/reminder"
	"github.com/bretthoffman/goteamgo/internal/search"
	"github.com/bretthoffman/goteamgo/internal/store"
	"github.com/bretthoffman/goteamgo/internal/tracing"
)

const eventDetailTTL = 5 * time.Minute

// CalendarService is the reminder scheduling and document-linking engine
// behind the call calendar.
type CalendarService struct {
	store       store.Store
	cache       *cache.RedisCache
	search      *search.ElasticClient
	publisher   messaging.Publisher
	provisioner docs.Provisioner
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
	loc         *time.Location
	now         func() time.Time
}

// NewCalendarService creates the engine. loc is the fixed reference zone all
// civil reminder presets resolve against.
func NewCalendarService(
	st store.Store,
	redisCache *cache.RedisCache,
	elasticClient *search.ElasticClient,
	publisher messaging.Publisher,
	provisioner docs.Provisioner,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	loc *time.Location,
) *CalendarService {
	return &CalendarService{
		store:       st,
		cache:       redisCache,
		search:      elasticClient,
		publisher:   publisher,
		provisioner: provisioner,
		metrics:     metricsCollector,
		tracer:      tracer,
		loc:         loc,
		now:         time.Now,
	}
}

// CreateEventInput carries the fields of an explicit call creation
type CreateEventInput struct {
	Title    string
	CallType string
	StartAt  time.Time
	EndAt    *time.Time
}

// SlotView is a reminder slot decorated with its effective preset: the
// stored reminder key, or the preset inferred from a bare offset.
type SlotView struct {
	models.ReminderSlot
	EffectiveKey *models.ReminderKey `json:"effective_key"`
	State        models.SlotState    `json:"state"`
}

// EventDetail is an event with its ordered slots
type EventDetail struct {
	Event models.CallEvent `json:"event"`
	Slots []SlotView       `json:"slots"`
}

// CreateEvent creates a call event and its default reminder slot batch
func (s *CalendarService) CreateEvent(ctx context.Context, input CreateEventInput) (*EventDetail, error) {
	txn := s.tracer.StartTransaction("create-event")
	defer s.tracer.EndTransaction(txn)

	if input.Title == "" || input.CallType == "" || input.StartAt.IsZero() {
		return nil, errors.Wrap(ErrValidation, "title, call_type and start_at are required")
	}
	if input.EndAt != nil && !input.EndAt.After(input.StartAt) {
		return nil, errors.Wrap(ErrValidation, "end_at must be after start_at")
	}

	event := &models.CallEvent{
		ID:       uuid.New(),
		Title:    input.Title,
		CallType: input.CallType,
		StartAt:  input.StartAt,
		EndAt:    input.EndAt,
		Kind:     models.KindCall,
	}

	if err := s.store.InsertEvent(ctx, event); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create event")
	}

	slots := models.DefaultSlots(event)
	if err := s.store.InsertSlots(ctx, slots); err != nil {
		s.tracer.RecordError(txn, err)
		s.rollbackEvent(ctx, event.ID)
		return nil, errors.Wrap(err, "failed to create default slots")
	}

	s.metrics.IncrementCounter("events_created")
	s.indexEvent(ctx, event)
	s.publish(ctx, messaging.Notification{Type: messaging.TypeEventCreated, EventID: event.ID})

	log.Info().
		Str("event_id", event.ID.String()).
		Str("call_type", event.CallType).
		Time("start_at", event.StartAt).
		Msg("Call event created")

	return &EventDetail{Event: *event, Slots: s.slotViews(event, slots)}, nil
}

// GetEvent returns an event with its slots, served from cache when possible
func (s *CalendarService) GetEvent(ctx context.Context, id uuid.UUID) (*EventDetail, error) {
	if s.cache.Enabled() {
		var detail EventDetail
		if err := s.cache.Get(ctx, cache.EventDetailKey(id), &detail); err == nil {
			return &detail, nil
		}
	}

	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to load event")
	}

	slots, err := s.store.ListSlots(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load slots")
	}

	detail := &EventDetail{Event: *event, Slots: s.slotViews(event, slots)}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cache.EventDetailKey(id), detail, eventDetailTTL); err != nil {
			log.Warn().Err(err).Str("event_id", id.String()).Msg("Failed to cache event detail")
		}
	}

	return detail, nil
}

// ListEvents is the calendar read model: call events starting within the
// range, plus each linked post-event reachable by identity even when its own
// start falls outside the range.
func (s *CalendarService) ListEvents(ctx context.Context, rangeStart, rangeEnd time.Time) ([]models.CallEvent, error) {
	if rangeStart.IsZero() || rangeEnd.IsZero() || rangeEnd.Before(rangeStart) {
		return nil, errors.Wrap(ErrValidation, "invalid range")
	}

	events, err := s.store.ListEventsInRange(ctx, rangeStart, rangeEnd, models.KindCall)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}

	seen := make(map[uuid.UUID]struct{}, len(events))
	for _, event := range events {
		seen[event.ID] = struct{}{}
	}

	result := events
	for _, event := range events {
		if !event.PostEventEnabled || event.PostEventEventID == nil {
			continue
		}
		if _, ok := seen[*event.PostEventEventID]; ok {
			continue
		}

		derived, err := s.store.GetEvent(ctx, *event.PostEventEventID)
		if errors.Is(err, store.ErrNotFound) {
			// Read path stays usable; the worker sweep reports this.
			s.metrics.IncrementCounter("consistency_violations")
			log.Error().
				Str("event_id", event.ID.String()).
				Str("post_event_event_id", event.PostEventEventID.String()).
				Msg("Linked post-event does not exist")
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to load linked post-event")
		}

		seen[derived.ID] = struct{}{}
		result = append(result, *derived)
	}

	return result, nil
}

// UpdateEventInput is a partial event edit; nil fields are left unchanged
type UpdateEventInput struct {
	Title            *string
	CallType         *string
	StartAt          *time.Time
	EndAt            *time.Time
	Confirmed        *bool
	PostEventEnabled *bool
}

// UpdateEvent applies a partial edit to an event
func (s *CalendarService) UpdateEvent(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*models.CallEvent, error) {
	event, err := s.store.UpdateEvent(ctx, id, store.EventPatch{
		Title:            input.Title,
		CallType:         input.CallType,
		StartAt:          input.StartAt,
		EndAt:            input.EndAt,
		Confirmed:        input.Confirmed,
		PostEventEnabled: input.PostEventEnabled,
	})
	if err != nil {
		return nil, s.mapStoreError(err, "failed to update event")
	}

	s.invalidate(ctx, id)
	s.indexEvent(ctx, event)
	return event, nil
}

// DeleteEvent deletes an event; its slots go with it
func (s *CalendarService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return s.mapStoreError(err, "failed to delete event")
	}

	s.invalidate(ctx, id)
	if err := s.search.DeleteEvent(ctx, id.String()); err != nil {
		log.Warn().Err(err).Str("event_id", id.String()).Msg("Failed to remove event from search index")
	}
	s.publish(ctx, messaging.Notification{Type: messaging.TypeEventDeleted, EventID: id})
	return nil
}

// SlotTimingInput selects a slot's timing: a named preset, a raw custom
// offset, or the manual editor's free-form choice. Exactly one must be set.
type SlotTimingInput struct {
	Preset        *models.ReminderKey
	CustomMinutes *int
	Choice        *reminder.TimingChoice
}

// SetSlotTiming recomputes and persists a slot's offset. Rejected once the
// slot is locked.
func (s *CalendarService) SetSlotTiming(ctx context.Context, eventID uuid.UUID, slotIndex int, input SlotTimingInput) (*models.ReminderSlot, error) {
	event, slot, err := s.loadEventSlot(ctx, eventID, slotIndex)
	if err != nil {
		return nil, err
	}
	if slot.Locked() {
		return nil, errors.Wrapf(ErrSlotLocked, "slot %d of event %s", slotIndex, eventID)
	}

	patch := store.SlotPatch{}
	switch {
	case input.Preset != nil:
		offset, err := reminder.ComputeOffsetMinutes(*input.Preset, event.StartAt, s.loc)
		if err != nil {
			return nil, errors.Wrap(ErrValidation, err.Error())
		}
		patch.OffsetMinutes = &offset
		patch.ReminderKey = input.Preset
	case input.CustomMinutes != nil:
		patch.OffsetMinutes = input.CustomMinutes
		patch.ClearReminderKey = true
	case input.Choice != nil:
		offset, err := reminder.ComputeOffsetFromUI(*input.Choice, event.StartAt, s.loc)
		if err != nil {
			return nil, errors.Wrap(ErrValidation, err.Error())
		}
		patch.OffsetMinutes = &offset
		patch.ClearReminderKey = true
	default:
		return nil, errors.Wrap(ErrValidation, "no timing choice supplied")
	}

	updated, err := s.store.UpdateSlot(ctx, eventID, slotIndex, patch)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to update slot timing")
	}

	s.invalidate(ctx, eventID)
	return updated, nil
}

// SetSlotEnabled toggles a slot. Rejected once the slot is locked.
func (s *CalendarService) SetSlotEnabled(ctx context.Context, eventID uuid.UUID, slotIndex int, enabled bool) (*models.ReminderSlot, error) {
	slot, err := s.store.GetSlot(ctx, eventID, slotIndex)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to load slot")
	}
	if slot.Locked() {
		return nil, errors.Wrapf(ErrSlotLocked, "slot %d of event %s", slotIndex, eventID)
	}

	updated, err := s.store.UpdateSlot(ctx, eventID, slotIndex, store.SlotPatch{Enabled: &enabled})
	if err != nil {
		return nil, s.mapStoreError(err, "failed to update slot")
	}

	s.invalidate(ctx, eventID)
	return updated, nil
}

// SlotContentInput is a partial content edit; nil fields are left unchanged
type SlotContentInput struct {
	Subject  *string
	BodyHTML *string
	BodyText *string
}

// UpdateSlotContent edits a slot's outbound content. Content stays editable
// after the slot locks; only timing and enablement freeze.
func (s *CalendarService) UpdateSlotContent(ctx context.Context, eventID uuid.UUID, slotIndex int, input SlotContentInput) (*models.ReminderSlot, error) {
	updated, err := s.store.UpdateSlot(ctx, eventID, slotIndex, store.SlotPatch{
		Subject:  input.Subject,
		BodyHTML: input.BodyHTML,
		BodyText: input.BodyText,
	})
	if err != nil {
		return nil, s.mapStoreError(err, "failed to update slot content")
	}

	s.invalidate(ctx, eventID)
	return updated, nil
}

// ProvisionSlotDocument creates the external document for a slot and locks
// it. Calling it on a locked slot returns the stored reference without
// invoking the external service. Two concurrent calls race on a conditional
// write; the loser adopts the winner's document.
func (s *CalendarService) ProvisionSlotDocument(ctx context.Context, eventID uuid.UUID, slotIndex int) (*models.ReminderSlot, error) {
	txn := s.tracer.StartTransaction("provision-slot-document")
	defer s.tracer.EndTransaction(txn)

	event, slot, err := s.loadEventSlot(ctx, eventID, slotIndex)
	if err != nil {
		return nil, err
	}

	if slot.Locked() {
		s.metrics.IncrementCounter("provision_noop")
		return slot, nil
	}

	if s.provisioner == nil {
		return nil, errors.Wrap(ErrValidation, "document provisioning is not configured")
	}

	req, err := s.buildDocRequest(ctx, event, slot)
	if err != nil {
		return nil, err
	}

	span := s.tracer.StartSpan("doc-create-external", txn)
	document, err := s.provisioner.CreateDocument(ctx, *req)
	span.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("provision_document")
		return nil, errors.Wrap(err, "document provisioning failed")
	}

	claimed, err := s.store.ClaimSlotDocument(ctx, eventID, slotIndex, document.ID, document.URL)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to store document reference")
	}
	if !claimed {
		// A concurrent call won the conditional write; its reference stands.
		log.Warn().
			Str("event_id", eventID.String()).
			Int("slot_index", slotIndex).
			Msg("Slot document already claimed by a concurrent provision")
	}

	updated, err := s.store.GetSlot(ctx, eventID, slotIndex)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to reload slot")
	}

	s.metrics.RecordSuccess("provision_document")
	s.invalidate(ctx, eventID)
	s.publish(ctx, messaging.Notification{Type: messaging.TypeSlotLocked, EventID: eventID, SlotIndex: slotIndex})

	log.Info().
		Str("event_id", eventID.String()).
		Int("slot_index", slotIndex).
		Str("doc_id", document.ID).
		Msg("Slot document provisioned")

	return updated, nil
}

// EnsurePostEvent idempotently creates the copy-review event linked to a
// past call. A partial failure rolls the derived event back before the error
// surfaces; the original never ends up pointing at a nonexistent row.
func (s *CalendarService) EnsurePostEvent(ctx context.Context, eventID uuid.UUID) (*models.CallEvent, error) {
	txn := s.tracer.StartTransaction("ensure-post-event")
	defer s.tracer.EndTransaction(txn)

	original, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to load event")
	}

	if original.Kind != models.KindCall {
		return nil, errors.Wrapf(ErrNotCallEvent, "event %s has kind %s", eventID, original.Kind)
	}

	if original.PostEventEventID != nil {
		existing, err := s.store.GetEvent(ctx, *original.PostEventEventID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrapf(ErrConsistency,
				"event %s links post-event %s which does not exist", eventID, original.PostEventEventID)
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to load existing post-event")
		}
		return existing, nil
	}

	if original.StartAt.After(s.now()) {
		return nil, errors.Wrapf(ErrNotYetEligible, "event %s starts at %s", eventID, original.StartAt.Format(time.RFC3339))
	}
	if !isEligibleForPostEvent(original.Title) {
		return nil, errors.Wrapf(ErrNotEligible, "title %q", original.Title)
	}

	postStart, postEnd := derivedTiming(original)
	derived := &models.CallEvent{
		ID:            uuid.New(),
		Title:         derivedTitle(original.Title),
		CallType:      original.CallType,
		StartAt:       postStart,
		EndAt:         &postEnd,
		Kind:          models.KindDescriptionCopy,
		ParentEventID: &original.ID,
	}

	if err := s.store.InsertEvent(ctx, derived); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to insert post-event")
	}

	if err := s.store.InsertSlots(ctx, models.DefaultSlots(derived)); err != nil {
		s.tracer.RecordError(txn, err)
		s.rollbackEvent(ctx, derived.ID)
		return nil, errors.Wrap(err, "failed to insert post-event slot")
	}

	enabled := true
	if _, err := s.store.UpdateEvent(ctx, original.ID, store.EventPatch{
		PostEventEventID: &derived.ID,
		PostEventEnabled: &enabled,
	}); err != nil {
		s.tracer.RecordError(txn, err)
		s.rollbackEvent(ctx, derived.ID)
		return nil, errors.Wrap(err, "failed to link post-event to original")
	}

	s.metrics.IncrementCounter("post_events_derived")
	s.invalidate(ctx, original.ID)
	s.indexEvent(ctx, derived)
	s.publish(ctx, messaging.Notification{Type: messaging.TypePostEventDerived, EventID: original.ID})

	log.Info().
		Str("event_id", original.ID.String()).
		Str("post_event_event_id", derived.ID.String()).
		Msg("Post-event derived")

	return derived, nil
}

// ConsistencySweep verifies the mutual back-references between calls and
// their derived post-events, logging every violation it finds. Run
// periodically by the worker as a backstop for the write-time checks.
func (s *CalendarService) ConsistencySweep(ctx context.Context) error {
	events, err := s.store.ListEventsWithPostEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list linked events")
	}

	violations := 0
	for _, event := range events {
		derived, err := s.store.GetEvent(ctx, *event.PostEventEventID)
		if errors.Is(err, store.ErrNotFound) {
			violations++
			log.Error().
				Str("event_id", event.ID.String()).
				Str("post_event_event_id", event.PostEventEventID.String()).
				Msg("Linked post-event does not exist")
			continue
		}
		if err != nil {
			return errors.Wrap(err, "failed to load linked post-event")
		}

		if derived.Kind != models.KindDescriptionCopy ||
			derived.ParentEventID == nil || *derived.ParentEventID != event.ID {
			violations++
			log.Error().
				Str("event_id", event.ID.String()).
				Str("post_event_event_id", derived.ID.String()).
				Msg("Post-event back-reference does not match its parent")
		}
	}

	if violations > 0 {
		s.metrics.IncrementCounter("consistency_violations")
	}
	s.metrics.SetHealth("event_links", violations == 0)

	log.Info().
		Int("linked_events", len(events)).
		Int("violations", violations).
		Msg("Consistency sweep finished")

	return nil
}

func (s *CalendarService) buildDocRequest(ctx context.Context, event *models.CallEvent, slot *models.ReminderSlot) (*docs.Request, error) {
	req := &docs.Request{
		EventID:   event.ID,
		SlotIndex: slot.SlotIndex,
		CallType:  scriptCallType(event.CallType),
		StartAt:   event.StartAt,
		Title:     event.Title,
	}

	if event.Kind == models.KindDescriptionCopy {
		req.ReminderKey = string(models.KindDescriptionCopy)
		// The copy-review doc is named after the originating call's date.
		if event.ParentEventID != nil {
			parent, err := s.store.GetEvent(ctx, *event.ParentEventID)
			if err == nil {
				req.StartAt = parent.StartAt
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, errors.Wrap(err, "failed to load parent event")
			}
		}
		return req, nil
	}

	switch {
	case slot.ReminderKey != nil:
		req.ReminderKey = string(*slot.ReminderKey)
	default:
		if key, ok := reminder.InferPreset(slot.OffsetMinutes, event.StartAt, s.loc); ok {
			req.ReminderKey = string(key)
		} else {
			req.ReminderKey = "custom"
		}
	}
	return req, nil
}

func (s *CalendarService) loadEventSlot(ctx context.Context, eventID uuid.UUID, slotIndex int) (*models.CallEvent, *models.ReminderSlot, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, s.mapStoreError(err, "failed to load event")
	}

	slot, err := s.store.GetSlot(ctx, eventID, slotIndex)
	if err != nil {
		return nil, nil, s.mapStoreError(err, "failed to load slot")
	}

	return event, slot, nil
}

func (s *CalendarService) slotViews(event *models.CallEvent, slots []models.ReminderSlot) []SlotView {
	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		view := SlotView{ReminderSlot: slot, State: slot.State()}
		if slot.ReminderKey != nil {
			key := *slot.ReminderKey
			view.EffectiveKey = &key
		} else if key, ok := reminder.InferPreset(slot.OffsetMinutes, event.StartAt, s.loc); ok {
			view.EffectiveKey = &key
		}
		views = append(views, view)
	}
	return views
}

// rollbackEvent is the compensating delete for a partially created event.
// Best-effort: a failed rollback is logged and the original error still
// surfaces to the caller.
func (s *CalendarService) rollbackEvent(ctx context.Context, id uuid.UUID) {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		log.Error().
			Err(err).
			Str("event_id", id.String()).
			Msg("Compensating delete failed; event row may be orphaned")
	}
}

func (s *CalendarService) invalidate(ctx context.Context, eventID uuid.UUID) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Delete(ctx, cache.EventDetailKey(eventID)); err != nil {
		log.Warn().Err(err).Str("event_id", eventID.String()).Msg("Failed to invalidate event cache")
	}
}

func (s *CalendarService) indexEvent(ctx context.Context, event *models.CallEvent) {
	if err := s.search.IndexEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("Failed to index event")
	}
}

func (s *CalendarService) publish(ctx context.Context, notification messaging.Notification) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, notification); err != nil {
		log.Warn().Err(err).Str("type", notification.Type).Msg("Failed to publish notification")
	}
}

func (s *CalendarService) mapStoreError(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return errors.Wrap(ErrNotFound, msg)
	}
	return errors.Wrap(err, msg)
}
