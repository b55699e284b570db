package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bretthoffman/goteamgo/internal/docs"
	"github.com/bretthoffman/goteamgo/internal/models"
	"github.com/bretthoffman/goteamgo/internal/reminder"
	"github.com/bretthoffman/goteamgo/internal/services"
)

// EventsHandler handles calendar HTTP requests
type EventsHandler struct {
	calendar *services.CalendarService
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(calendar *services.CalendarService) *EventsHandler {
	return &EventsHandler{calendar: calendar}
}

// CreateEventRequest is the payload of an explicit call creation
type CreateEventRequest struct {
	Title    string     `json:"title" binding:"required"`
	CallType string     `json:"call_type" binding:"required"`
	StartAt  time.Time  `json:"start_at" binding:"required"`
	EndAt    *time.Time `json:"end_at"`
}

// UpdateEventRequest is a partial event edit
type UpdateEventRequest struct {
	Title            *string    `json:"title"`
	CallType         *string    `json:"call_type"`
	StartAt          *time.Time `json:"start_at"`
	EndAt            *time.Time `json:"end_at"`
	Confirmed        *bool      `json:"confirmed"`
	PostEventEnabled *bool      `json:"post_event_enabled"`
}

// UpdateSlotRequest is a partial slot edit: enablement, timing (one of
// preset / offset_minutes / timing), content.
type UpdateSlotRequest struct {
	Enabled       *bool                  `json:"enabled"`
	Preset        *models.ReminderKey    `json:"preset"`
	OffsetMinutes *int                   `json:"offset_minutes"`
	Timing        *reminder.TimingChoice `json:"timing"`
	Subject       *string                `json:"subject"`
	BodyHTML      *string                `json:"body_html"`
	BodyText      *string                `json:"body_text"`
}

// ListEvents handles GET /api/v1/events?start=&end=
func (h *EventsHandler) ListEvents(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
		return
	}

	events, err := h.calendar.ListEvents(c.Request.Context(), start, end)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// CreateEvent handles POST /api/v1/events
func (h *EventsHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detail, err := h.calendar.CreateEvent(c.Request.Context(), services.CreateEventInput{
		Title:    req.Title,
		CallType: req.CallType,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// GetEvent handles GET /api/v1/events/:id
func (h *EventsHandler) GetEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	detail, err := h.calendar.GetEvent(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// UpdateEvent handles PATCH /api/v1/events/:id
func (h *EventsHandler) UpdateEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.calendar.UpdateEvent(c.Request.Context(), id, services.UpdateEventInput{
		Title:            req.Title,
		CallType:         req.CallType,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		Confirmed:        req.Confirmed,
		PostEventEnabled: req.PostEventEnabled,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// DeleteEvent handles DELETE /api/v1/events/:id
func (h *EventsHandler) DeleteEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	if err := h.calendar.DeleteEvent(c.Request.Context(), id); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateSlot handles PATCH /api/v1/events/:id/slots/:slot
func (h *EventsHandler) UpdateSlot(c *gin.Context) {
	id, slotIndex, ok := h.slotKey(c)
	if !ok {
		return
	}

	var req UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var slot *models.ReminderSlot
	var err error

	if req.Preset != nil || req.OffsetMinutes != nil || req.Timing != nil {
		slot, err = h.calendar.SetSlotTiming(ctx, id, slotIndex, services.SlotTimingInput{
			Preset:        req.Preset,
			CustomMinutes: req.OffsetMinutes,
			Choice:        req.Timing,
		})
		if err != nil {
			h.renderError(c, err)
			return
		}
	}

	if req.Enabled != nil {
		slot, err = h.calendar.SetSlotEnabled(ctx, id, slotIndex, *req.Enabled)
		if err != nil {
			h.renderError(c, err)
			return
		}
	}

	if req.Subject != nil || req.BodyHTML != nil || req.BodyText != nil {
		slot, err = h.calendar.UpdateSlotContent(ctx, id, slotIndex, services.SlotContentInput{
			Subject:  req.Subject,
			BodyHTML: req.BodyHTML,
			BodyText: req.BodyText,
		})
		if err != nil {
			h.renderError(c, err)
			return
		}
	}

	if slot == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no slot fields supplied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slot": slot})
}

// ProvisionSlotDocument handles POST /api/v1/events/:id/slots/:slot/doc
func (h *EventsHandler) ProvisionSlotDocument(c *gin.Context) {
	id, slotIndex, ok := h.slotKey(c)
	if !ok {
		return
	}

	slot, err := h.calendar.ProvisionSlotDocument(c.Request.Context(), id, slotIndex)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "slot": slot})
}

// EnsurePostEvent handles POST /api/v1/events/:id/ensure-post-event
func (h *EventsHandler) EnsurePostEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	derived, err := h.calendar.EnsurePostEvent(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "post_event_event_id": derived.ID, "event": derived})
}

// RegisterRoutes registers the handler's routes
func (h *EventsHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")

	events := api.Group("/events")
	events.GET("", h.ListEvents)
	events.POST("", h.CreateEvent)
	events.GET("/:id", h.GetEvent)
	events.PATCH("/:id", h.UpdateEvent)
	events.DELETE("/:id", h.DeleteEvent)
	events.PATCH("/:id/slots/:slot", h.UpdateSlot)
	events.POST("/:id/slots/:slot/doc", h.ProvisionSlotDocument)
	events.POST("/:id/ensure-post-event", h.EnsurePostEvent)
}

func (h *EventsHandler) eventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *EventsHandler) slotKey(c *gin.Context) (uuid.UUID, int, bool) {
	id, ok := h.eventID(c)
	if !ok {
		return uuid.Nil, 0, false
	}

	slotIndex, err := strconv.Atoi(c.Param("slot"))
	if err != nil || slotIndex < 1 || slotIndex > 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot index must be 1, 2 or 3"})
		return uuid.Nil, 0, false
	}

	return id, slotIndex, true
}

func (h *EventsHandler) renderError(c *gin.Context, err error) {
	var providerErr *docs.ProviderError

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSlotLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNotCallEvent),
		errors.Is(err, services.ErrNotYetEligible),
		errors.Is(err, services.ErrNotEligible):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &providerErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   err.Error(),
			"details": gin.H{"status": providerErr.StatusCode, "body": providerErr.Diagnostic},
		})
	default:
		log.Error().Err(err).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
