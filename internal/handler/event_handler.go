package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/service"
	"github.com/noah-isme/coursework-ledger-api/pkg/response"
)

// EventHandler exposes the ledger event feed.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler constructs handler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// List godoc
// @Summary List ledger events, newest first
// @Tags Events
// @Produce json
// @Param kind query string false "Filter by event kind"
// @Param assignmentId query int false "Filter by assignment"
// @Param student query string false "Filter by student address"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	filter := models.EventFilter{
		Kind:    models.EventKind(c.Query("kind")),
		Student: c.Query("student"),
	}
	if raw := c.Query("assignmentId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.AssignmentID = &id
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	events, pagination, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}
