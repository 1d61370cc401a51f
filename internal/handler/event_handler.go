package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/service"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/response"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// List handles GET /events - newest first with ticket counts
func (h *EventHandler) List(c *gin.Context) {
	var filter dto.EventListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid query parameters"))
		return
	}

	events, total, err := h.eventService.ListEvents(c.Request.Context(), &filter)
	if err != nil {
		writeError(c, err, "Failed to list events")
		return
	}

	items := make([]*dto.EventResponse, len(events))
	for i, e := range events {
		items[i] = dto.EventResponseFrom(e.Event, e.TicketCount)
	}

	c.JSON(http.StatusOK, response.Paginated(items, page(filter.Offset, filter.Limit), filter.Limit, int64(total)))
}

// GetByID handles GET /events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.EventResponseFrom(event.Event, event.TicketCount)))
}

// Create handles POST /events
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, response.Success(dto.EventResponseFrom(event, 0)))
}

// Update handles PUT /events/:id
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "Failed to update event")
		return
	}

	full, err := h.eventService.GetEvent(c.Request.Context(), event.ID)
	if err != nil {
		writeError(c, err, "Failed to update event")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.EventResponseFrom(full.Event, full.TicketCount)))
}

// Delete handles DELETE /events/:id - refused while tickets remain
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.eventService.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete event")
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"message": "Event deleted successfully"}))
}
