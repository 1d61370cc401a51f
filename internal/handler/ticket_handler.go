package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/service"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/response"
)

// TicketHandler handles ticket CRUD, lookup and manual redemption
type TicketHandler struct {
	ticketService     service.TicketService
	redemptionService service.RedemptionService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketService service.TicketService, redemptionService service.RedemptionService) *TicketHandler {
	return &TicketHandler{
		ticketService:     ticketService,
		redemptionService: redemptionService,
	}
}

// List handles GET /tickets
func (h *TicketHandler) List(c *gin.Context) {
	var filter dto.TicketListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid query parameters"))
		return
	}

	tickets, total, err := h.ticketService.ListTickets(c.Request.Context(), &filter)
	if err != nil {
		writeError(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, response.Paginated(dto.TicketResponsesFrom(tickets), page(filter.Offset, filter.Limit), filter.Limit, int64(total)))
}

// GetByID handles GET /tickets/:id
func (h *TicketHandler) GetByID(c *gin.Context) {
	ticket, err := h.ticketService.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to get ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.TicketResponseFrom(ticket)))
}

// Create handles POST /tickets
func (h *TicketHandler) Create(c *gin.Context) {
	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	ticket, err := h.ticketService.CreateTicket(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "Failed to create ticket")
		return
	}

	c.JSON(http.StatusCreated, response.Success(dto.TicketResponseFrom(ticket)))
}

// Update handles PUT /tickets/:id, including the used toggle
func (h *TicketHandler) Update(c *gin.Context) {
	var req dto.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	ticket, err := h.ticketService.UpdateTicket(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "Failed to update ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.TicketResponseFrom(ticket)))
}

// Delete handles DELETE /tickets/:id
func (h *TicketHandler) Delete(c *gin.Context) {
	if err := h.ticketService.DeleteTicket(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"message": "Ticket deleted successfully"}))
}

// Check handles GET /tickets/check/:code - read-only lookup
func (h *TicketHandler) Check(c *gin.Context) {
	ticket, err := h.redemptionService.ManualSearch(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err, "Failed to look up ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.TicketResponseFrom(ticket)))
}

// Redeem handles POST /tickets/:id/redeem
func (h *TicketHandler) Redeem(c *gin.Context) {
	result, err := h.redemptionService.ConfirmRedeem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to redeem ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.RedemptionResponseFrom(result)))
}

// Unredeem handles POST /tickets/:id/unredeem
func (h *TicketHandler) Unredeem(c *gin.Context) {
	result, err := h.redemptionService.MarkUnused(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to revert ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.RedemptionResponseFrom(result)))
}
