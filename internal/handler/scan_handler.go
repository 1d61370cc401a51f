package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/service"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/response"
)

// ScanHandler handles scanner input and the activity feed
type ScanHandler struct {
	redemptionService service.RedemptionService
	activityService   service.ActivityService
}

// NewScanHandler creates a new ScanHandler
func NewScanHandler(redemptionService service.RedemptionService, activityService service.ActivityService) *ScanHandler {
	return &ScanHandler{
		redemptionService: redemptionService,
		activityService:   activityService,
	}
}

// Scan handles POST /scans - redeems the scanned code if unused.
// A repeat scan is a 200 with already_used set.
func (h *ScanHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}
	if valid, msg := req.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.ValidationError(msg))
		return
	}

	result, err := h.redemptionService.Scan(c.Request.Context(), req.Payload)
	if err != nil {
		writeError(c, err, "Failed to process scan")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.RedemptionResponseFrom(result)))
}

// Activity handles GET /scans/activity
func (h *ScanHandler) Activity(c *gin.Context) {
	var filter dto.ActivityFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid query parameters"))
		return
	}
	filter.SetDefaults()

	entries, err := h.activityService.Recent(c.Request.Context(), filter.Limit)
	if err != nil {
		writeError(c, err, "Failed to load activity")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.ActivityResponsesFrom(entries)))
}

// Stats handles GET /scans/stats?event_id=
func (h *ScanHandler) Stats(c *gin.Context) {
	var eventID *string
	id := strings.TrimSpace(c.Query("event_id"))
	if id == "" {
		id = strings.TrimSpace(c.Query("eventId"))
	}
	if id != "" {
		eventID = &id
	}

	stats, err := h.activityService.Stats(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err, "Failed to load stats")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.StatsResponseFrom(stats)))
}
