package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/service"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/response"
)

// MaxImportBytes caps a CSV upload
const MaxImportBytes = 10 << 20

// BulkHandler handles bulk issuance and CSV import
type BulkHandler struct {
	bulkService service.BulkService
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(bulkService service.BulkService) *BulkHandler {
	return &BulkHandler{
		bulkService: bulkService,
	}
}

// Issue handles POST /events/:id/tickets/bulk
func (h *BulkHandler) Issue(c *gin.Context) {
	var req dto.BulkIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	result, err := h.bulkService.IssueBulk(c.Request.Context(), c.Param("id"), req.Tickets)
	if err != nil {
		writeError(c, err, "Failed to issue tickets")
		return
	}

	c.JSON(statusFor(result), response.Success(result))
}

// Import handles POST /events/:id/tickets/import. The CSV arrives either as
// the multipart field "file" or as a text/csv body.
func (h *BulkHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportBytes)

	var src io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, response.BadRequest("CSV file is required"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.BadRequest("Unable to read CSV file"))
			return
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request.Body
	}

	result, err := h.bulkService.ImportCSV(c.Request.Context(), c.Param("id"), src)
	if err != nil {
		writeError(c, err, "Failed to import tickets")
		return
	}

	c.JSON(statusFor(result), response.Success(result))
}

// Template handles GET /tickets/import/template
func (h *BulkHandler) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="tickets_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(service.CSVTemplate))
}

// statusFor is 201 when anything was created and 200 otherwise; failed
// rows are reported in the body either way
func statusFor(result *dto.BulkIssueResponse) int {
	if result.Created > 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}
