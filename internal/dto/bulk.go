package dto

// BulkTicketRow is one holder in a bulk issuance
type BulkTicketRow struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// BulkIssueRequest represents a JSON bulk issuance
type BulkIssueRequest struct {
	Tickets []BulkTicketRow `json:"tickets"`
}

// Validate validates the BulkIssueRequest
func (r *BulkIssueRequest) Validate(maxRows int) (bool, string) {
	if len(r.Tickets) == 0 {
		return false, "At least one ticket is required"
	}
	if maxRows > 0 && len(r.Tickets) > maxRows {
		return false, "Too many tickets in one request"
	}
	return true, ""
}

// BulkRowError reports why one input row was not created.
// Index is the row's position in the input.
type BulkRowError struct {
	Index int           `json:"index"`
	Error string        `json:"error"`
	Data  BulkTicketRow `json:"data"`
}

// BulkIssueResponse summarises a bulk issuance
type BulkIssueResponse struct {
	Success bool              `json:"success"`
	Created int               `json:"created"`
	Failed  int               `json:"failed"`
	Tickets []*TicketResponse `json:"tickets"`
	Errors  []BulkRowError    `json:"errors"`
}
