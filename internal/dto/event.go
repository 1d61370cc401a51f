package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

// CreateEventRequest represents the request to create a new event.
// Dates may be sent as startDate/endDate or start_date/end_date.
type CreateEventRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// UnmarshalJSON accepts the snake_case date keys as well
func (r *CreateEventRequest) UnmarshalJSON(data []byte) error {
	type plain CreateEventRequest
	var aux struct {
		plain
		StartDateSnake string `json:"start_date"`
		EndDateSnake   string `json:"end_date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = CreateEventRequest(aux.plain)
	if r.StartDate == "" {
		r.StartDate = aux.StartDateSnake
	}
	if r.EndDate == "" {
		r.EndDate = aux.EndDateSnake
	}
	return nil
}

// Validate validates the CreateEventRequest
func (r *CreateEventRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Name) == "" {
		return false, "Event name is required"
	}
	if r.StartDate == "" || r.EndDate == "" {
		return false, "Start date and end date are required"
	}
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return false, "Invalid start date"
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return false, "Invalid end date"
	}
	if !start.Before(end) {
		return false, "End date must be after start date"
	}
	return true, ""
}

// UpdateEventRequest represents a partial event update
type UpdateEventRequest struct {
	Name      *string `json:"name"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// UnmarshalJSON accepts the snake_case date keys as well
func (r *UpdateEventRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateEventRequest
	var aux struct {
		plain
		StartDateSnake *string `json:"start_date"`
		EndDateSnake   *string `json:"end_date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = UpdateEventRequest(aux.plain)
	if r.StartDate == nil {
		r.StartDate = aux.StartDateSnake
	}
	if r.EndDate == nil {
		r.EndDate = aux.EndDateSnake
	}
	return nil
}

// Validate validates the shape of the update. Date ordering is checked
// against the merged values in the service.
func (r *UpdateEventRequest) Validate() (bool, string) {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return false, "Event name cannot be empty"
	}
	if r.StartDate != nil {
		if _, err := ParseDate(*r.StartDate); err != nil {
			return false, "Invalid start date"
		}
	}
	if r.EndDate != nil {
		if _, err := ParseDate(*r.EndDate); err != nil {
			return false, "Invalid end date"
		}
	}
	return true, ""
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// EventListFilter represents filters for listing events
type EventListFilter struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// SetDefaults sets default values for pagination
func (f *EventListFilter) SetDefaults() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// EventResponse represents the response for an event. StartDate and
// EndDate are RFC 3339; Date is the display range.
type EventResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Date        string `json:"date"`
	TicketCount int64  `json:"ticketCount"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// EventResponseFrom maps an event and its ticket count
func EventResponseFrom(e *domain.Event, ticketCount int64) *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		StartDate:   e.StartDate.UTC().Format(time.RFC3339),
		EndDate:     e.EndDate.UTC().Format(time.RFC3339),
		Date:        e.DateRange(),
		TicketCount: ticketCount,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}
