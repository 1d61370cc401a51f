package dto

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

// CreateTicketRequest represents the request to issue one ticket
type CreateTicketRequest struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	EventID string `json:"eventId"`
}

// UnmarshalJSON accepts event_id as well as eventId
func (r *CreateTicketRequest) UnmarshalJSON(data []byte) error {
	type plain CreateTicketRequest
	var aux struct {
		plain
		EventIDSnake string `json:"event_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = CreateTicketRequest(aux.plain)
	if r.EventID == "" {
		r.EventID = aux.EventIDSnake
	}
	return nil
}

// Validate validates the CreateTicketRequest
func (r *CreateTicketRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Surname) == "" {
		return false, "Name and surname are required"
	}
	if strings.TrimSpace(r.EventID) == "" {
		return false, "Event ID is required"
	}
	return true, ""
}

// UpdateTicketRequest represents a partial ticket update. Used toggles
// redemption; the other fields edit holder details.
type UpdateTicketRequest struct {
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	EventID *string `json:"eventId"`
	Used    *bool   `json:"used"`
}

// UnmarshalJSON accepts event_id as well as eventId
func (r *UpdateTicketRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateTicketRequest
	var aux struct {
		plain
		EventIDSnake *string `json:"event_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = UpdateTicketRequest(aux.plain)
	if r.EventID == nil {
		r.EventID = aux.EventIDSnake
	}
	return nil
}

// Validate validates the UpdateTicketRequest
func (r *UpdateTicketRequest) Validate() (bool, string) {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return false, "Name cannot be empty"
	}
	if r.Surname != nil && strings.TrimSpace(*r.Surname) == "" {
		return false, "Surname cannot be empty"
	}
	if r.EventID != nil && strings.TrimSpace(*r.EventID) == "" {
		return false, "Event ID cannot be empty"
	}
	if r.Name == nil && r.Surname == nil && r.EventID == nil && r.Used == nil {
		return false, "No fields to update"
	}
	return true, ""
}

// HolderUpdate returns the holder-detail part of the request, or nil
func (r *UpdateTicketRequest) HolderUpdate() *domain.TicketUpdate {
	if r.Name == nil && r.Surname == nil && r.EventID == nil {
		return nil
	}
	u := &domain.TicketUpdate{}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		u.Name = &name
	}
	if r.Surname != nil {
		surname := strings.TrimSpace(*r.Surname)
		u.Surname = &surname
	}
	if r.EventID != nil {
		eventID := strings.TrimSpace(*r.EventID)
		u.EventID = &eventID
	}
	return u
}

// TicketListFilter represents filters for listing tickets
type TicketListFilter struct {
	EventID    string `form:"event_id"`
	// EventIDAlt carries the eventId spelling of the same filter
	EventIDAlt string `form:"eventId"`
	Used       string `form:"used"`
	Search     string `form:"search"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// SetDefaults sets default values for pagination
func (f *TicketListFilter) SetDefaults() {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Validate validates the TicketListFilter
func (f *TicketListFilter) Validate() (bool, string) {
	if f.Used != "" {
		if _, err := strconv.ParseBool(f.Used); err != nil {
			return false, "used must be true or false"
		}
	}
	return true, ""
}

// ToDomain converts the filter for the repository
func (f *TicketListFilter) ToDomain() *domain.TicketFilter {
	out := &domain.TicketFilter{
		Search: strings.TrimSpace(f.Search),
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	eventID := f.EventID
	if eventID == "" {
		eventID = f.EventIDAlt
	}
	if eventID != "" {
		out.EventID = &eventID
	}
	if f.Used != "" {
		if used, err := strconv.ParseBool(f.Used); err == nil {
			out.Used = &used
		}
	}
	return out
}

// EventSummaryResponse is the event embedded in a ticket
type EventSummaryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// TicketResponse represents the response for a ticket
type TicketResponse struct {
	ID        string                `json:"id"`
	Code      string                `json:"code"`
	Name      string                `json:"name"`
	Surname   string                `json:"surname"`
	EventID   *string               `json:"eventId"`
	Used      bool                  `json:"used"`
	UsedAt    *string               `json:"usedAt"`
	CreatedAt string                `json:"createdAt"`
	UpdatedAt string                `json:"updatedAt"`
	Event     *EventSummaryResponse `json:"event,omitempty"`
}

// TicketResponseFrom maps a domain ticket
func TicketResponseFrom(t *domain.Ticket) *TicketResponse {
	resp := &TicketResponse{
		ID:        t.ID,
		Code:      t.Code,
		Name:      t.Name,
		Surname:   t.Surname,
		EventID:   t.EventID,
		Used:      t.Used,
		CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if t.UsedAt != nil {
		usedAt := t.UsedAt.Format(time.RFC3339Nano)
		resp.UsedAt = &usedAt
	}
	if t.Event != nil {
		resp.Event = &EventSummaryResponse{
			ID:        t.Event.ID,
			Name:      t.Event.Name,
			StartDate: t.Event.StartDate.UTC().Format(time.RFC3339),
			EndDate:   t.Event.EndDate.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

// TicketResponsesFrom maps a slice of tickets
func TicketResponsesFrom(tickets []*domain.Ticket) []*TicketResponse {
	out := make([]*TicketResponse, len(tickets))
	for i, t := range tickets {
		out[i] = TicketResponseFrom(t)
	}
	return out
}
