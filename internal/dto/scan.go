package dto

import (
	"strings"
	"time"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

// ScanRequest carries a decoded QR payload
type ScanRequest struct {
	Payload string `json:"payload"`
}

// Validate validates the ScanRequest
func (r *ScanRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Payload) == "" {
		return false, "Payload is required"
	}
	return true, ""
}

// RedemptionResponse represents a redemption outcome
type RedemptionResponse struct {
	Status      string          `json:"status"`
	AlreadyUsed bool            `json:"alreadyUsed"`
	Ticket      *TicketResponse `json:"ticket"`
}

// RedemptionResponseFrom maps a redemption result
func RedemptionResponseFrom(r *domain.RedemptionResult) *RedemptionResponse {
	return &RedemptionResponse{
		Status:      string(r.Status),
		AlreadyUsed: r.Status == domain.RedemptionAlreadyUsed,
		Ticket:      TicketResponseFrom(r.Ticket),
	}
}

// ActivityFilter represents query params for the activity feed
type ActivityFilter struct {
	Limit int `form:"limit"`
}

// SetDefaults sets default values
func (f *ActivityFilter) SetDefaults() {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// ActivityResponse is one entry in the activity feed
type ActivityResponse struct {
	ID         string  `json:"id"`
	TicketID   string  `json:"ticketId"`
	Code       string  `json:"code"`
	HolderName string  `json:"holderName"`
	EventID    *string `json:"eventId,omitempty"`
	EventName  string  `json:"eventName,omitempty"`
	Status     string  `json:"status"`
	Source     string  `json:"source"`
	UsedAt     *string `json:"usedAt,omitempty"`
	OccurredAt string  `json:"occurredAt"`
}

// ActivityResponsesFrom maps feed entries
func ActivityResponsesFrom(entries []*domain.ActivityEntry) []*ActivityResponse {
	out := make([]*ActivityResponse, len(entries))
	for i, e := range entries {
		r := &ActivityResponse{
			ID:         e.ID,
			TicketID:   e.TicketID,
			Code:       e.Code,
			HolderName: e.HolderName,
			EventID:    e.EventID,
			EventName:  e.EventName,
			Status:     string(e.Status),
			Source:     string(e.Source),
			OccurredAt: e.OccurredAt.Format(time.RFC3339Nano),
		}
		if e.UsedAt != nil {
			usedAt := e.UsedAt.Format(time.RFC3339Nano)
			r.UsedAt = &usedAt
		}
		out[i] = r
	}
	return out
}

// StatsResponse represents usage stats
type StatsResponse struct {
	Total     int64   `json:"total"`
	Used      int64   `json:"used"`
	Unused    int64   `json:"unused"`
	UsageRate float64 `json:"usageRate"`
}

// StatsResponseFrom maps stats
func StatsResponseFrom(s *domain.TicketStats) *StatsResponse {
	return &StatsResponse{Total: s.Total, Used: s.Used, Unused: s.Unused, UsageRate: s.UsageRate}
}
