package domain

import (
	"time"

	"github.com/google/uuid"
)

// RedemptionEventType is the event type header for redemption messages
const RedemptionEventType = "ticket.redemption"

// RedemptionEvent is the message published for every redemption outcome
type RedemptionEvent struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Entry      *ActivityEntry `json:"entry"`
}

// NewRedemptionEvent wraps an activity entry for publishing
func NewRedemptionEvent(entry *ActivityEntry) *RedemptionEvent {
	return &RedemptionEvent{
		EventID:    uuid.New().String(),
		EventType:  RedemptionEventType,
		OccurredAt: entry.OccurredAt,
		Entry:      entry,
	}
}

// Key partitions messages by ticket so one ticket's outcomes stay ordered
func (e *RedemptionEvent) Key() string {
	return e.Entry.TicketID
}
