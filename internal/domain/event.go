package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used in event date ranges
const DateLayout = "2006-01-02"

// Event is a dated occasion that owns tickets
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventSummary is the slice of an event embedded in ticket responses
type EventSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// EventWithCount is an event together with the number of tickets it owns
type EventWithCount struct {
	*Event
	TicketCount int64 `json:"ticket_count"`
}

// NewEvent validates and builds a new event
func NewEvent(name string, start, end, now time.Time) (*Event, error) {
	e := &Event{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		StartDate: start.UTC(),
		EndDate:   end.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the event invariants
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrInvalidEventName
	}
	if !e.StartDate.Before(e.EndDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// DateRange formats the event dates as "start - end"
func (e *Event) DateRange() string {
	return e.StartDate.Format(DateLayout) + " - " + e.EndDate.Format(DateLayout)
}

// Summary returns the embeddable event summary
func (e *Event) Summary() *EventSummary {
	return &EventSummary{
		ID:        e.ID,
		Name:      e.Name,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
	}
}
