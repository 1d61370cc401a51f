package service

import (
	"context"
	"io"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
)

// EventService defines the interface for event business logic
type EventService interface {
	// CreateEvent creates a new event
	CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error)
	// GetEvent retrieves an event with its ticket count
	GetEvent(ctx context.Context, id string) (*domain.EventWithCount, error)
	// ListEvents lists events newest first with ticket counts
	ListEvents(ctx context.Context, filter *dto.EventListFilter) ([]*domain.EventWithCount, int, error)
	// UpdateEvent applies a partial update
	UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error)
	// DeleteEvent deletes an event that owns no tickets
	DeleteEvent(ctx context.Context, id string) error
}

// TicketService defines the interface for ticket business logic
type TicketService interface {
	// CreateTicket issues one ticket with a fresh unique code
	CreateTicket(ctx context.Context, req *dto.CreateTicketRequest) (*domain.Ticket, error)
	// GetTicket retrieves a ticket by ID
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	// ListTickets lists tickets with filters and pagination
	ListTickets(ctx context.Context, filter *dto.TicketListFilter) ([]*domain.Ticket, int, error)
	// UpdateTicket edits holder details and, when asked, toggles redemption
	UpdateTicket(ctx context.Context, id string, req *dto.UpdateTicketRequest) (*domain.Ticket, error)
	// DeleteTicket deletes a ticket
	DeleteTicket(ctx context.Context, id string) error
}

// RedemptionService defines the ticket redemption state machine
type RedemptionService interface {
	// MarkUsed moves a ticket from unused to used at most once
	MarkUsed(ctx context.Context, id string) (*domain.RedemptionResult, error)
	// MarkUnused reverts a redemption
	MarkUnused(ctx context.Context, id string) (*domain.RedemptionResult, error)
	// LookupByCode normalizes raw input and finds the ticket. Read-only.
	LookupByCode(ctx context.Context, raw string) (*domain.Ticket, error)
	// Scan looks up a scanned payload and redeems it if unused
	Scan(ctx context.Context, raw string) (*domain.RedemptionResult, error)
	// ManualSearch finds a ticket from typed input without redeeming it
	ManualSearch(ctx context.Context, raw string) (*domain.Ticket, error)
	// ConfirmRedeem redeems a ticket found by ManualSearch
	ConfirmRedeem(ctx context.Context, id string) (*domain.RedemptionResult, error)
	// SetUsed drives the redemption toggle
	SetUsed(ctx context.Context, id string, used bool) (*domain.RedemptionResult, error)
}

// BulkService defines bulk ticket issuance
type BulkService interface {
	// IssueBulk creates one ticket per valid row for an event
	IssueBulk(ctx context.Context, eventID string, rows []dto.BulkTicketRow) (*dto.BulkIssueResponse, error)
	// ImportCSV parses a holder CSV and issues its rows
	ImportCSV(ctx context.Context, eventID string, r io.Reader) (*dto.BulkIssueResponse, error)
}

// ActivityService defines the scan activity feed and usage stats
type ActivityService interface {
	// Record stores a feed entry
	Record(ctx context.Context, entry *domain.ActivityEntry) error
	// Recent returns the latest entries, newest first
	Recent(ctx context.Context, limit int) ([]*domain.ActivityEntry, error)
	// Stats returns authoritative usage counts from the store
	Stats(ctx context.Context, eventID *string) (*domain.TicketStats, error)
}

// RedemptionPublisher announces redemption outcomes
type RedemptionPublisher interface {
	// PublishRedemption publishes one outcome
	PublishRedemption(ctx context.Context, entry *domain.ActivityEntry) error
	// Close releases the publisher
	Close() error
}

// Metrics receives domain counters
type Metrics interface {
	TicketsIssued(source string, n int)
	Redemption(status, source string)
	CodeCollision()
	BulkRowsFailed(n int)
}

type noopMetrics struct{}

func (noopMetrics) TicketsIssued(string, int) {}
func (noopMetrics) Redemption(string, string) {}
func (noopMetrics) CodeCollision() {}
func (noopMetrics) BulkRowsFailed(int) {}

// NoOpMetrics returns a Metrics that records nothing
func NoOpMetrics() Metrics {
	return noopMetrics{}
}
