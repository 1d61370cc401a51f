package repository

import (
	"context"
	"time"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create creates a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID; returns domain.ErrEventNotFound when absent
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// List lists events newest first with their ticket counts
	List(ctx context.Context, limit, offset int) ([]*domain.EventWithCount, int, error)
	// Update persists name and dates of an existing event
	Update(ctx context.Context, event *domain.Event) error
	// Delete removes an event. Returns domain.ErrEventHasTickets when the
	// store still holds tickets referencing it.
	Delete(ctx context.Context, id string) error
}

// TicketRepository defines the interface for ticket data access.
// Codes passed in are expected to be normalized already.
type TicketRepository interface {
	// Create inserts a ticket; returns domain.ErrDuplicateCode on a code
	// collision and domain.ErrEventNotFound when the event is gone
	Create(ctx context.Context, ticket *domain.Ticket) error
	// CreateBatch inserts tickets in one statement, silently skipping rows
	// whose code already exists. Returns the rows actually inserted.
	CreateBatch(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error)
	// GetByID retrieves a ticket with its event summary
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByCode retrieves a ticket by exact code with its event summary
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	// ExistsByCode checks whether a code is taken
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// Update applies holder-detail changes; never touches used/used_at
	Update(ctx context.Context, id string, update *domain.TicketUpdate, now time.Time) (*domain.Ticket, error)
	// MarkUsed sets used only if the ticket is unused. The bool reports
	// whether this call made the transition.
	MarkUsed(ctx context.Context, id string, at time.Time) (*domain.Ticket, bool, error)
	// MarkUnused clears used only if the ticket is used
	MarkUnused(ctx context.Context, id string, now time.Time) (*domain.Ticket, bool, error)
	// Delete removes a ticket
	Delete(ctx context.Context, id string) error
	// List lists tickets matching filter, newest first, with the total count
	List(ctx context.Context, filter *domain.TicketFilter) ([]*domain.Ticket, int, error)
	// CountByEvent counts the tickets an event owns
	CountByEvent(ctx context.Context, eventID string) (int64, error)
	// Stats counts used and unused tickets, optionally for one event
	Stats(ctx context.Context, eventID *string) (*domain.TicketStats, error)
}

// ActivityRepository stores the recent scan activity feed
type ActivityRepository interface {
	// Push records an entry, dropping the oldest beyond the feed capacity
	Push(ctx context.Context, entry *domain.ActivityEntry) error
	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]*domain.ActivityEntry, error)
}

// Pinger is implemented by backends that support health checks
type Pinger interface {
	Ping(ctx context.Context) error
}
