package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

// MemoryStore holds events and tickets in process memory.
// It enforces the same code uniqueness, event reference and used/unused
// compare-and-set rules as the Postgres schema. Useful for tests and local runs.
type MemoryStore struct {
	events  map[string]*domain.Event
	tickets map[string]*domain.Ticket
	byCode  map[string]string // upper(code) -> ticketID
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[string]*domain.Event),
		tickets: make(map[string]*domain.Ticket),
		byCode:  make(map[string]string),
	}
}

// Events returns an EventRepository view of the store
func (s *MemoryStore) Events() *MemoryEventRepository {
	return &MemoryEventRepository{store: s}
}

// Tickets returns a TicketRepository view of the store
func (s *MemoryStore) Tickets() *MemoryTicketRepository {
	return &MemoryTicketRepository{store: s}
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// withEvent attaches the event summary; caller holds the lock
func (s *MemoryStore) withEvent(t *domain.Ticket) *domain.Ticket {
	c := t.Clone()
	c.Event = nil
	if t.EventID != nil {
		if e, ok := s.events[*t.EventID]; ok {
			c.Event = e.Summary()
		}
	}
	return c
}

// MemoryEventRepository implements EventRepository on a MemoryStore
type MemoryEventRepository struct {
	store *MemoryStore
}

// NewMemoryEventRepository creates an event repository over its own store
func NewMemoryEventRepository() *MemoryEventRepository {
	return NewMemoryStore().Events()
}

// Create creates a new event
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e := *event
	s.events[event.ID] = &e
	return nil
}

// GetByID retrieves an event by ID
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

// List lists events newest first
func (r *MemoryEventRepository) List(ctx context.Context, limit, offset int) ([]*domain.EventWithCount, int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64, len(s.events))
	for _, t := range s.tickets {
		if t.EventID != nil {
			counts[*t.EventID]++
		}
	}

	all := make([]*domain.EventWithCount, 0, len(s.events))
	for _, e := range s.events {
		c := *e
		all = append(all, &domain.EventWithCount{Event: &c, TicketCount: counts[e.ID]})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return paginate(all, limit, offset), len(all), nil
}

// Update updates an event
func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	existing.Name = event.Name
	existing.StartDate = event.StartDate
	existing.EndDate = event.EndDate
	existing.UpdatedAt = event.UpdatedAt
	return nil
}

// Delete deletes an event, refusing while tickets reference it
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	var owned int64
	for _, t := range s.tickets {
		if t.EventID != nil && *t.EventID == id {
			owned++
		}
	}
	if owned > 0 {
		return &domain.EventHasTicketsError{EventID: id, TicketCount: owned}
	}
	delete(s.events, id)
	return nil
}

// MemoryTicketRepository implements TicketRepository on a MemoryStore
type MemoryTicketRepository struct {
	store *MemoryStore
}

// insertLocked writes one ticket; caller holds the write lock
func (s *MemoryStore) insertLocked(ticket *domain.Ticket) error {
	key := strings.ToUpper(ticket.Code)
	if _, taken := s.byCode[key]; taken {
		return domain.ErrDuplicateCode
	}
	if _, taken := s.tickets[ticket.ID]; taken {
		return domain.ErrDuplicateCode
	}
	if ticket.EventID != nil {
		if _, ok := s.events[*ticket.EventID]; !ok {
			return domain.ErrEventNotFound
		}
	}
	c := ticket.Clone()
	c.Event = nil
	s.tickets[c.ID] = c
	s.byCode[key] = c.ID
	return nil
}

// Create creates a new ticket
func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(ticket)
}

// CreateBatch inserts tickets skipping duplicate codes, like ON CONFLICT DO NOTHING.
// A missing event fails the whole batch as the foreign key would.
func (r *MemoryTicketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tickets {
		if t.EventID != nil {
			if _, ok := s.events[*t.EventID]; !ok {
				return nil, domain.ErrEventNotFound
			}
		}
	}

	inserted := make([]*domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if err := s.insertLocked(t); err != nil {
			continue
		}
		inserted = append(inserted, t)
	}
	return inserted, nil
}

// GetByID retrieves a ticket by ID
func (r *MemoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return s.withEvent(t), nil
}

// GetByCode retrieves a ticket by its exact code
func (r *MemoryTicketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	t := s.tickets[id]
	if t.Code != code {
		return nil, domain.ErrTicketNotFound
	}
	return s.withEvent(t), nil
}

// ExistsByCode checks whether a code is taken, ignoring case
func (r *MemoryTicketRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byCode[strings.ToUpper(code)]
	return ok, nil
}

// Update applies holder-detail changes
func (r *MemoryTicketRepository) Update(ctx context.Context, id string, update *domain.TicketUpdate, now time.Time) (*domain.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if update.EventID != nil {
		if _, ok := s.events[*update.EventID]; !ok {
			return nil, domain.ErrEventNotFound
		}
		eventID := *update.EventID
		t.EventID = &eventID
	}
	if update.Name != nil {
		t.Name = *update.Name
	}
	if update.Surname != nil {
		t.Surname = *update.Surname
	}
	t.UpdatedAt = now
	return s.withEvent(t), nil
}

// MarkUsed sets used only when the ticket is currently unused
func (r *MemoryTicketRepository) MarkUsed(ctx context.Context, id string, at time.Time) (*domain.Ticket, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, false, domain.ErrTicketNotFound
	}
	if t.Used {
		return s.withEvent(t), false, nil
	}
	usedAt := at
	t.Used = true
	t.UsedAt = &usedAt
	t.UpdatedAt = at
	return s.withEvent(t), true, nil
}

// MarkUnused clears used only when the ticket is currently used
func (r *MemoryTicketRepository) MarkUnused(ctx context.Context, id string, now time.Time) (*domain.Ticket, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, false, domain.ErrTicketNotFound
	}
	if !t.Used {
		return s.withEvent(t), false, nil
	}
	t.Used = false
	t.UsedAt = nil
	t.UpdatedAt = now
	return s.withEvent(t), true, nil
}

// Delete deletes a ticket
func (r *MemoryTicketRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	delete(s.byCode, strings.ToUpper(t.Code))
	delete(s.tickets, id)
	return nil
}

func matchesFilter(t *domain.Ticket, filter *domain.TicketFilter) bool {
	if filter.EventID != nil && (t.EventID == nil || *t.EventID != *filter.EventID) {
		return false
	}
	if filter.Used != nil && t.Used != *filter.Used {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		return strings.Contains(strings.ToLower(t.Code), q) ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Surname), q)
	}
	return true
}

// List lists tickets matching filter, newest first
func (r *MemoryTicketRepository) List(ctx context.Context, filter *domain.TicketFilter) ([]*domain.Ticket, int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Ticket, 0)
	for _, t := range s.tickets {
		if matchesFilter(t, filter) {
			all = append(all, s.withEvent(t))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return paginate(all, filter.Limit, filter.Offset), len(all), nil
}

// CountByEvent counts tickets owned by an event
func (r *MemoryTicketRepository) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.tickets {
		if t.EventID != nil && *t.EventID == eventID {
			n++
		}
	}
	return n, nil
}

// Stats counts used and total tickets
func (r *MemoryTicketRepository) Stats(ctx context.Context, eventID *string) (*domain.TicketStats, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total, used int64
	for _, t := range s.tickets {
		if eventID != nil && (t.EventID == nil || *t.EventID != *eventID) {
			continue
		}
		total++
		if t.Used {
			used++
		}
	}
	return domain.NewTicketStats(total, used), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
