package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/clock"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
)

var testStart = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

// fixedCodeReader makes every Generate call return a run of one character.
// Values cycles through the given alphabet indexes, one per Read.
type fixedCodeReader struct {
	mu     sync.Mutex
	values []byte
	next   int
}

func (r *fixedCodeReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[r.next%len(r.values)]
	r.next++
	for i := range p {
		p[i] = v
	}
	return len(p), nil
}

func repeatedCode(index byte) string {
	c := domain.CodeAlphabet[index]
	return string([]byte{c, c, c, c, c, c, c, c})
}

// recordingPublisher keeps published entries
type recordingPublisher struct {
	mu      sync.Mutex
	entries []*domain.ActivityEntry
	err     error
}

func (p *recordingPublisher) PublishRedemption(ctx context.Context, entry *domain.ActivityEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) statuses() []domain.RedemptionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.RedemptionStatus, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Status
	}
	return out
}

// MockTicketRepository overrides selected methods of a real repository
type MockTicketRepository struct {
	repository.TicketRepository
	GetByCodeFunc    func(ctx context.Context, code string) (*domain.Ticket, error)
	CreateBatchFunc  func(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error)
	ExistsByCodeFunc func(ctx context.Context, code string) (bool, error)
	getByCodeCalls   atomic.Int32
}

func (m *MockTicketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	m.getByCodeCalls.Add(1)
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return m.TicketRepository.GetByCode(ctx, code)
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error) {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tickets)
	}
	return m.TicketRepository.CreateBatch(ctx, tickets)
}

func (m *MockTicketRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if m.ExistsByCodeFunc != nil {
		return m.ExistsByCodeFunc(ctx, code)
	}
	return m.TicketRepository.ExistsByCode(ctx, code)
}

// testEnv wires every service over one in-memory store
type testEnv struct {
	store      *repository.MemoryStore
	tickets    *MockTicketRepository
	clock      *clock.Manual
	publisher  *recordingPublisher
	resolver   *CodeResolver
	events     EventService
	ticketSvc  TicketService
	redemption RedemptionService
	bulk       BulkService
	activity   ActivityService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithGenerator(t, nil)
}

func newTestEnvWithGenerator(t *testing.T, gen *domain.CodeGenerator) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	env := &testEnv{
		store:     store,
		tickets:   &MockTicketRepository{TicketRepository: store.Tickets()},
		clock:     clock.NewManual(testStart),
		publisher: &recordingPublisher{},
	}
	eventRepo := store.Events()
	env.resolver = NewCodeResolver(env.tickets, gen, DefaultCodeMaxAttempts, nil)
	env.events = NewEventService(eventRepo, env.tickets, env.clock)
	env.redemption = NewRedemptionService(env.tickets, env.publisher, nil, env.clock)
	env.ticketSvc = NewTicketService(env.tickets, eventRepo, env.resolver, env.redemption, nil, env.clock)
	env.bulk = NewBulkService(env.tickets, eventRepo, env.resolver, nil, env.clock, &BulkServiceConfig{MaxRows: 100})
	env.activity = NewActivityService(repository.NewMemoryActivityRepository(100), env.tickets, eventRepo)
	return env
}

func (e *testEnv) createEvent(t *testing.T, name string) *domain.Event {
	t.Helper()
	event, err := e.events.CreateEvent(context.Background(), &dto.CreateEventRequest{
		Name:      name,
		StartDate: "2025-01-01",
		EndDate:   "2025-01-02",
	})
	require.NoError(t, err)
	return event
}

func (e *testEnv) createTicket(t *testing.T, eventID, name, surname string) *domain.Ticket {
	t.Helper()
	ticket, err := e.ticketSvc.CreateTicket(context.Background(), &dto.CreateTicketRequest{
		Name:    name,
		Surname: surname,
		EventID: eventID,
	})
	require.NoError(t, err)
	return ticket
}
