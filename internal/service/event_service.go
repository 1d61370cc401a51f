package service

import (
	"context"
	"strings"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/clock"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
)

// eventService implements EventService
type eventService struct {
	eventRepo  repository.EventRepository
	ticketRepo repository.TicketRepository
	clock      clock.Clock
}

// NewEventService creates a new EventService
func NewEventService(eventRepo repository.EventRepository, ticketRepo repository.TicketRepository, clk clock.Clock) EventService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &eventService{
		eventRepo:  eventRepo,
		ticketRepo: ticketRepo,
		clock:      clk,
	}
}

// CreateEvent creates a new event
func (s *eventService) CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error) {
	if valid, msg := req.Validate(); !valid {
		return nil, domain.NewValidationError("event", msg)
	}

	start, _ := dto.ParseDate(req.StartDate)
	end, _ := dto.ParseDate(req.EndDate)

	event, err := domain.NewEvent(req.Name, start, end, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// GetEvent retrieves an event with its ticket count
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.EventWithCount, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.ticketRepo.CountByEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.EventWithCount{Event: event, TicketCount: count}, nil
}

// ListEvents lists events newest first
func (s *eventService) ListEvents(ctx context.Context, filter *dto.EventListFilter) ([]*domain.EventWithCount, int, error) {
	filter.SetDefaults()
	return s.eventRepo.List(ctx, filter.Limit, filter.Offset)
}

// UpdateEvent merges the update into the stored event and re-checks the date range
func (s *eventService) UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error) {
	if valid, msg := req.Validate(); !valid {
		return nil, domain.NewValidationError("event", msg)
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		event.Name = strings.TrimSpace(*req.Name)
	}
	if req.StartDate != nil {
		event.StartDate, _ = dto.ParseDate(*req.StartDate)
	}
	if req.EndDate != nil {
		event.EndDate, _ = dto.ParseDate(*req.EndDate)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	event.UpdatedAt = s.clock.Now()

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// DeleteEvent refuses while any ticket belongs to the event
func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.eventRepo.GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.ticketRepo.CountByEvent(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &domain.EventHasTicketsError{EventID: id, TicketCount: count}
	}

	return s.eventRepo.Delete(ctx, id)
}
