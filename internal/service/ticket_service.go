package service

import (
	"context"
	"strings"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/clock"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
)

// ticketService implements TicketService
type ticketService struct {
	ticketRepo repository.TicketRepository
	eventRepo  repository.EventRepository
	resolver   *CodeResolver
	redemption RedemptionService
	metrics    Metrics
	clock      clock.Clock
}

// NewTicketService creates a new TicketService
func NewTicketService(
	ticketRepo repository.TicketRepository,
	eventRepo repository.EventRepository,
	resolver *CodeResolver,
	redemption RedemptionService,
	metrics Metrics,
	clk clock.Clock,
) TicketService {
	if metrics == nil {
		metrics = NoOpMetrics()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &ticketService{
		ticketRepo: ticketRepo,
		eventRepo:  eventRepo,
		resolver:   resolver,
		redemption: redemption,
		metrics:    metrics,
		clock:      clk,
	}
}

// CreateTicket issues one unused ticket for an existing event
func (s *ticketService) CreateTicket(ctx context.Context, req *dto.CreateTicketRequest) (*domain.Ticket, error) {
	if valid, msg := req.Validate(); !valid {
		return nil, domain.NewValidationError("ticket", msg)
	}

	eventID := strings.TrimSpace(req.EventID)
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket, err := s.resolver.CreateWithUniqueCode(ctx,
		func(code string) *domain.Ticket {
			return domain.NewTicket(code, req.Name, req.Surname, &eventID, now)
		},
		s.ticketRepo.Create,
	)
	if err != nil {
		return nil, err
	}

	s.metrics.TicketsIssued("single", 1)
	ticket.Event = event.Summary()
	return ticket, nil
}

// GetTicket retrieves a ticket by ID
func (s *ticketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, id)
}

// ListTickets lists tickets with filters and pagination
func (s *ticketService) ListTickets(ctx context.Context, filter *dto.TicketListFilter) ([]*domain.Ticket, int, error) {
	if valid, msg := filter.Validate(); !valid {
		return nil, 0, domain.NewValidationError("used", msg)
	}
	filter.SetDefaults()
	return s.ticketRepo.List(ctx, filter.ToDomain())
}

// UpdateTicket applies holder edits first, then the redemption toggle
func (s *ticketService) UpdateTicket(ctx context.Context, id string, req *dto.UpdateTicketRequest) (*domain.Ticket, error) {
	if valid, msg := req.Validate(); !valid {
		return nil, domain.NewValidationError("ticket", msg)
	}

	var ticket *domain.Ticket
	if update := req.HolderUpdate(); update != nil {
		if update.EventID != nil {
			if _, err := s.eventRepo.GetByID(ctx, *update.EventID); err != nil {
				return nil, err
			}
		}
		updated, err := s.ticketRepo.Update(ctx, id, update, s.clock.Now())
		if err != nil {
			return nil, err
		}
		ticket = updated
	}

	if req.Used != nil {
		result, err := s.redemption.SetUsed(ctx, id, *req.Used)
		if err != nil {
			return nil, err
		}
		ticket = result.Ticket
	}

	return ticket, nil
}

// DeleteTicket deletes a ticket
func (s *ticketService) DeleteTicket(ctx context.Context, id string) error {
	return s.ticketRepo.Delete(ctx, id)
}
