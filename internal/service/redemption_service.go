package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/clock"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

// redemptionService implements RedemptionService. All state changes are
// conditional updates in the store; nothing here holds a lock.
type redemptionService struct {
	ticketRepo repository.TicketRepository
	publisher  RedemptionPublisher
	metrics    Metrics
	clock      clock.Clock
}

// NewRedemptionService creates a new RedemptionService
func NewRedemptionService(
	ticketRepo repository.TicketRepository,
	publisher RedemptionPublisher,
	metrics Metrics,
	clk clock.Clock,
) RedemptionService {
	if publisher == nil {
		publisher = NewNoOpRedemptionPublisher()
	}
	if metrics == nil {
		metrics = NoOpMetrics()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &redemptionService{
		ticketRepo: ticketRepo,
		publisher:  publisher,
		metrics:    metrics,
		clock:      clk,
	}
}

// MarkUsed redeems a ticket
func (s *redemptionService) MarkUsed(ctx context.Context, id string) (*domain.RedemptionResult, error) {
	return s.markUsed(ctx, id, domain.SourceManual)
}

// MarkUnused reverts a redemption
func (s *redemptionService) MarkUnused(ctx context.Context, id string) (*domain.RedemptionResult, error) {
	return s.markUnused(ctx, id, domain.SourceManual)
}

// LookupByCode finds a ticket by normalized code. Short input is rejected
// before any store round trip.
func (s *redemptionService) LookupByCode(ctx context.Context, raw string) (*domain.Ticket, error) {
	code, err := domain.NormalizeCode(raw)
	if err != nil {
		return nil, err
	}
	return s.ticketRepo.GetByCode(ctx, code)
}

// Scan auto-redeems a scanned code
func (s *redemptionService) Scan(ctx context.Context, raw string) (*domain.RedemptionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.redemption.scan")
	defer span.End()

	ticket, err := s.LookupByCode(ctx, raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("ticket_id", ticket.ID))

	if ticket.Used {
		result := &domain.RedemptionResult{Status: domain.RedemptionAlreadyUsed, Ticket: ticket}
		s.observe(ctx, result, domain.SourceScan)
		return result, nil
	}

	result, err := s.markUsed(ctx, ticket.ID, domain.SourceScan)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("status", string(result.Status)))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// ManualSearch is a read-only lookup of typed input
func (s *redemptionService) ManualSearch(ctx context.Context, raw string) (*domain.Ticket, error) {
	return s.LookupByCode(ctx, raw)
}

// ConfirmRedeem redeems the ticket chosen after a manual search
func (s *redemptionService) ConfirmRedeem(ctx context.Context, id string) (*domain.RedemptionResult, error) {
	return s.markUsed(ctx, id, domain.SourceManual)
}

// SetUsed drives the toggle in either direction
func (s *redemptionService) SetUsed(ctx context.Context, id string, used bool) (*domain.RedemptionResult, error) {
	if used {
		return s.markUsed(ctx, id, domain.SourceToggle)
	}
	return s.markUnused(ctx, id, domain.SourceToggle)
}

func (s *redemptionService) markUsed(ctx context.Context, id string, source domain.RedemptionSource) (*domain.RedemptionResult, error) {
	ticket, transitioned, err := s.ticketRepo.MarkUsed(ctx, id, s.clock.Now())
	if err != nil {
		return nil, err
	}

	status := domain.RedemptionAlreadyUsed
	if transitioned {
		status = domain.RedemptionUsed
	}
	result := &domain.RedemptionResult{Status: status, Ticket: ticket}
	s.observe(ctx, result, source)
	return result, nil
}

func (s *redemptionService) markUnused(ctx context.Context, id string, source domain.RedemptionSource) (*domain.RedemptionResult, error) {
	ticket, transitioned, err := s.ticketRepo.MarkUnused(ctx, id, s.clock.Now())
	if err != nil {
		return nil, err
	}

	status := domain.RedemptionAlreadyUnused
	if transitioned {
		status = domain.RedemptionReverted
	}
	result := &domain.RedemptionResult{Status: status, Ticket: ticket}
	s.observe(ctx, result, source)
	return result, nil
}

// observe counts the outcome and publishes it to the activity feed.
// Publishing is best effort; the redemption has already been committed.
func (s *redemptionService) observe(ctx context.Context, result *domain.RedemptionResult, source domain.RedemptionSource) {
	s.metrics.Redemption(string(result.Status), string(source))

	if result.Status == domain.RedemptionAlreadyUnused {
		return
	}

	entry := domain.NewActivityEntry(result, source, s.clock.Now())
	if err := s.publisher.PublishRedemption(ctx, entry); err != nil {
		logger.Get().Warn(fmt.Sprintf("failed to publish redemption for ticket %s: %v", result.Ticket.ID, err))
	}
}
