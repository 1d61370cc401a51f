package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/clock"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

// DefaultBulkMaxRows caps one bulk request
const DefaultBulkMaxRows = 5000

// BulkServiceConfig holds bulk issuance limits
type BulkServiceConfig struct {
	MaxRows int
}

// bulkService implements BulkService
type bulkService struct {
	ticketRepo repository.TicketRepository
	eventRepo  repository.EventRepository
	resolver   *CodeResolver
	metrics    Metrics
	clock      clock.Clock
	maxRows    int
}

// NewBulkService creates a new BulkService
func NewBulkService(
	ticketRepo repository.TicketRepository,
	eventRepo repository.EventRepository,
	resolver *CodeResolver,
	metrics Metrics,
	clk clock.Clock,
	cfg *BulkServiceConfig,
) BulkService {
	if metrics == nil {
		metrics = NoOpMetrics()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	maxRows := DefaultBulkMaxRows
	if cfg != nil && cfg.MaxRows > 0 {
		maxRows = cfg.MaxRows
	}
	return &bulkService{
		ticketRepo: ticketRepo,
		eventRepo:  eventRepo,
		resolver:   resolver,
		metrics:    metrics,
		clock:      clk,
		maxRows:    maxRows,
	}
}

// pendingRow is a validated row waiting to be written
type pendingRow struct {
	index  int
	row    dto.BulkTicketRow
	ticket *domain.Ticket
	budget *CodeBudget
}

// bulkOutcome collects per-row results keyed by input index
type bulkOutcome struct {
	created []*pendingRow
	errors  []dto.BulkRowError
}

func (o *bulkOutcome) fail(index int, row dto.BulkTicketRow, err error) {
	o.errors = append(o.errors, dto.BulkRowError{Index: index, Error: err.Error(), Data: row})
}

// ImportCSV parses a holder CSV and issues its rows
func (s *bulkService) ImportCSV(ctx context.Context, eventID string, r io.Reader) (*dto.BulkIssueResponse, error) {
	rows, err := ParseHolderCSV(r)
	if err != nil {
		return nil, err
	}
	return s.IssueBulk(ctx, eventID, rows)
}

// IssueBulk validates every row, resolves codes, writes them in one batch and
// reconciles what the store actually accepted. A missing event fails the
// whole call; everything else is a per-row failure.
func (s *bulkService) IssueBulk(ctx context.Context, eventID string, rows []dto.BulkTicketRow) (*dto.BulkIssueResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.bulk.issue")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("rows", len(rows)),
	)

	req := &dto.BulkIssueRequest{Tickets: rows}
	if valid, msg := req.Validate(s.maxRows); !valid {
		return nil, domain.NewValidationError("tickets", msg)
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	outcome := &bulkOutcome{}
	pending := s.prepare(ctx, event, rows, outcome)

	if len(pending) > 0 {
		s.write(ctx, pending, outcome)
	}

	resp := s.buildResponse(event, outcome)
	s.metrics.TicketsIssued("bulk", resp.Created)
	s.metrics.BulkRowsFailed(resp.Failed)

	span.SetAttributes(
		attribute.Int("created", resp.Created),
		attribute.Int("failed", resp.Failed),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// prepare validates rows and assigns each survivor a code
func (s *bulkService) prepare(ctx context.Context, event *domain.Event, rows []dto.BulkTicketRow, outcome *bulkOutcome) []*pendingRow {
	now := s.clock.Now()
	seen := make(map[string]struct{}, len(rows))
	pending := make([]*pendingRow, 0, len(rows))

	for i, row := range rows {
		row.Name = strings.TrimSpace(row.Name)
		row.Surname = strings.TrimSpace(row.Surname)

		if msg := validateRow(row); msg != "" {
			outcome.fail(i, row, errors.New(msg))
			continue
		}

		// One budget covers the row's in-batch, store and insert collisions
		budget := s.resolver.NewBudget()
		code, err := s.resolver.ResolveWithin(ctx, budget, func(code string) bool {
			_, dup := seen[code]
			return dup
		})
		if err != nil {
			outcome.fail(i, row, err)
			continue
		}
		seen[code] = struct{}{}

		eventID := event.ID
		pending = append(pending, &pendingRow{
			index:  i,
			row:    row,
			ticket: domain.NewTicket(code, row.Name, row.Surname, &eventID, now),
			budget: budget,
		})
	}
	return pending
}

// write inserts pending rows in one batch, then retries individually every
// row the batch did not return
func (s *bulkService) write(ctx context.Context, pending []*pendingRow, outcome *bulkOutcome) {
	tickets := make([]*domain.Ticket, len(pending))
	for i, p := range pending {
		tickets[i] = p.ticket
	}

	inserted, batchErr := s.ticketRepo.CreateBatch(ctx, tickets)
	if batchErr != nil {
		logger.Get().Warn(fmt.Sprintf("bulk batch insert failed, falling back to single inserts: %v", batchErr))
	}

	accepted := make(map[string]struct{}, len(inserted))
	for _, t := range inserted {
		accepted[t.ID] = struct{}{}
	}

	for _, p := range pending {
		if _, ok := accepted[p.ticket.ID]; ok {
			outcome.created = append(outcome.created, p)
			continue
		}

		var err error
		if batchErr != nil {
			err = s.insertOne(ctx, p)
		} else {
			// Skipped by the duplicate guard: someone took the code since we resolved it
			err = s.reissue(ctx, p)
		}
		if err != nil {
			outcome.fail(p.index, p.row, err)
			continue
		}
		outcome.created = append(outcome.created, p)
	}
}

// insertOne tries the row's code first, then fresh codes
func (s *bulkService) insertOne(ctx context.Context, p *pendingRow) error {
	err := s.ticketRepo.Create(ctx, p.ticket)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrDuplicateCode) {
		return err
	}
	return s.reissue(ctx, p)
}

// reissue inserts the row under a new code, spending what is left of the
// row's budget
func (s *bulkService) reissue(ctx context.Context, p *pendingRow) error {
	s.metrics.CodeCollision()
	original := p.ticket
	ticket, err := s.resolver.CreateWithin(ctx, p.budget,
		func(code string) *domain.Ticket {
			return domain.NewTicket(code, original.Name, original.Surname, original.EventID, original.CreatedAt)
		},
		s.ticketRepo.Create,
	)
	if err != nil {
		return err
	}
	p.ticket = ticket
	return nil
}

func (s *bulkService) buildResponse(event *domain.Event, outcome *bulkOutcome) *dto.BulkIssueResponse {
	sort.Slice(outcome.created, func(i, j int) bool {
		return outcome.created[i].index < outcome.created[j].index
	})
	sort.Slice(outcome.errors, func(i, j int) bool {
		return outcome.errors[i].Index < outcome.errors[j].Index
	})

	summary := event.Summary()
	tickets := make([]*dto.TicketResponse, len(outcome.created))
	for i, p := range outcome.created {
		p.ticket.Event = summary
		tickets[i] = dto.TicketResponseFrom(p.ticket)
	}

	errs := outcome.errors
	if errs == nil {
		errs = []dto.BulkRowError{}
	}

	return &dto.BulkIssueResponse{
		Success: len(tickets) > 0,
		Created: len(tickets),
		Failed:  len(errs),
		Tickets: tickets,
		Errors:  errs,
	}
}

// validateRow returns the joined required-field errors for a trimmed row
func validateRow(row dto.BulkTicketRow) string {
	var problems []string
	if row.Name == "" {
		problems = append(problems, "Name is required")
	}
	if row.Surname == "" {
		problems = append(problems, "Surname is required")
	}
	return strings.Join(problems, ", ")
}
