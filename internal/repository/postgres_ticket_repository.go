package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/database"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

// batchChunkSize keeps a multi-row insert under the 65535 bind-parameter limit
const batchChunkSize = 1000

const ticketInsertColumns = 9

// PostgresTicketRepository implements TicketRepository using PostgreSQL
type PostgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository creates a new PostgresTicketRepository
func NewPostgresTicketRepository(pool *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{pool: pool}
}

const ticketColumns = `
	t.id, t.code, t.name, t.surname, t.event_id, t.used, t.used_at,
	t.created_at, t.updated_at,
	e.id, e.name, e.start_date, e.end_date`

const ticketSelect = `SELECT` + ticketColumns + `
	FROM tickets t
	LEFT JOIN events e ON e.id = t.event_id`

// transitionStmt wraps a conditional UPDATE so it returns the changed row
// in the ticketSelect shape, or no row when the guard did not match
func transitionStmt(set, guard string) string {
	return `
	WITH t AS (
		UPDATE tickets SET ` + set + `
		WHERE id = $1 AND ` + guard + `
		RETURNING id, code, name, surname, event_id, used, used_at, created_at, updated_at
	)
	SELECT` + ticketColumns + `
	FROM t
	LEFT JOIN events e ON e.id = t.event_id`
}

var (
	markUsedStmt   = transitionStmt("used = TRUE, used_at = $2, updated_at = $2", "used = FALSE")
	markUnusedStmt = transitionStmt("used = FALSE, used_at = NULL, updated_at = $2", "used = TRUE")
)

// maxTransitionRounds bounds how often a toggle retries after reading the
// opposite state back
const maxTransitionRounds = 2

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var (
		evID, evName   *string
		evStart, evEnd *time.Time
	)
	err := row.Scan(
		&t.ID, &t.Code, &t.Name, &t.Surname, &t.EventID, &t.Used, &t.UsedAt,
		&t.CreatedAt, &t.UpdatedAt,
		&evID, &evName, &evStart, &evEnd,
	)
	if err != nil {
		return nil, err
	}
	if evID != nil {
		t.Event = &domain.EventSummary{ID: *evID, Name: *evName, StartDate: *evStart, EndDate: *evEnd}
	}
	return t, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Create creates a new ticket
func (r *PostgresTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("ticket_id", ticket.ID),
		attribute.String("code", ticket.Code),
	)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO tickets (id, code, name, surname, event_id, used, used_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ticket.ID, ticket.Code, ticket.Name, ticket.Surname, ticket.EventID,
		ticket.Used, ticket.UsedAt, ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate code")
			return domain.ErrDuplicateCode
		}
		if database.IsForeignKeyViolation(err) {
			span.SetStatus(codes.Error, "event not found")
			return domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CreateBatch inserts tickets with ON CONFLICT DO NOTHING and returns the
// tickets whose rows were actually written
func (r *PostgresTicketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.create_batch")
	defer span.End()

	span.SetAttributes(attribute.Int("requested", len(tickets)))

	inserted := make([]*domain.Ticket, 0, len(tickets))
	for start := 0; start < len(tickets); start += batchChunkSize {
		end := min(start+batchChunkSize, len(tickets))
		chunk := tickets[start:end]

		ids, err := r.insertChunk(ctx, chunk)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return inserted, fmt.Errorf("failed to batch insert tickets: %w", err)
		}
		for _, t := range chunk {
			if _, ok := ids[t.ID]; ok {
				inserted = append(inserted, t)
			}
		}
	}

	span.SetAttributes(attribute.Int("inserted", len(inserted)))
	span.SetStatus(codes.Ok, "")
	return inserted, nil
}

func (r *PostgresTicketRepository) insertChunk(ctx context.Context, chunk []*domain.Ticket) (map[string]struct{}, error) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO tickets (id, code, name, surname, event_id, used, used_at, created_at, updated_at) VALUES `)
	args := make([]any, 0, len(chunk)*ticketInsertColumns)
	for i, t := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * ticketInsertColumns
		sb.WriteString("(")
		for c := 1; c <= ticketInsertColumns; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+c)
		}
		sb.WriteString(")")
		args = append(args, t.ID, t.Code, t.Name, t.Surname, t.EventID, t.Used, t.UsedAt, t.CreatedAt, t.UpdatedAt)
	}
	sb.WriteString(` ON CONFLICT DO NOTHING RETURNING id`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{}, len(chunk))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// GetByID retrieves a ticket by ID
func (r *PostgresTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_id", id))

	if !validID(id) {
		return nil, domain.ErrTicketNotFound
	}

	return r.getOne(ctx, span, ticketSelect+` WHERE t.id = $1`, id)
}

// GetByCode retrieves a ticket by its exact code
func (r *PostgresTicketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_code")
	defer span.End()

	span.SetAttributes(attribute.String("code", code))

	return r.getOne(ctx, span, ticketSelect+` WHERE t.code = $1`, code)
}

func (r *PostgresTicketRepository) getOne(ctx context.Context, span trace.Span, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return ticket, nil
}

// ExistsByCode checks whether any ticket holds code, ignoring case
func (r *PostgresTicketRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.exists_by_code")
	defer span.End()

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tickets WHERE UPPER(code) = UPPER($1))`, code).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check ticket code: %w", err)
	}

	span.SetAttributes(attribute.Bool("exists", exists))
	span.SetStatus(codes.Ok, "")
	return exists, nil
}

// Update applies holder-detail changes
func (r *PostgresTicketRepository) Update(ctx context.Context, id string, update *domain.TicketUpdate, now time.Time) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.update")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_id", id))

	if !validID(id) {
		return nil, domain.ErrTicketNotFound
	}

	var updatedID string
	err := r.pool.QueryRow(ctx, `
		UPDATE tickets SET
			name = COALESCE($2, name),
			surname = COALESCE($3, surname),
			event_id = COALESCE($4::uuid, event_id),
			updated_at = $5
		WHERE id = $1
		RETURNING id`,
		id, update.Name, update.Surname, update.EventID, now,
	).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTicketNotFound
		}
		if database.IsForeignKeyViolation(err) {
			span.SetStatus(codes.Error, "event not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	return r.getOne(ctx, span, ticketSelect+` WHERE t.id = $1`, id)
}

// MarkUsed transitions an unused ticket to used in a single conditional update
func (r *PostgresTicketRepository) MarkUsed(ctx context.Context, id string, at time.Time) (*domain.Ticket, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.mark_used")
	defer span.End()

	return r.transition(ctx, span, id, markUsedStmt, true, at)
}

// MarkUnused transitions a used ticket back to unused
func (r *PostgresTicketRepository) MarkUnused(ctx context.Context, id string, now time.Time) (*domain.Ticket, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.mark_unused")
	defer span.End()

	return r.transition(ctx, span, id, markUnusedStmt, false, now)
}

// transition runs the guarded update. The returned row is the state this
// call wrote. When the guard fails, the stored row must already be in the
// target state; if a concurrent toggle moved it back, the update is tried
// again.
func (r *PostgresTicketRepository) transition(ctx context.Context, span trace.Span, id, stmt string, target bool, at time.Time) (*domain.Ticket, bool, error) {
	span.SetAttributes(attribute.String("ticket_id", id))

	if !validID(id) {
		return nil, false, domain.ErrTicketNotFound
	}

	for round := 1; round <= maxTransitionRounds; round++ {
		ticket, err := scanTicket(r.pool.QueryRow(ctx, stmt, id, at))
		if err == nil {
			span.SetAttributes(attribute.Bool("transitioned", true), attribute.Int("rounds", round))
			span.SetStatus(codes.Ok, "")
			return ticket, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, false, fmt.Errorf("failed to update ticket state: %w", err)
		}

		current, err := r.getOne(ctx, span, ticketSelect+` WHERE t.id = $1`, id)
		if err != nil {
			return nil, false, err
		}
		if current.Used == target {
			span.SetAttributes(attribute.Bool("transitioned", false), attribute.Int("rounds", round))
			return current, false, nil
		}
	}

	span.SetStatus(codes.Error, "state changed concurrently")
	return nil, false, domain.ErrTicketStateChanged
}

// Delete deletes a ticket by ID
func (r *PostgresTicketRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.delete")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_id", id))

	if !validID(id) {
		return domain.ErrTicketNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func buildTicketWhere(filter *domain.TicketFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.EventID != nil {
		if !validID(*filter.EventID) {
			return " WHERE FALSE", nil
		}
		args = append(args, *filter.EventID)
		conds = append(conds, fmt.Sprintf("t.event_id = $%d", len(args)))
	}
	if filter.Used != nil {
		args = append(args, *filter.Used)
		conds = append(conds, fmt.Sprintf("t.used = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(t.code ILIKE $%d OR t.name ILIKE $%d OR t.surname ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List lists tickets matching filter
func (r *PostgresTicketRepository) List(ctx context.Context, filter *domain.TicketFilter) ([]*domain.Ticket, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.list")
	defer span.End()

	where, args := buildTicketWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t`+where, args...).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	n := len(args)
	query := ticketSelect + where + fmt.Sprintf(` ORDER BY t.created_at DESC, t.id LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0, filter.Limit)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(tickets)))
	span.SetStatus(codes.Ok, "")
	return tickets, total, nil
}

// CountByEvent counts tickets owned by an event
func (r *PostgresTicketRepository) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.count_by_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if !validID(eventID) {
		return 0, nil
	}

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE event_id = $1`, eventID).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return count, nil
}

// Stats counts used and total tickets, optionally scoped to one event
func (r *PostgresTicketRepository) Stats(ctx context.Context, eventID *string) (*domain.TicketStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.stats")
	defer span.End()

	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE used) FROM tickets`
	var args []any
	if eventID != nil {
		if !validID(*eventID) {
			return domain.NewTicketStats(0, 0), nil
		}
		query += ` WHERE event_id = $1`
		args = append(args, *eventID)
	}

	var total, used int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total, &used); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to compute ticket stats: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return domain.NewTicketStats(total, used), nil
}
