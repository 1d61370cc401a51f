package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/database"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

const eventColumns = `id, name, start_date, end_date, created_at, updated_at`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	e := &domain.Event{}
	if err := row.Scan(&e.ID, &e.Name, &e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.create")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, name, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Name, event.StartDate, event.EndDate, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrEventNotFound
	}

	event, err := scanEvent(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// List lists events newest first with ticket counts
func (r *PostgresEventRepository) List(ctx context.Context, limit, offset int) ([]*domain.EventWithCount, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list")
	defer span.End()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.name, e.start_date, e.end_date, e.created_at, e.updated_at,
			(SELECT COUNT(*) FROM tickets t WHERE t.event_id = e.id) AS ticket_count
		FROM events e
		ORDER BY e.created_at DESC, e.id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.EventWithCount, 0, limit)
	for rows.Next() {
		e := &domain.Event{}
		item := &domain.EventWithCount{Event: e}
		if err := rows.Scan(&e.ID, &e.Name, &e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt, &item.TicketCount); err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate events: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, total, nil
}

// Update updates an event
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET name = $2, start_date = $3, end_date = $4, updated_at = $5
		WHERE id = $1`,
		event.ID, event.Name, event.StartDate, event.EndDate, event.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete deletes an event by ID
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrEventNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		// A ticket slipped in after the service-level count
		if database.IsForeignKeyViolation(err) {
			var count int64
			_ = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE event_id = $1`, id).Scan(&count)
			span.SetStatus(codes.Error, "event has tickets")
			return &domain.EventHasTicketsError{EventID: id, TicketCount: count}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
