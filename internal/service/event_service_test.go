package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
)

func strPtr(s string) *string { return &s }

func TestEventService_CreateEvent(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.CreateEventRequest
		wantErr string
	}{
		{name: "valid", req: dto.CreateEventRequest{Name: "Summer Fest", StartDate: "2025-01-01", EndDate: "2025-01-02"}},
		{name: "same day", req: dto.CreateEventRequest{Name: "Gig", StartDate: "2025-01-01", EndDate: "2025-01-01"}, wantErr: "End date must be after start date"},
		{name: "missing name", req: dto.CreateEventRequest{Name: " ", StartDate: "2025-01-01", EndDate: "2025-01-02"}, wantErr: "Event name is required"},
		{name: "reversed dates", req: dto.CreateEventRequest{Name: "Gig", StartDate: "2025-01-02", EndDate: "2025-01-01"}, wantErr: "End date must be after start date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			event, err := env.events.CreateEvent(context.Background(), &tt.req)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, domain.IsValidationError(err))
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, event.ID)
			assert.True(t, event.CreatedAt.Equal(testStart))
		})
	}
}

func TestEventService_GetEventCountsTickets(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(t, "Summer Fest")
	env.createTicket(t, event.ID, "A", "B")
	env.createTicket(t, event.ID, "C", "D")

	got, err := env.events.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TicketCount)
	assert.Equal(t, "Summer Fest", got.Event.Name)
}

func TestEventService_UpdateEventChecksMergedRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.createEvent(t, "Summer Fest")

	// Only the start moves, past the stored end
	_, err := env.events.UpdateEvent(ctx, event.ID, &dto.UpdateEventRequest{StartDate: strPtr("2025-02-01")})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	updated, err := env.events.UpdateEvent(ctx, event.ID, &dto.UpdateEventRequest{
		Name:    strPtr("Winter Fest"),
		EndDate: strPtr("2025-01-05"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Winter Fest", updated.Name)
	assert.Equal(t, "2025-01-01", updated.StartDate.Format(domain.DateLayout))
	assert.Equal(t, "2025-01-05", updated.EndDate.Format(domain.DateLayout))
}

func TestEventService_DeleteEventWithTicketsIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.createEvent(t, "Summer Fest")
	ticket := env.createTicket(t, event.ID, "A", "B")

	err := env.events.DeleteEvent(ctx, event.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEventHasTickets))
	assert.Equal(t, "cannot delete event: 1 ticket still belongs to it", err.Error())

	var blocked *domain.EventHasTicketsError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, int64(1), blocked.TicketCount)

	_, err = env.events.GetEvent(ctx, event.ID)
	assert.NoError(t, err)
	_, err = env.ticketSvc.GetTicket(ctx, ticket.ID)
	assert.NoError(t, err)

	require.NoError(t, env.ticketSvc.DeleteTicket(ctx, ticket.ID))
	require.NoError(t, env.events.DeleteEvent(ctx, event.ID))

	_, err = env.events.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventService_ListEventsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.createEvent(t, "First")
	env.clock.Advance(1)
	env.createEvent(t, "Second")

	events, total, err := env.events.ListEvents(context.Background(), &dto.EventListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Second", events[0].Event.Name)
}
