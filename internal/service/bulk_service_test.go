package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
)

func TestBulkService_PartialSuccess(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(t, "Summer Fest")

	resp, err := env.bulk.IssueBulk(context.Background(), event.ID, []dto.BulkTicketRow{
		{Name: "A", Surname: "B"},
		{Name: "", Surname: "C"},
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Tickets, 1)
	assert.Equal(t, "A", resp.Tickets[0].Name)
	require.NotNil(t, resp.Tickets[0].Event)
	assert.Equal(t, "Summer Fest", resp.Tickets[0].Event.Name)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)
	assert.Equal(t, "Name is required", resp.Errors[0].Error)
	assert.Equal(t, "C", resp.Errors[0].Data.Surname)
}

func TestBulkService_ReportsInputIndexes(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(t, "Summer Fest")

	rows := make([]dto.BulkTicketRow, 10)
	for i := range rows {
		rows[i] = dto.BulkTicketRow{Name: "Holder", Surname: "Row"}
	}
	rows[0].Name = "   "
	rows[4].Surname = ""
	rows[9] = dto.BulkTicketRow{}

	resp, err := env.bulk.IssueBulk(context.Background(), event.ID, rows)
	require.NoError(t, err)

	assert.Equal(t, 7, resp.Created)
	assert.Equal(t, 3, resp.Failed)
	require.Len(t, resp.Errors, 3)
	assert.Equal(t, 0, resp.Errors[0].Index)
	assert.Equal(t, "Name is required", resp.Errors[0].Error)
	assert.Equal(t, 4, resp.Errors[1].Index)
	assert.Equal(t, "Surname is required", resp.Errors[1].Error)
	assert.Equal(t, 9, resp.Errors[2].Index)
	assert.Equal(t, "Name is required, Surname is required", resp.Errors[2].Error)

	codes := make(map[string]bool)
	for _, tk := range resp.Tickets {
		assert.False(t, codes[tk.Code])
		codes[tk.Code] = true
	}

	count, err := env.tickets.CountByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestBulkService_NothingCreated(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(t, "Summer Fest")

	resp, err := env.bulk.IssueBulk(context.Background(), event.ID, []dto.BulkTicketRow{{}, {Name: "A"}})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, 0, resp.Created)
	assert.Empty(t, resp.Tickets)
	assert.Len(t, resp.Errors, 2)
}

func TestBulkService_MissingEventFailsWholeBatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.bulk.IssueBulk(context.Background(), "00000000-0000-0000-0000-000000000000", []dto.BulkTicketRow{{Name: "A", Surname: "B"}})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestBulkService_RejectsEmptyAndOversizedRequests(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(t, "Summer Fest")

	_, err := env.bulk.IssueBulk(context.Background(), event.ID, nil)
	assert.True(t, domain.IsValidationError(err))

	rows := make([]dto.BulkTicketRow, 101)
	_, err = env.bulk.IssueBulk(context.Background(), event.ID, rows)
	assert.True(t, domain.IsValidationError(err))
}

func TestBulkService_ReissuesRowsSkippedByBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.createEvent(t, "Summer Fest")

	var stolen string
	env.tickets.CreateBatchFunc = func(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error) {
		// Another writer takes the second row's code between resolve and insert
		stolen = tickets[1].Code
		eventID := event.ID
		require.NoError(t, env.tickets.Create(ctx, domain.NewTicket(stolen, "Other", "Writer", &eventID, testStart)))
		return env.tickets.TicketRepository.CreateBatch(ctx, tickets)
	}

	resp, err := env.bulk.IssueBulk(ctx, event.ID, []dto.BulkTicketRow{
		{Name: "A", Surname: "One"},
		{Name: "B", Surname: "Two"},
		{Name: "C", Surname: "Three"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Created)
	assert.Equal(t, 0, resp.Failed)
	assert.NotNil(t, resp.Errors)
	require.Len(t, resp.Tickets, 3)
	assert.Equal(t, "B", resp.Tickets[1].Name)
	assert.NotEqual(t, stolen, resp.Tickets[1].Code)

	count, err := env.tickets.CountByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestBulkService_FallsBackToSingleInserts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.createEvent(t, "Summer Fest")

	env.tickets.CreateBatchFunc = func(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error) {
		return nil, errors.New("statement too large")
	}

	resp, err := env.bulk.IssueBulk(ctx, event.ID, []dto.BulkTicketRow{
		{Name: "A", Surname: "One"},
		{Name: "B", Surname: "Two"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Created)

	count, err := env.tickets.CountByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestBulkService_ExhaustedCodesFailOnlyThatRow(t *testing.T) {
	// Every candidate is AAAAAAAA, so only the first row can get a code
	gen := domain.NewCodeGenerator(&fixedCodeReader{values: []byte{0}})
	env := newTestEnvWithGenerator(t, gen)
	event := env.createEvent(t, "Summer Fest")

	resp, err := env.bulk.IssueBulk(context.Background(), event.ID, []dto.BulkTicketRow{
		{Name: "A", Surname: "One"},
		{Name: "B", Surname: "Two"},
		{Name: "C", Surname: "Three"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, repeatedCode(0), resp.Tickets[0].Code)
	require.Len(t, resp.Errors, 2)
	for i, rowErr := range resp.Errors {
		assert.Equal(t, i+1, rowErr.Index)
		assert.Equal(t, domain.ErrExhaustedRetries.Error(), rowErr.Error)
	}
}

func TestBulkService_InBatchCollisionsSpendTheRowBudget(t *testing.T) {
	// Candidates alternate AAAAAAAA and BBBBBBBB; AAAAAAAA is already stored
	gen := domain.NewCodeGenerator(&fixedCodeReader{values: []byte{0, 1}})
	env := newTestEnvWithGenerator(t, gen)
	ctx := context.Background()
	event := env.createEvent(t, "Summer Fest")
	require.NoError(t, env.store.Tickets().Create(ctx, domain.NewTicket(repeatedCode(0), "Early", "Bird", nil, testStart)))

	var checks atomic.Int32
	env.tickets.ExistsByCodeFunc = func(ctx context.Context, code string) (bool, error) {
		checks.Add(1)
		return env.store.Tickets().ExistsByCode(ctx, code)
	}

	resp, err := env.bulk.IssueBulk(ctx, event.ID, []dto.BulkTicketRow{
		{Name: "A", Surname: "One"},
		{Name: "B", Surname: "Two"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, repeatedCode(1), resp.Tickets[0].Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)
	assert.Equal(t, domain.ErrExhaustedRetries.Error(), resp.Errors[0].Error)

	// Row 0 checks twice. Row 1 spends its ten attempts alternating between
	// a stored code (checked) and row 0's code (rejected locally).
	rowOneChecks := checks.Load() - 2
	assert.LessOrEqual(t, rowOneChecks, int32(DefaultCodeMaxAttempts))
	assert.Equal(t, int32(5), rowOneChecks)
}

func TestBulkService_ReissueUsesWhatIsLeftOfTheBudget(t *testing.T) {
	// Nine taken checks and one success spend the whole budget, so the row
	// the batch skipped cannot draw another code
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.createEvent(t, "Summer Fest")

	var checks atomic.Int32
	env.tickets.ExistsByCodeFunc = func(ctx context.Context, code string) (bool, error) {
		return checks.Add(1) <= 9, nil
	}
	env.tickets.CreateBatchFunc = func(ctx context.Context, tickets []*domain.Ticket) ([]*domain.Ticket, error) {
		return nil, nil
	}

	resp, err := env.bulk.IssueBulk(ctx, event.ID, []dto.BulkTicketRow{{Name: "A", Surname: "One"}})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Created)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, domain.ErrExhaustedRetries.Error(), resp.Errors[0].Error)
	assert.Equal(t, int32(10), checks.Load())
}

func TestBulkService_ImportCSV(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(t, "Summer Fest")

	csv := "\ufeffFirst Name,Last Name,Email\nJohn,Doe,j@example.com\n,Smith,\nJane,Roe,\n"
	resp, err := env.bulk.ImportCSV(context.Background(), event.ID, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Created)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)
	assert.Equal(t, "Name is required", resp.Errors[0].Error)
}

func TestBulkService_ImportCSVRejectsBadFile(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(t, "Summer Fest")

	_, err := env.bulk.ImportCSV(context.Background(), event.ID, strings.NewReader("email\nx@example.com\n"))
	assert.True(t, domain.IsValidationError(err))
	assert.Equal(t, "CSV must include name and surname columns", err.Error())
}
