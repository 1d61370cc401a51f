package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
)

// countingChecker answers existence checks from a func and counts calls
type countingChecker struct {
	calls  atomic.Int32
	exists func(n int32, code string) (bool, error)
}

func (c *countingChecker) ExistsByCode(ctx context.Context, code string) (bool, error) {
	n := c.calls.Add(1)
	return c.exists(n, code)
}

func TestCodeResolver_Resolve(t *testing.T) {
	checker := &countingChecker{exists: func(int32, string) (bool, error) { return false, nil }}
	resolver := NewCodeResolver(checker, nil, 10, nil)

	code, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, domain.IsValidCode(code), "code %q", code)
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestCodeResolver_RetriesTakenCodes(t *testing.T) {
	checker := &countingChecker{exists: func(n int32, _ string) (bool, error) { return n < 4, nil }}
	resolver := NewCodeResolver(checker, nil, 10, nil)

	_, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(4), checker.calls.Load())
}

func TestCodeResolver_Exhausted(t *testing.T) {
	checker := &countingChecker{exists: func(int32, string) (bool, error) { return true, nil }}
	resolver := NewCodeResolver(checker, nil, 10, nil)

	_, err := resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, domain.ErrExhaustedRetries)
	assert.Equal(t, "failed to generate unique ticket code", err.Error())
	assert.Equal(t, int32(10), checker.calls.Load())
}

func TestCodeResolver_CheckErrorIsNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	checker := &countingChecker{exists: func(int32, string) (bool, error) { return false, boom }}
	resolver := NewCodeResolver(checker, nil, 10, nil)

	_, err := resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestCodeResolver_CallsShareOneBudget(t *testing.T) {
	checker := &countingChecker{exists: func(n int32, _ string) (bool, error) { return n <= 3, nil }}
	resolver := NewCodeResolver(checker, nil, 10, nil)
	budget := resolver.NewBudget()

	_, err := resolver.ResolveWithin(context.Background(), budget, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, budget.Remaining())

	var inserts int
	_, err = resolver.CreateWithin(context.Background(), budget,
		func(code string) *domain.Ticket { return domain.NewTicket(code, "A", "B", nil, testStart) },
		func(context.Context, *domain.Ticket) error {
			inserts++
			return domain.ErrDuplicateCode
		},
	)
	assert.ErrorIs(t, err, domain.ErrExhaustedRetries)
	assert.Equal(t, 6, inserts)
	assert.Equal(t, 0, budget.Remaining())
	assert.Equal(t, int32(10), checker.calls.Load())

	_, err = resolver.ResolveWithin(context.Background(), budget, nil)
	assert.ErrorIs(t, err, domain.ErrExhaustedRetries)
	assert.Equal(t, int32(10), checker.calls.Load())
}

func TestCodeResolver_RejectedCodesSkipTheStore(t *testing.T) {
	gen := domain.NewCodeGenerator(&fixedCodeReader{values: []byte{0, 0, 2}})
	checker := &countingChecker{exists: func(int32, string) (bool, error) { return false, nil }}
	resolver := NewCodeResolver(checker, gen, 10, nil)
	budget := resolver.NewBudget()

	code, err := resolver.ResolveWithin(context.Background(), budget, func(code string) bool {
		return code == repeatedCode(0)
	})
	require.NoError(t, err)
	assert.Equal(t, repeatedCode(2), code)
	assert.Equal(t, int32(1), checker.calls.Load())
	assert.Equal(t, 7, budget.Remaining())
}

func TestCodeResolver_InsertDuplicatesShareTheBudget(t *testing.T) {
	// First five checks report taken; every insert then collides
	checker := &countingChecker{exists: func(n int32, _ string) (bool, error) { return n <= 5, nil }}
	resolver := NewCodeResolver(checker, nil, 10, nil)

	var inserts int
	_, err := resolver.CreateWithUniqueCode(context.Background(),
		func(code string) *domain.Ticket { return domain.NewTicket(code, "A", "B", nil, testStart) },
		func(ctx context.Context, ticket *domain.Ticket) error {
			inserts++
			return domain.ErrDuplicateCode
		},
	)

	assert.ErrorIs(t, err, domain.ErrExhaustedRetries)
	assert.Equal(t, int32(10), checker.calls.Load())
	assert.Equal(t, 5, inserts)
}

func TestCodeResolver_InsertDuplicateThenSuccess(t *testing.T) {
	checker := &countingChecker{exists: func(int32, string) (bool, error) { return false, nil }}
	resolver := NewCodeResolver(checker, nil, 10, nil)

	var codes []string
	ticket, err := resolver.CreateWithUniqueCode(context.Background(),
		func(code string) *domain.Ticket { return domain.NewTicket(code, "A", "B", nil, testStart) },
		func(ctx context.Context, ticket *domain.Ticket) error {
			codes = append(codes, ticket.Code)
			if len(codes) < 3 {
				return domain.ErrDuplicateCode
			}
			return nil
		},
	)

	require.NoError(t, err)
	assert.Len(t, codes, 3)
	assert.Equal(t, codes[2], ticket.Code)
}

func TestCodeResolver_InsertFailureIsPermanent(t *testing.T) {
	checker := &countingChecker{exists: func(int32, string) (bool, error) { return false, nil }}
	resolver := NewCodeResolver(checker, nil, 10, nil)

	_, err := resolver.CreateWithUniqueCode(context.Background(),
		func(code string) *domain.Ticket { return domain.NewTicket(code, "A", "B", nil, testStart) },
		func(ctx context.Context, ticket *domain.Ticket) error { return domain.ErrEventNotFound },
	)

	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestCodeResolver_UniqueUnderConcurrentCreation(t *testing.T) {
	store := repository.NewMemoryStore()
	tickets := store.Tickets()
	// Five possible codes for twenty writers forces collisions at insert time
	gen := domain.NewCodeGenerator(&fixedCodeReader{values: []byte{0, 1, 2, 3, 4}})
	resolver := NewCodeResolver(tickets, gen, 10, nil)

	const writers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   []*domain.Ticket
		exhausted int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := resolver.CreateWithUniqueCode(context.Background(),
				func(code string) *domain.Ticket { return domain.NewTicket(code, "A", "B", nil, testStart) },
				tickets.Create,
			)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrExhaustedRetries)
				exhausted++
				return
			}
			created = append(created, ticket)
		}()
	}
	wg.Wait()

	assert.Equal(t, writers, len(created)+exhausted)
	assert.LessOrEqual(t, len(created), 5)

	seen := make(map[string]bool)
	for _, tk := range created {
		assert.False(t, seen[tk.Code], "duplicate code %s", tk.Code)
		seen[tk.Code] = true
	}

	_, total, err := tickets.List(context.Background(), &domain.TicketFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, len(created), total)
}

func TestCodeResolver_StormWithRealEntropy(t *testing.T) {
	store := repository.NewMemoryStore()
	tickets := store.Tickets()
	resolver := NewCodeResolver(tickets, nil, 10, nil)

	const writers = 200
	var wg sync.WaitGroup
	codes := make(chan string, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := resolver.CreateWithUniqueCode(context.Background(),
				func(code string) *domain.Ticket { return domain.NewTicket(code, "A", "B", nil, testStart) },
				tickets.Create,
			)
			if assert.NoError(t, err) {
				codes <- ticket.Code
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		assert.False(t, seen[code])
		seen[code] = true
	}
	assert.Len(t, seen, writers)
}
