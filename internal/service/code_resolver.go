package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/retry"
)

// DefaultCodeMaxAttempts bounds code generation per ticket
const DefaultCodeMaxAttempts = 10

// CodeChecker reports whether a code is already taken
type CodeChecker interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// CodeResolver produces ticket codes that are unique in the store.
// The existence check is a fast path only; the store's unique index
// decides, and a duplicate on insert spends another attempt.
type CodeResolver struct {
	checker     CodeChecker
	generator   *domain.CodeGenerator
	maxAttempts int
	metrics     Metrics
}

// NewCodeResolver creates a new CodeResolver
func NewCodeResolver(checker CodeChecker, generator *domain.CodeGenerator, maxAttempts int, metrics Metrics) *CodeResolver {
	if generator == nil {
		generator = domain.NewCodeGenerator(nil)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeMaxAttempts
	}
	if metrics == nil {
		metrics = NoOpMetrics()
	}
	return &CodeResolver{
		checker:     checker,
		generator:   generator,
		maxAttempts: maxAttempts,
		metrics:     metrics,
	}
}

// MaxAttempts returns the per-ticket attempt budget
func (r *CodeResolver) MaxAttempts() int {
	return r.maxAttempts
}

// CodeBudget is what one ticket may still spend on codes. Every resolver
// call made for the same ticket must share it.
type CodeBudget struct {
	remaining int
}

// NewBudget returns a full per-ticket budget
func (r *CodeResolver) NewBudget() *CodeBudget {
	return &CodeBudget{remaining: r.maxAttempts}
}

// Remaining returns the attempts left
func (b *CodeBudget) Remaining() int {
	return b.remaining
}

// Resolve returns a code no ticket currently holds
func (r *CodeResolver) Resolve(ctx context.Context) (string, error) {
	return r.ResolveWithin(ctx, r.NewBudget(), nil)
}

// ResolveWithin is Resolve drawing from budget. A code reject reports
// true for is treated as taken without asking the store.
func (r *CodeResolver) ResolveWithin(ctx context.Context, budget *CodeBudget, reject func(code string) bool) (string, error) {
	var code string
	err := r.run(ctx, budget, func(ctx context.Context) error {
		candidate, err := r.candidate(ctx, reject)
		if err != nil {
			return err
		}
		code = candidate
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// CreateWithUniqueCode builds and inserts a ticket, drawing a new code
// whenever the check or the insert reports it taken
func (r *CodeResolver) CreateWithUniqueCode(
	ctx context.Context,
	build func(code string) *domain.Ticket,
	insert func(ctx context.Context, ticket *domain.Ticket) error,
) (*domain.Ticket, error) {
	return r.CreateWithin(ctx, r.NewBudget(), build, insert)
}

// CreateWithin is CreateWithUniqueCode drawing from budget
func (r *CodeResolver) CreateWithin(
	ctx context.Context,
	budget *CodeBudget,
	build func(code string) *domain.Ticket,
	insert func(ctx context.Context, ticket *domain.Ticket) error,
) (*domain.Ticket, error) {
	var created *domain.Ticket
	err := r.run(ctx, budget, func(ctx context.Context) error {
		code, err := r.candidate(ctx, nil)
		if err != nil {
			return err
		}
		ticket := build(code)
		if err := insert(ctx, ticket); err != nil {
			if errors.Is(err, domain.ErrDuplicateCode) {
				r.metrics.CodeCollision()
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		}
		created = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// candidate generates one code and checks it against reject, then the store
func (r *CodeResolver) candidate(ctx context.Context, reject func(code string) bool) (string, error) {
	code, err := r.generator.Generate()
	if err != nil {
		return "", retry.Permanent(err)
	}
	if reject != nil && reject(code) {
		r.metrics.CodeCollision()
		return "", retry.Retryable(domain.ErrDuplicateCode)
	}
	exists, err := r.checker.ExistsByCode(ctx, code)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to check code: %w", err))
	}
	if exists {
		r.metrics.CodeCollision()
		return "", retry.Retryable(domain.ErrDuplicateCode)
	}
	return code, nil
}

func (r *CodeResolver) run(ctx context.Context, budget *CodeBudget, op retry.Operation) error {
	if budget.remaining < 1 {
		return domain.ErrExhaustedRetries
	}
	result := retry.Do(ctx, retry.Bounded(budget.remaining), op)
	budget.remaining -= result.Attempts
	switch {
	case result.Err == nil:
		return nil
	case errors.Is(result.Err, retry.ErrMaxRetriesExceeded):
		return domain.ErrExhaustedRetries
	case errors.Is(result.Err, retry.ErrContextCanceled):
		return ctx.Err()
	default:
		return result.Err
	}
}
