// Package retry runs operations under a bounded attempt budget, either
// back to back or with jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

var (
	// ErrMaxRetriesExceeded means every attempt in the budget failed
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	// ErrContextCanceled means the context ended before the budget did
	ErrContextCanceled = errors.New("context canceled during retry")
)

// Config contains retry configuration
type Config struct {
	// MaxRetries counts attempts after the first; 0 means a single attempt
	MaxRetries int
	// InitialInterval is the first backoff wait (default: 1s)
	InitialInterval time.Duration
	// MaxInterval caps any single wait (default: 30s)
	MaxInterval time.Duration
	// Multiplier grows the wait after each failure (default: 2.0)
	Multiplier float64
	// JitterFactor spreads each wait by up to this fraction either way
	JitterFactor float64
	// Immediate retries without waiting; interval settings are ignored
	Immediate bool
	// OnRetry, if set, runs before each retry with the failed attempt
	// number, its error and the wait about to happen
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig backs off 1s, 2s, 4s, 8s, 16s with 10% jitter
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Bounded allows at most maxAttempts attempts back to back, for retries
// that race a competing writer rather than an unavailable dependency.
func Bounded(maxAttempts int) *Config {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Config{
		MaxRetries: maxAttempts - 1,
		Immediate:  true,
	}
}

// withDefaults returns a copy with zero values filled in
func (c Config) withDefaults() *Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	c.JitterFactor = math.Min(math.Max(c.JitterFactor, 0), 1)
	return &c
}

// wait returns how long to pause after the given zero-based failed attempt
func (c *Config) wait(attempt int) time.Duration {
	if c.Immediate {
		return 0
	}
	d := float64(c.InitialInterval) * math.Pow(c.Multiplier, float64(attempt))
	if c.JitterFactor > 0 {
		d += (rand.Float64()*2 - 1) * d * c.JitterFactor
	}
	d = math.Min(d, float64(c.MaxInterval))
	if d < 0 {
		d = float64(c.InitialInterval)
	}
	return time.Duration(d)
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks an error as expected to clear on another attempt.
// Unmarked errors are retried as well.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// PermanentError stops the retry loop immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks an error as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result describes how a retried operation ended
type Result struct {
	// Err is nil on success, the unwrapped error for a permanent failure,
	// or one of ErrMaxRetriesExceeded and ErrContextCanceled
	Err error
	// Attempts counts calls to the operation
	Attempts int
	// TotalDuration includes waits
	TotalDuration time.Duration
	// LastError is the error returned by the final attempt
	LastError error
}

// Retrier runs operations under one Config
type Retrier struct {
	config *Config
}

// New creates a Retrier; a nil config means DefaultConfig
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	return &Retrier{config: config.withDefaults()}
}

// Do calls op until it succeeds, returns a permanent error, the budget
// runs out or ctx ends
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	start := time.Now()
	res := &Result{}
	finish := func(err error) *Result {
		res.Err = err
		res.TotalDuration = time.Since(start)
		return res
	}

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return finish(ErrContextCanceled)
		}

		res.Attempts = attempt + 1
		err := op(ctx)
		if err == nil {
			return finish(nil)
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			res.LastError = perm.Err
			return finish(perm.Err)
		}
		res.LastError = err

		if attempt >= r.config.MaxRetries {
			return finish(ErrMaxRetriesExceeded)
		}

		wait := r.config.wait(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt+1, err, wait)
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return finish(ErrContextCanceled)
		case <-timer.C:
		}
	}
}

// Do is shorthand for New(config).Do(ctx, op)
func Do(ctx context.Context, config *Config, op Operation) *Result {
	return New(config).Do(ctx, op)
}
