package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/cenkalti/backoff"
	"github.com/uber-go/tally"
)

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }

func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as never retryable under DefaultRetryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

// IsPermanent returns true if err, or any error it wraps, was marked with
// Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// DefaultRetryable retries every error except permanent ones and
// cancellation of the caller's context.
func DefaultRetryable(err error) bool {
	if IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// Outcome is the result of running an operation through an Executor. Err is
// the last error observed and nil on success.
type Outcome[T any] struct {
	Value    T
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// Success returns true if the operation eventually succeeded.
func (o Outcome[T]) Success() bool {
	return o.Err == nil
}

type runOptions struct {
	retryable  func(error) bool
	onRetry    func(attempt int, err error, delay time.Duration)
	maxRetries int
}

// Option overrides the executor defaults for a single Run.
type Option func(*runOptions)

// WithRetryable sets the predicate deciding whether an error is retried.
func WithRetryable(f func(error) bool) Option {
	return func(o *runOptions) { o.retryable = f }
}

// WithOnRetry registers a callback invoked after each failed attempt which
// will be retried, with the delay about to be slept.
func WithOnRetry(f func(attempt int, err error, delay time.Duration)) Option {
	return func(o *runOptions) { o.onRetry = f }
}

// WithMaxRetries overrides the configured number of retries.
func WithMaxRetries(n int) Option {
	return func(o *runOptions) { o.maxRetries = n }
}

// Executor runs operations with exponential backoff between attempts. It is
// safe for concurrent use; each Run keeps its own backoff state and only
// blocks the calling goroutine.
type Executor struct {
	config Config
	stats  tally.Scope
	clk    clock.Clock
}

// NewExecutor creates a new Executor.
func NewExecutor(config Config, stats tally.Scope, clk clock.Clock) *Executor {
	return &Executor{
		config: config.ApplyDefaults(),
		stats:  stats.SubScope("backoff"),
		clk:    clk,
	}
}

// Config returns the policy of e with defaults applied.
func (e *Executor) Config() Config {
	return e.config
}

// Do runs op through e, discarding any value.
func (e *Executor) Do(ctx context.Context, op func(context.Context) error, opts ...Option) Outcome[struct{}] {
	return Run(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
}

// Run invokes op until it succeeds, returns a non-retryable error, or the retry
// budget is spent, so op is attempted at most MaxRetries+1 times. Run never
// panics on behalf of op: panics are recovered and treated as errors.
func Run[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error), opts ...Option) Outcome[T] {
	o := runOptions{
		retryable:  DefaultRetryable,
		onRetry:    func(int, error, time.Duration) {},
		maxRetries: e.config.MaxRetries,
	}
	for _, opt := range opts {
		opt(&o)
	}

	start := e.clk.Now()
	b := e.newBackOff()

	var out Outcome[T]
	for attempt := 1; ; attempt++ {
		out.Attempts = attempt
		v, err := safeCall(ctx, op)
		if err == nil {
			out.Value = v
			out.Err = nil
			break
		}
		out.Err = err
		if attempt > o.maxRetries || !o.retryable(err) {
			break
		}
		delay := b.NextBackOff()
		o.onRetry(attempt, err, delay)
		e.stats.Counter("retries").Inc(1)
		if serr := e.sleep(ctx, delay); serr != nil {
			out.Err = fmt.Errorf("%w (retry aborted: %s)", err, serr)
			break
		}
	}
	out.Elapsed = e.clk.Now().Sub(start)
	if !out.Success() {
		e.stats.Counter("exhausted").Inc(1)
	}
	return out
}

func (e *Executor) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.config.InitialDelay
	b.MaxInterval = e.config.MaxDelay
	b.Multiplier = e.config.Multiplier
	b.RandomizationFactor = e.config.randomizationFactor()
	b.MaxElapsedTime = 0
	b.Clock = e.clk
	b.Reset()
	return b
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	t := e.clk.Timer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func safeCall[T any](ctx context.Context, op func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return op(ctx)
}
