package persistedretry

import (
	"context"
	"errors"
)

// ErrFailureNotFound is returned when a failure record does not exist.
var ErrFailureNotFound = errors.New("failure not found")

// ErrInvalidTransition is returned when a status change is not permitted from
// the record's current status, e.g. when another caller already claimed it.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the failure ledger. Status changes and retry count increments are
// atomic per record.
type Store interface {
	// LogFailure inserts a new pending record due after the first backoff
	// step.
	LogFailure(f NewFailure) (*Failure, error)

	// GetRetryable returns up to limit pending records which are due and
	// still have retry budget, oldest due first.
	GetRetryable(limit int) ([]*Failure, error)

	// UpdateStatus transitions record id to status. Only pending to
	// retrying, and retrying to resolved or pending, are permitted.
	UpdateStatus(id int64, status Status) (*Failure, error)

	// IncrementRetryCount records a failed retry of record id, rescheduling
	// it, or marking it max_retries_exceeded once its budget is spent.
	IncrementRetryCount(id int64) (*Failure, error)

	// ResetRetrying returns every retrying record to pending.
	ResetRetrying() (int, error)

	Get(id int64) (*Failure, error)
	Find(q Query) ([]*Failure, error)
	Stats() (Stats, error)
}

// Invoker re-runs the poller operation for a single entity. Invokers must not
// log new failures: the recovery loop owns the record being retried.
type Invoker func(ctx context.Context, entityID string) error
