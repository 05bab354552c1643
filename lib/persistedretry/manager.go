package persistedretry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/paddock/raceline/lib/notify"
	"github.com/paddock/raceline/utils/log"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
)

// Result summarizes one recovery pass.
type Result struct {
	Processed          int `json:"processed"`
	Recovered          int `json:"recovered"`
	Failed             int `json:"failed"`
	MaxRetriesExceeded int `json:"max_retries_exceeded"`
}

// Manager drives recovery of logged failures.
type Manager interface {
	// ProcessFailures claims up to limit due records and re-runs each one.
	ProcessFailures(ctx context.Context, limit int) (Result, error)

	// Retry forces an immediate retry of record id regardless of its
	// next_retry_at.
	Retry(ctx context.Context, id int64) (*Failure, error)

	// Run calls ProcessFailures every interval until ctx is done or, if
	// maxIterations is positive, maxIterations passes have run.
	Run(ctx context.Context, interval time.Duration, maxIterations int) error
}

type manager struct {
	config   Config
	stats    tally.Scope
	store    Store
	invokers map[JobType]Invoker
	notifier notify.Notifier
	clk      clock.Clock
}

// NewManager creates a new Manager. invokers must cover every JobType.
// Records left in retrying by a previous process are returned to pending.
func NewManager(
	config Config,
	stats tally.Scope,
	store Store,
	invokers map[JobType]Invoker,
	notifier notify.Notifier,
	clk clock.Clock) (Manager, error) {

	for _, j := range JobTypes() {
		if invokers[j] == nil {
			return nil, fmt.Errorf("no invoker for job type %s", j)
		}
	}
	n, err := store.ResetRetrying()
	if err != nil {
		return nil, fmt.Errorf("reset retrying failures: %s", err)
	}
	if n > 0 {
		log.Infof("Returned %d interrupted failure records to pending", n)
	}
	return &manager{
		config:   config.applyDefaults(),
		stats:    stats.Tagged(map[string]string{"module": "recovery"}),
		store:    store,
		invokers: invokers,
		notifier: notifier,
		clk:      clk,
	}, nil
}

func (m *manager) ProcessFailures(ctx context.Context, limit int) (Result, error) {
	if limit <= 0 {
		limit = m.config.BatchLimit
	}
	defer m.stats.Timer("latency").Start().Stop()

	var res Result
	failures, err := m.store.GetRetryable(limit)
	if err != nil {
		return res, fmt.Errorf("get retryable: %s", err)
	}
	for i, f := range failures {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			m.pause(ctx)
		}
		if _, err := m.store.UpdateStatus(f.ID, StatusRetrying); err != nil {
			// Claimed by a concurrent caller.
			if !errors.Is(err, ErrInvalidTransition) {
				log.With("failure_id", f.ID).Errorf("Error claiming failure: %s", err)
			}
			continue
		}
		status, settled := m.attempt(ctx, f)
		if !settled {
			if ctx.Err() != nil {
				break
			}
			continue
		}
		res.Processed++
		switch status {
		case StatusResolved:
			res.Recovered++
		case StatusMaxRetriesExceeded:
			res.Failed++
			res.MaxRetriesExceeded++
		default:
			res.Failed++
		}
	}
	m.stats.Counter("processed").Inc(int64(res.Processed))
	m.stats.Counter("recovered").Inc(int64(res.Recovered))
	m.stats.Counter("failed").Inc(int64(res.Failed))
	m.stats.Counter("max_retries_exceeded").Inc(int64(res.MaxRetriesExceeded))
	return res, nil
}

func (m *manager) Retry(ctx context.Context, id int64) (*Failure, error) {
	f, err := m.store.UpdateStatus(id, StatusRetrying)
	if err != nil {
		return nil, err
	}
	if _, settled := m.attempt(ctx, f); !settled && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return m.store.Get(id)
}

func (m *manager) Run(ctx context.Context, interval time.Duration, maxIterations int) error {
	if interval <= 0 {
		interval = m.config.Interval
	}
	ticker := m.clk.Ticker(interval)
	defer ticker.Stop()

	for i := 0; maxIterations <= 0 || i < maxIterations; i++ {
		res, err := m.ProcessFailures(ctx, m.config.BatchLimit)
		if err != nil {
			log.Errorf("Error processing failures: %s", err)
		} else if res.Processed > 0 {
			log.Infow("Recovery pass complete",
				"processed", res.Processed,
				"recovered", res.Recovered,
				"failed", res.Failed,
				"max_retries_exceeded", res.MaxRetriesExceeded)
		}
		if maxIterations > 0 && i == maxIterations-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// attempt re-runs the invoker of a record already claimed as retrying and
// settles it. Returns the record's resulting status. If the attempt was cut
// short by ctx, or the outcome could not be stored, the record is returned to
// pending with its retry count unchanged and settled is false.
func (m *manager) attempt(ctx context.Context, f *Failure) (status Status, settled bool) {
	logger := log.With("failure_id", f.ID, "job_type", f.JobType, "entity_id", f.EntityID)

	invokeErr := m.invoke(ctx, f)
	if invokeErr != nil && ctx.Err() != nil {
		logger.Warnf("Retry abandoned: %s", ctx.Err())
		m.release(f)
		return StatusPending, false
	}
	if invokeErr == nil {
		if _, err := m.store.UpdateStatus(f.ID, StatusResolved); err != nil {
			logger.Errorf("Error resolving failure: %s", err)
			m.release(f)
			return StatusPending, false
		}
		logger.Info("Recovered failure")
		m.notifier.Notify(notify.Event{
			Kind:    notify.KindRecovered,
			Title:   fmt.Sprintf("Recovered %s", f.JobType),
			Message: fmt.Sprintf("%s recovered after %d retries", f.EntityID, f.RetryCount+1),
			Fields:  failureFields(f),
		})
		return StatusResolved, true
	}

	updated, err := m.store.IncrementRetryCount(f.ID)
	if err != nil {
		logger.Errorf("Error incrementing retry count: %s", err)
		m.release(f)
		return StatusPending, false
	}
	logger.Warnf("Retry failed (%d/%d): %s", updated.RetryCount, updated.MaxRetries, invokeErr)
	if updated.Status == StatusMaxRetriesExceeded {
		m.notifier.Notify(notify.Event{
			Kind:    notify.KindMaxRetriesExceeded,
			Title:   fmt.Sprintf("Gave up on %s", f.JobType),
			Message: fmt.Sprintf("%s failed %d retries: %s", f.EntityID, updated.RetryCount, invokeErr),
			Fields:  failureFields(updated),
		})
	}
	return updated.Status, true
}

// release returns a claimed record to pending. Records left in retrying are
// otherwise only swept on the next start.
func (m *manager) release(f *Failure) {
	if _, err := m.store.UpdateStatus(f.ID, StatusPending); err != nil {
		log.With("failure_id", f.ID).Errorf("Error returning failure to pending: %s", err)
	}
}

func (m *manager) invoke(ctx context.Context, f *Failure) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	invoker, ok := m.invokers[f.JobType]
	if !ok {
		return fmt.Errorf("no invoker for job type %q", f.JobType)
	}
	return invoker(ctx, f.EntityID)
}

func (m *manager) pause(ctx context.Context) {
	t := m.clk.Timer(m.config.RecordPause)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func failureFields(f *Failure) map[string]string {
	return map[string]string{
		"failure_id":  strconv.FormatInt(f.ID, 10),
		"job_type":    string(f.JobType),
		"entity_type": string(f.EntityType),
		"entity_id":   f.EntityID,
		"retry_count": strconv.Itoa(f.RetryCount),
	}
}
