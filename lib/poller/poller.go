// Package poller fetches race data from providers and persists it. Every
// poller processes a batch of independent targets: a failed target is
// logged to the failure ledger and never aborts the rest of the batch.
package poller

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/notify"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/provider"
	"github.com/paddock/raceline/lib/tracing"
	"github.com/paddock/raceline/utils/backoff"
	"github.com/paddock/raceline/utils/log"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Store is the subset of the race store pollers write to.
type Store interface {
	UpsertRaces(races []core.Race) error
	UpsertEntries(entries []core.Entry) error
	UpsertResults(results []core.Result) error
	InsertOdds(odds []core.OddsSnapshot) (int, error)
	SetRaceStatus(id string, status core.RaceStatus) error
}

// Config defines poller configuration.
type Config struct {
	// Concurrency is the maximum number of targets of one batch processed
	// at the same time.
	Concurrency int `yaml:"concurrency"`
}

func (c Config) applyDefaults() Config {
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	return c
}

// Result summarizes one poller batch.
type Result struct {
	Collected int `json:"collected"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Pollers groups the poller of every job type.
type Pollers struct {
	Schedule *SchedulePoller
	Entry    *EntryPoller
	Result   *ResultPoller
	Odds     *OddsPoller
}

// New creates every poller over shared dependencies.
func New(
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	executor *backoff.Executor,
	providers *provider.Manager,
	mapper *provider.Mapper,
	store Store,
	ledger persistedretry.Store,
	notifier notify.Notifier) *Pollers {

	b := &base{
		config:    config.applyDefaults(),
		stats:     stats.SubScope("poll"),
		clk:       clk,
		executor:  executor,
		providers: providers,
		mapper:    mapper,
		store:     store,
		ledger:    ledger,
		notifier:  notifier,
	}
	return &Pollers{
		Schedule: &SchedulePoller{b},
		Entry:    &EntryPoller{b},
		Result:   &ResultPoller{b},
		Odds:     &OddsPoller{b},
	}
}

// Invokers returns the recovery dispatch table covering every job type.
func (p *Pollers) Invokers() map[persistedretry.JobType]persistedretry.Invoker {
	return map[persistedretry.JobType]persistedretry.Invoker{
		persistedretry.JobSchedulePoll: p.Schedule.Retry,
		persistedretry.JobEntryPoll:    p.Entry.Retry,
		persistedretry.JobResultPoll:   p.Result.Retry,
		persistedretry.JobOddsPoll:     p.Odds.Retry,
	}
}

type base struct {
	config    Config
	stats     tally.Scope
	clk       clock.Clock
	executor  *backoff.Executor
	providers *provider.Manager
	mapper    *provider.Mapper
	store     Store
	ledger    persistedretry.Store
	notifier  notify.Notifier
}

// job is one poller target: a fetch run through the executor, followed by a
// save of the fetched value.
type job[T any] struct {
	jobType    persistedretry.JobType
	entityType persistedretry.EntityType
	entityID   string
	fetch      func(ctx context.Context) (T, error)
	save       func(v T) (collected, skipped int, err error)
}

// run executes j. If record is set, an exhausted fetch is logged to the
// failure ledger, unless ctx was cancelled. Store errors are never retried
// nor logged to the ledger.
// The returned error is non-nil whenever the target failed.
func run[T any](ctx context.Context, b *base, j job[T], record bool) (Result, error) {
	ctx, end := tracing.StartSpan(ctx, "poll."+string(j.jobType),
		tracing.AttrJobType.String(string(j.jobType)),
		tracing.AttrEntityID.String(j.entityID))
	defer end()

	stats := b.stats.Tagged(map[string]string{"job": string(j.jobType)})
	defer stats.Timer("latency").Start().Stop()

	out := backoff.Run(ctx, b.executor, j.fetch, backoff.WithOnRetry(
		func(attempt int, err error, delay time.Duration) {
			log.With("job_type", j.jobType, "entity_id", j.entityID, "attempt", attempt).
				Debugf("Fetch failed, retrying in %s: %s", delay, err)
		}))
	tracing.SetSpanAttributes(ctx, tracing.AttrAttempts.Int(out.Attempts))
	if !out.Success() && ctx.Err() != nil {
		// The caller gave up on the batch. Nothing is known about the
		// upstream, so the target is neither ledgered nor notified.
		stats.Counter("abandoned").Inc(1)
		log.With("job_type", j.jobType, "entity_id", j.entityID).
			Warnf("Fetch abandoned after %d attempts: %s", out.Attempts, ctx.Err())
		return Result{Errors: 1}, fmt.Errorf("fetch %s: %w", j.entityID, out.Err)
	}
	if !out.Success() {
		tracing.RecordSpanError(ctx, out.Err)
		stats.Counter("errors").Inc(1)
		log.Errorw("Fetch failed",
			"job_type", j.jobType,
			"entity_id", j.entityID,
			"attempts", out.Attempts,
			"error", out.Err)
		if record {
			b.recordFailure(j.jobType, j.entityType, j.entityID, out.Attempts, out.Elapsed, out.Err)
		}
		return Result{Errors: 1}, fmt.Errorf("fetch %s: %w", j.entityID, out.Err)
	}

	collected, skipped, err := j.save(out.Value)
	stats.Counter("skipped").Inc(int64(skipped))
	if err != nil {
		tracing.RecordSpanError(ctx, err)
		stats.Counter("errors").Inc(1)
		log.Errorw("Store failed", "job_type", j.jobType, "entity_id", j.entityID, "error", err)
		b.notifier.Notify(notify.Event{
			Kind:    notify.KindStoreFailure,
			Title:   fmt.Sprintf("Store failed for %s", j.jobType),
			Message: fmt.Sprintf("%s: %s", j.entityID, err),
			Fields: map[string]string{
				"job_type":  string(j.jobType),
				"entity_id": j.entityID,
			},
		})
		return Result{Skipped: skipped, Errors: 1}, fmt.Errorf("store %s: %w", j.entityID, err)
	}
	stats.Counter("collected").Inc(int64(collected))
	return Result{Collected: collected, Skipped: skipped}, nil
}

func (b *base) recordFailure(
	jobType persistedretry.JobType,
	entityType persistedretry.EntityType,
	entityID string,
	attempts int,
	elapsed time.Duration,
	cause error) {

	f, err := b.ledger.LogFailure(persistedretry.NewFailure{
		JobType:      jobType,
		EntityType:   entityType,
		EntityID:     entityID,
		ErrorMessage: cause.Error(),
		Metadata: persistedretry.Metadata{
			"attempts":   attempts,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
	if err != nil {
		log.With("job_type", jobType, "entity_id", entityID).Errorf("Error logging failure: %s", err)
	}
	fields := map[string]string{
		"job_type":  string(jobType),
		"entity_id": entityID,
		"attempts":  strconv.Itoa(attempts),
	}
	if f != nil {
		fields["failure_id"] = strconv.FormatInt(f.ID, 10)
	}
	b.notifier.Notify(notify.Event{
		Kind:    notify.KindIngestionFailure,
		Title:   fmt.Sprintf("%s failed", jobType),
		Message: fmt.Sprintf("%s failed after %d attempts: %s", entityID, attempts, cause),
		Fields:  fields,
	})
}

// batch runs f for every index in [0, n) with bounded concurrency and sums
// the results.
func (b *base) batch(ctx context.Context, n int, f func(ctx context.Context, i int) Result) Result {
	var collected, skipped, errs atomic.Int64

	var g errgroup.Group
	g.SetLimit(b.config.Concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			r := f(ctx, i)
			collected.Add(int64(r.Collected))
			skipped.Add(int64(r.Skipped))
			errs.Add(int64(r.Errors))
			return nil
		})
	}
	g.Wait()

	return Result{
		Collected: int(collected.Load()),
		Skipped:   int(skipped.Load()),
		Errors:    int(errs.Load()),
	}
}

// skip logs an unusable target. Such targets can never succeed, so they are
// not recorded as failures.
func skip(jobType persistedretry.JobType, entityID string, reason error) Result {
	log.Warnw("Skipping target", "job_type", jobType, "entity_id", entityID, "reason", reason.Error())
	return Result{Skipped: 1}
}

// pollRaces runs the job built for every canonical race id in ids.
func pollRaces[T any](
	ctx context.Context,
	b *base,
	jobType persistedretry.JobType,
	ids []string,
	build func(core.RaceID, provider.Client) job[T]) Result {

	return b.batch(ctx, len(ids), func(ctx context.Context, i int) Result {
		id, err := core.ParseRaceID(ids[i])
		if err != nil {
			return skip(jobType, ids[i], err)
		}
		c, err := b.providers.GetClient(id.Type)
		if err != nil {
			return skip(jobType, ids[i], err)
		}
		r, _ := run(ctx, b, build(id, c), true)
		return r
	})
}

// retryRace re-runs the target of entityID without logging new failures.
func retryRace[T any](
	ctx context.Context,
	b *base,
	entityID string,
	build func(core.RaceID, provider.Client) job[T]) error {

	id, err := core.ParseRaceID(entityID)
	if err != nil {
		return err
	}
	c, err := b.providers.GetClient(id.Type)
	if err != nil {
		return err
	}
	_, err = run(ctx, b, build(id, c), false)
	return err
}
