package poller

import (
	"context"
	"errors"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/provider"
	"github.com/paddock/raceline/lib/racestore"
	"github.com/paddock/raceline/utils/log"
)

// EntryPoller collects race line-ups.
type EntryPoller struct {
	*base
}

// Poll collects the entries of every race in ids, which are canonical race
// ids. Malformed ids are skipped.
func (p *EntryPoller) Poll(ctx context.Context, ids []string) Result {
	return pollRaces(ctx, p.base, persistedretry.JobEntryPoll, ids, p.job)
}

// Retry re-polls the entries of race entityID.
func (p *EntryPoller) Retry(ctx context.Context, entityID string) error {
	return retryRace(ctx, p.base, entityID, p.job)
}

func (p *EntryPoller) job(id core.RaceID, c provider.Client) job[[]provider.RawEntryItem] {
	return job[[]provider.RawEntryItem]{
		jobType:    persistedretry.JobEntryPoll,
		entityType: persistedretry.EntityEntry,
		entityID:   id.String(),
		fetch: func(ctx context.Context) ([]provider.RawEntryItem, error) {
			return c.FetchEntries(ctx, id)
		},
		save: func(items []provider.RawEntryItem) (int, int, error) {
			var entries []core.Entry
			var skipped int
			for _, item := range items {
				e, err := p.mapper.MapEntry(id, item)
				if err != nil {
					log.With("race_id", id.String()).Warnf("Skipping entry item: %s", err)
					skipped++
					continue
				}
				entries = append(entries, e)
			}
			if len(entries) == 0 {
				return 0, skipped, nil
			}
			if err := p.store.UpsertEntries(entries); err != nil {
				return 0, skipped, err
			}
			return len(entries), skipped, nil
		},
	}
}

// ResultPoller collects race results.
type ResultPoller struct {
	*base
}

// Poll collects the results of every race in ids. Races with results are
// marked finished.
func (p *ResultPoller) Poll(ctx context.Context, ids []string) Result {
	return pollRaces(ctx, p.base, persistedretry.JobResultPoll, ids, p.job)
}

// Retry re-polls the results of race entityID.
func (p *ResultPoller) Retry(ctx context.Context, entityID string) error {
	return retryRace(ctx, p.base, entityID, p.job)
}

func (p *ResultPoller) job(id core.RaceID, c provider.Client) job[[]provider.RawResultItem] {
	return job[[]provider.RawResultItem]{
		jobType:    persistedretry.JobResultPoll,
		entityType: persistedretry.EntityResult,
		entityID:   id.String(),
		fetch: func(ctx context.Context) ([]provider.RawResultItem, error) {
			return c.FetchResults(ctx, id)
		},
		save: func(items []provider.RawResultItem) (int, int, error) {
			var results []core.Result
			var skipped int
			for _, item := range items {
				r, err := p.mapper.MapResult(id, item)
				if err != nil {
					log.With("race_id", id.String()).Warnf("Skipping result item: %s", err)
					skipped++
					continue
				}
				results = append(results, r)
			}
			if len(results) == 0 {
				return 0, skipped, nil
			}
			if err := p.store.UpsertResults(results); err != nil {
				return 0, skipped, err
			}
			if err := p.store.SetRaceStatus(id.String(), core.RaceFinished); err != nil {
				if !errors.Is(err, racestore.ErrRaceNotFound) {
					return 0, skipped, err
				}
				log.With("race_id", id.String()).Info("Stored results of unscheduled race")
			}
			return len(results), skipped, nil
		},
	}
}

// OddsPoller collects odds snapshots.
type OddsPoller struct {
	*base
}

// Poll records an odds snapshot of every race in ids. Snapshots are stamped
// with the collection time at second precision; a snapshot already recorded
// for the same second is counted as skipped.
func (p *OddsPoller) Poll(ctx context.Context, ids []string) Result {
	return pollRaces(ctx, p.base, persistedretry.JobOddsPoll, ids, p.job)
}

// Retry re-polls the odds of race entityID.
func (p *OddsPoller) Retry(ctx context.Context, entityID string) error {
	return retryRace(ctx, p.base, entityID, p.job)
}

func (p *OddsPoller) job(id core.RaceID, c provider.Client) job[[]provider.RawOddsItem] {
	return job[[]provider.RawOddsItem]{
		jobType:    persistedretry.JobOddsPoll,
		entityType: persistedretry.EntityOdds,
		entityID:   id.String(),
		fetch: func(ctx context.Context) ([]provider.RawOddsItem, error) {
			return c.FetchOdds(ctx, id)
		},
		save: func(items []provider.RawOddsItem) (int, int, error) {
			now := p.clk.Now()
			var odds []core.OddsSnapshot
			var skipped int
			for _, item := range items {
				o, err := p.mapper.MapOdds(id, now, item)
				if err != nil {
					log.With("race_id", id.String()).Warnf("Skipping odds item: %s", err)
					skipped++
					continue
				}
				odds = append(odds, o)
			}
			if len(odds) == 0 {
				return 0, skipped, nil
			}
			n, err := p.store.InsertOdds(odds)
			if err != nil {
				return 0, skipped, err
			}
			return n, skipped + len(odds) - n, nil
		},
	}
}
