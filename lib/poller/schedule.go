package poller

import (
	"context"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/provider"
	"github.com/paddock/raceline/utils/log"
)

// SchedulePoller collects race schedules.
type SchedulePoller struct {
	*base
}

// Poll collects the schedule of date for each of raceTypes. If raceTypes is
// empty, every race type with a registered provider is polled.
func (p *SchedulePoller) Poll(ctx context.Context, date time.Time, raceTypes []core.RaceType) Result {
	if len(raceTypes) == 0 {
		raceTypes = p.providers.RaceTypes()
	}
	return p.batch(ctx, len(raceTypes), func(ctx context.Context, i int) Result {
		key := core.NewScheduleKey(raceTypes[i], date)
		c, err := p.providers.GetClient(key.Type)
		if err != nil {
			return skip(persistedretry.JobSchedulePoll, key.String(), err)
		}
		r, _ := run(ctx, p.base, p.job(key, c), true)
		return r
	})
}

// Retry re-polls the schedule identified by a schedule key.
func (p *SchedulePoller) Retry(ctx context.Context, entityID string) error {
	key, err := core.ParseScheduleKey(entityID)
	if err != nil {
		return err
	}
	c, err := p.providers.GetClient(key.Type)
	if err != nil {
		return err
	}
	_, err = run(ctx, p.base, p.job(key, c), false)
	return err
}

func (p *SchedulePoller) job(key core.ScheduleKey, c provider.Client) job[[]provider.RawScheduleItem] {
	return job[[]provider.RawScheduleItem]{
		jobType:    persistedretry.JobSchedulePoll,
		entityType: persistedretry.EntityRace,
		entityID:   key.String(),
		fetch: func(ctx context.Context) ([]provider.RawScheduleItem, error) {
			return c.FetchSchedules(ctx, key.Type, key.Date)
		},
		save: func(items []provider.RawScheduleItem) (int, int, error) {
			var races []core.Race
			var skipped int
			for _, item := range items {
				r, err := p.mapper.MapSchedule(key.Type, key.Date, item)
				if err != nil {
					log.With("schedule", key.String()).Warnf("Skipping schedule item: %s", err)
					skipped++
					continue
				}
				races = append(races, r)
			}
			if len(races) == 0 {
				return 0, skipped, nil
			}
			if err := p.store.UpsertRaces(races); err != nil {
				return 0, skipped, err
			}
			return len(races), skipped, nil
		},
	}
}
