// Package collector drives the pollers from a periodic tick, consulting the
// cadence of every upcoming race to decide what to collect.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // Container images ship without zoneinfo.

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/cadence"
	"github.com/paddock/raceline/lib/lease"
	"github.com/paddock/raceline/lib/poller"
	"github.com/paddock/raceline/utils/log"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
)

const _tickLease = "collector-tick"

// RaceStore lists stored races.
type RaceStore interface {
	RacesStartingBetween(from, to time.Time) ([]core.Race, error)
}

// SchedulePoller collects race schedules.
type SchedulePoller interface {
	Poll(ctx context.Context, date time.Time, raceTypes []core.RaceType) poller.Result
}

// RacePoller collects data of individual races.
type RacePoller interface {
	Poll(ctx context.Context, ids []string) poller.Result
}

// TickResult summarizes the work triggered by one tick.
type TickResult struct {
	Skipped    bool          `json:"skipped"`
	Schedule   poller.Result `json:"schedule"`
	Entries    poller.Result `json:"entries"`
	Odds       poller.Result `json:"odds"`
	Results    poller.Result `json:"results"`
	SecondPass int           `json:"second_pass"`
}

// Collector triggers pollers once per tick.
type Collector struct {
	config    Config
	stats     tally.Scope
	clk       clock.Clock
	loc       *time.Location
	raceTypes []core.RaceType
	store     RaceStore
	schedule  SchedulePoller
	entries   RacePoller
	results   RacePoller
	odds      RacePoller
	lease     lease.Lease

	mu           sync.Mutex
	lastSchedule string
	pending      map[*clock.Timer]struct{}

	// Tracks scheduled second passes.
	wg sync.WaitGroup
}

// New creates a new Collector.
func New(
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	store RaceStore,
	schedule SchedulePoller,
	entries RacePoller,
	results RacePoller,
	odds RacePoller,
	l lease.Lease) (*Collector, error) {

	config = config.applyDefaults()
	loc, err := time.LoadLocation(config.Location)
	if err != nil {
		return nil, fmt.Errorf("load location: %s", err)
	}
	var types []core.RaceType
	for _, s := range config.RaceTypes {
		t, err := core.ParseRaceType(s)
		if err != nil {
			return nil, fmt.Errorf("race types: %s", err)
		}
		types = append(types, t)
	}
	return &Collector{
		config:    config,
		stats:     stats.SubScope("collector"),
		clk:       clk,
		loc:       loc,
		raceTypes: types,
		store:     store,
		schedule:  schedule,
		entries:   entries,
		results:   results,
		odds:      odds,
		lease:     l,
		pending:   make(map[*clock.Timer]struct{}),
	}, nil
}

// Run ticks every TickInterval until ctx is done. Second passes which have
// not started by then are cancelled; running ones are waited for.
func (c *Collector) Run(ctx context.Context) error {
	ticker := c.clk.Ticker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		if _, err := c.Tick(ctx); err != nil {
			log.Errorf("Error running collector tick: %s", err)
		}
		select {
		case <-ctx.Done():
			c.Stop()
			return nil
		case <-ticker.C:
		}
	}
}

// Stop cancels pending second passes and waits for running ones.
func (c *Collector) Stop() {
	c.mu.Lock()
	for t := range c.pending {
		if t.Stop() {
			c.wg.Done()
		}
		delete(c.pending, t)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// Tick runs one collection cycle. Ticks are skipped while another replica
// holds the tick lease. A tick keeps the lease for the full LeaseTTL, not just
// while it runs, so at most one replica ticks per TickInterval.
func (c *Collector) Tick(ctx context.Context) (TickResult, error) {
	release, err := c.lease.TryAcquire(_tickLease, c.config.LeaseTTL)
	if errors.Is(err, lease.ErrNotAcquired) {
		log.Debugf("Tick lease %s held elsewhere, skipping tick", _tickLease)
		c.stats.Counter("lease_skipped").Inc(1)
		return TickResult{Skipped: true}, nil
	} else if err != nil {
		return TickResult{}, fmt.Errorf("acquire lease: %s", err)
	}
	c.clk.AfterFunc(c.config.LeaseTTL, release)
	defer c.stats.Timer("tick").Start().Stop()

	now := c.clk.Now()
	var res TickResult

	if c.scheduleDue(now) {
		res.Schedule = c.schedule.Poll(ctx, core.Day(now.In(c.loc)), c.raceTypes)
	}

	races, err := c.store.RacesStartingBetween(
		now.Add(-c.config.ResultHorizon), now.Add(cadence.Window*time.Minute))
	if err != nil {
		return res, fmt.Errorf("list races: %s", err)
	}

	var oddsIDs, entryIDs, secondPass []string
	for _, w := range cadence.UpcomingRaces(races, now) {
		if w.Race.Status != core.RaceScheduled {
			continue
		}
		if w.ShouldCollectNow {
			oddsIDs = append(oddsIDs, w.Race.ID)
			if w.MinutesToStart <= c.config.EntryWindow {
				entryIDs = append(entryIDs, w.Race.ID)
			}
		}
		if cadence.NeedsSecondPass(w.MinutesToStart) {
			secondPass = append(secondPass, w.Race.ID)
		}
	}
	var resultIDs []string
	for _, r := range races {
		started := now.Sub(r.StartTime)
		if r.Status == core.RaceScheduled &&
			started >= c.config.ResultDelay && started <= c.config.ResultHorizon {
			resultIDs = append(resultIDs, r.ID)
		}
	}

	var wg sync.WaitGroup
	poll := func(p RacePoller, ids []string, out *poller.Result) {
		if len(ids) == 0 {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			*out = p.Poll(ctx, ids)
		}()
	}
	poll(c.odds, oddsIDs, &res.Odds)
	poll(c.entries, entryIDs, &res.Entries)
	poll(c.results, resultIDs, &res.Results)
	wg.Wait()

	if len(secondPass) > 0 {
		c.scheduleSecondPass(ctx, secondPass)
		res.SecondPass = len(secondPass)
	}

	log.With(
		"races", len(races),
		"odds", len(oddsIDs),
		"entries", len(entryIDs),
		"results", len(resultIDs),
		"second_pass", len(secondPass)).Debug("Collector tick complete")

	return res, nil
}

// scheduleDue reports whether the daily schedule poll should run at now,
// marking it done for the day if so. The poll runs on the first tick at or
// after ScheduleHour, so a process started later in the day catches up.
func (c *Collector) scheduleDue(now time.Time) bool {
	hour := *c.config.ScheduleHour
	if hour < 0 {
		return false
	}
	local := now.In(c.loc)
	if local.Hour() < hour {
		return false
	}
	day := core.FormatDate(core.Day(local))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSchedule == day {
		return false
	}
	c.lastSchedule = day
	return true
}

// scheduleSecondPass polls the odds of ids once more after SecondPassDelay.
// The pass outlives the tick which scheduled it, so it does not inherit the
// cancellation of ctx.
func (c *Collector) scheduleSecondPass(ctx context.Context, ids []string) {
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.wg.Add(1)
	var t *clock.Timer
	t = c.clk.AfterFunc(c.config.SecondPassDelay, func() {
		defer c.wg.Done()

		c.mu.Lock()
		delete(c.pending, t)
		c.mu.Unlock()

		res := c.odds.Poll(ctx, ids)
		log.With(
			"races", len(ids),
			"collected", res.Collected,
			"errors", res.Errors).Debug("Second pass complete")
	})
	c.pending[t] = struct{}{}
}
