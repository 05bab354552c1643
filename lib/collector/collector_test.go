package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/lease"
	"github.com/paddock/raceline/lib/poller"

	"github.com/alicebob/miniredis"
	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

// 10:20 KST.
var _now = time.Date(2024, 12, 10, 1, 20, 0, 0, time.UTC)

type memRaceStore struct {
	races []core.Race
	err   error
}

func (s *memRaceStore) RacesStartingBetween(from, to time.Time) ([]core.Race, error) {
	if s.err != nil {
		return nil, s.err
	}
	var res []core.Race
	for _, r := range s.races {
		if !r.StartTime.Before(from) && !r.StartTime.After(to) {
			res = append(res, r)
		}
	}
	return res, nil
}

type recordingPoller struct {
	sync.Mutex
	calls [][]string
}

func (p *recordingPoller) Poll(ctx context.Context, ids []string) poller.Result {
	p.Lock()
	defer p.Unlock()
	p.calls = append(p.calls, ids)
	return poller.Result{Collected: len(ids)}
}

func (p *recordingPoller) Calls() [][]string {
	p.Lock()
	defer p.Unlock()
	return append([][]string(nil), p.calls...)
}

type scheduleCall struct {
	date      time.Time
	raceTypes []core.RaceType
}

type recordingSchedulePoller struct {
	sync.Mutex
	calls []scheduleCall
}

func (p *recordingSchedulePoller) Poll(
	ctx context.Context, date time.Time, raceTypes []core.RaceType) poller.Result {

	p.Lock()
	defer p.Unlock()
	p.calls = append(p.calls, scheduleCall{date, raceTypes})
	return poller.Result{Collected: 1}
}

func (p *recordingSchedulePoller) Calls() []scheduleCall {
	p.Lock()
	defer p.Unlock()
	return append([]scheduleCall(nil), p.calls...)
}

type heldLease struct{}

func (heldLease) TryAcquire(name string, ttl time.Duration) (func(), error) {
	return nil, lease.ErrNotAcquired
}

func hour(h int) *int {
	return &h
}

type collectorMocks struct {
	clk      *clock.Mock
	stats    tally.TestScope
	store    *memRaceStore
	schedule *recordingSchedulePoller
	entries  *recordingPoller
	results  *recordingPoller
	odds     *recordingPoller
}

func newCollectorMocks(now time.Time) *collectorMocks {
	clk := clock.NewMock()
	clk.Set(now)
	return &collectorMocks{
		clk:      clk,
		stats:    tally.NewTestScope("", nil),
		store:    &memRaceStore{},
		schedule: &recordingSchedulePoller{},
		entries:  &recordingPoller{},
		results:  &recordingPoller{},
		odds:     &recordingPoller{},
	}
}

func (m *collectorMocks) new(t *testing.T, config Config, l lease.Lease) *Collector {
	c, err := New(
		config, m.stats, m.clk, m.store, m.schedule, m.entries, m.results, m.odds, l)
	require.NoError(t, err)
	return c
}

// race returns a scheduled horse race numbered n starting at start.
func race(t *testing.T, n int, start time.Time) core.Race {
	id, err := core.NewRaceID(core.Horse, "1", n, start)
	require.NoError(t, err)
	return core.RaceFixture(id, start)
}

func TestTickSelectsRacesByCadence(t *testing.T) {
	require := require.New(t)

	mocks := newCollectorMocks(_now)

	imminent := race(t, 1, _now.Add(3*time.Minute))
	near := race(t, 2, _now.Add(10*time.Minute))
	onGrid := race(t, 3, _now.Add(30*time.Minute))
	offGrid := race(t, 4, _now.Add(32*time.Minute))
	cancelled := race(t, 5, _now.Add(20*time.Minute))
	cancelled.Status = core.RaceCancelled
	awaitingResult := race(t, 6, _now.Add(-20*time.Minute))
	justStarted := race(t, 7, _now.Add(-5*time.Minute))
	finished := race(t, 8, _now.Add(-30*time.Minute))
	finished.Status = core.RaceFinished
	tooOld := race(t, 9, _now.Add(-3*time.Hour))

	mocks.store.races = []core.Race{
		imminent, near, onGrid, offGrid, cancelled,
		awaitingResult, justStarted, finished, tooOld,
	}

	c := mocks.new(t, Config{}, lease.NoopLease{})

	res, err := c.Tick(context.Background())
	require.NoError(err)
	require.False(res.Skipped)
	require.Equal(3, res.Odds.Collected)
	require.Equal(2, res.Entries.Collected)
	require.Equal(1, res.Results.Collected)
	require.Equal(1, res.SecondPass)

	require.Equal([][]string{{imminent.ID, near.ID, onGrid.ID}}, mocks.odds.Calls())
	require.Equal([][]string{{imminent.ID, near.ID}}, mocks.entries.Calls())
	require.Equal([][]string{{awaitingResult.ID}}, mocks.results.Calls())

	// 10:20 KST is past the schedule hour, so the day's schedules are caught up.
	require.Len(mocks.schedule.Calls(), 1)

	c.Stop()
}

func TestTickSecondPass(t *testing.T) {
	require := require.New(t)

	mocks := newCollectorMocks(_now)

	imminent := race(t, 1, _now.Add(2*time.Minute))
	later := race(t, 2, _now.Add(10*time.Minute))
	mocks.store.races = []core.Race{imminent, later}

	c := mocks.new(t, Config{}, lease.NoopLease{})

	_, err := c.Tick(context.Background())
	require.NoError(err)
	require.Len(mocks.odds.Calls(), 1)

	mocks.clk.Add(29 * time.Second)
	require.Len(mocks.odds.Calls(), 1)

	mocks.clk.Add(time.Second)
	c.Stop()

	calls := mocks.odds.Calls()
	require.Len(calls, 2)
	require.Equal([]string{imminent.ID}, calls[1])
}

func TestStopCancelsPendingSecondPass(t *testing.T) {
	require := require.New(t)

	mocks := newCollectorMocks(_now)
	mocks.store.races = []core.Race{race(t, 1, _now.Add(2*time.Minute))}

	c := mocks.new(t, Config{}, lease.NoopLease{})

	_, err := c.Tick(context.Background())
	require.NoError(err)

	c.Stop()
	mocks.clk.Add(time.Minute)

	require.Len(mocks.odds.Calls(), 1)
}

func TestTickSchedulePollOncePerDay(t *testing.T) {
	require := require.New(t)

	// 06:00 KST on 2024-12-10.
	sixAM := time.Date(2024, 12, 9, 21, 0, 0, 0, time.UTC)
	mocks := newCollectorMocks(sixAM)

	c := mocks.new(t, Config{RaceTypes: []string{"horse", "boat"}}, lease.NoopLease{})

	res, err := c.Tick(context.Background())
	require.NoError(err)
	require.Equal(1, res.Schedule.Collected)

	mocks.clk.Add(time.Minute)
	res, err = c.Tick(context.Background())
	require.NoError(err)
	require.Equal(poller.Result{}, res.Schedule)

	mocks.clk.Add(24 * time.Hour)
	_, err = c.Tick(context.Background())
	require.NoError(err)

	calls := mocks.schedule.Calls()
	require.Len(calls, 2)
	require.Equal(time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), calls[0].date)
	require.Equal(time.Date(2024, 12, 11, 0, 0, 0, 0, time.UTC), calls[1].date)
	require.Equal([]core.RaceType{core.Horse, core.Boat}, calls[0].raceTypes)
}

func TestTickScheduleDisabled(t *testing.T) {
	require := require.New(t)

	mocks := newCollectorMocks(time.Date(2024, 12, 9, 21, 0, 0, 0, time.UTC))

	c := mocks.new(t, Config{ScheduleHour: hour(-1)}, lease.NoopLease{})

	_, err := c.Tick(context.Background())
	require.NoError(err)
	require.Empty(mocks.schedule.Calls())
}

func TestTickScheduleAtMidnight(t *testing.T) {
	require := require.New(t)

	// 23:59 KST on 2024-12-09.
	mocks := newCollectorMocks(time.Date(2024, 12, 9, 14, 59, 0, 0, time.UTC))

	c := mocks.new(t, Config{ScheduleHour: hour(0)}, lease.NoopLease{})

	for i := 0; i < 3; i++ {
		_, err := c.Tick(context.Background())
		require.NoError(err)
		mocks.clk.Add(time.Minute)
	}

	calls := mocks.schedule.Calls()
	require.Len(calls, 2)
	require.Equal(time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC), calls[0].date)
	require.Equal(time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), calls[1].date)
}

func TestTickScheduleCatchUp(t *testing.T) {
	tests := []struct {
		desc  string
		hour  int
		polls int
	}{
		{"started after schedule hour", 6, 1},
		{"started before schedule hour", 12, 0},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			require := require.New(t)

			mocks := newCollectorMocks(_now)

			c := mocks.new(t, Config{ScheduleHour: hour(test.hour)}, lease.NoopLease{})

			for i := 0; i < 3; i++ {
				_, err := c.Tick(context.Background())
				require.NoError(err)
				mocks.clk.Add(time.Minute)
			}
			require.Len(mocks.schedule.Calls(), test.polls)
		})
	}
}

func TestTickSkippedWhileLeaseHeld(t *testing.T) {
	require := require.New(t)

	mocks := newCollectorMocks(_now)
	mocks.store.races = []core.Race{race(t, 1, _now.Add(5*time.Minute))}

	c := mocks.new(t, Config{}, heldLease{})

	res, err := c.Tick(context.Background())
	require.NoError(err)
	require.True(res.Skipped)
	require.Empty(mocks.odds.Calls())

	counter, ok := mocks.stats.Snapshot().Counters()["collector.lease_skipped+"]
	require.True(ok)
	require.Equal(int64(1), counter.Value())
}

func TestTickLeaseHeldAcrossReplicas(t *testing.T) {
	require := require.New(t)

	s, err := miniredis.Run()
	require.NoError(err)
	defer s.Close()

	mocks := newCollectorMocks(_now)
	mocks.store.races = []core.Race{race(t, 1, _now.Add(10*time.Minute))}

	newReplica := func() *Collector {
		l, err := lease.NewRedisLease(lease.RedisConfig{Addr: s.Addr()})
		require.NoError(err)
		t.Cleanup(func() { l.Close() })
		return mocks.new(t, Config{ScheduleHour: hour(-1)}, l)
	}
	a := newReplica()
	b := newReplica()

	res, err := a.Tick(context.Background())
	require.NoError(err)
	require.False(res.Skipped)

	// Later in the same minute, after a has finished its tick.
	mocks.clk.Add(30 * time.Second)
	s.FastForward(30 * time.Second)

	res, err = b.Tick(context.Background())
	require.NoError(err)
	require.True(res.Skipped)
	require.Len(mocks.odds.Calls(), 1)

	// The lease lapses before the next tick.
	mocks.clk.Add(30 * time.Second)
	s.FastForward(30 * time.Second)

	res, err = b.Tick(context.Background())
	require.NoError(err)
	require.False(res.Skipped)
	require.Len(mocks.odds.Calls(), 2)
}

func TestTickStoreError(t *testing.T) {
	require := require.New(t)

	mocks := newCollectorMocks(_now)
	mocks.store.err = errors.New("some error")

	c := mocks.new(t, Config{}, lease.NoopLease{})

	_, err := c.Tick(context.Background())
	require.Error(err)
	require.Empty(mocks.odds.Calls())
}

func TestNewErrors(t *testing.T) {
	mocks := newCollectorMocks(_now)

	_, err := New(
		Config{RaceTypes: []string{"greyhound"}},
		mocks.stats, mocks.clk, mocks.store,
		mocks.schedule, mocks.entries, mocks.results, mocks.odds, lease.NoopLease{})
	require.Error(t, err)

	_, err = New(
		Config{Location: "Mars/Olympus"},
		mocks.stats, mocks.clk, mocks.store,
		mocks.schedule, mocks.entries, mocks.results, mocks.odds, lease.NoopLease{})
	require.Error(t, err)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	require := require.New(t)

	mocks := newCollectorMocks(_now)
	r := race(t, 1, _now.Add(10*time.Minute))
	mocks.store.races = []core.Race{r}

	c := mocks.new(t, Config{}, lease.NoopLease{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(func() bool {
		return len(mocks.odds.Calls()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(time.Second):
		require.FailNow("Run did not return after cancel")
	}
	require.Equal([][]string{{r.ID}}, mocks.odds.Calls())
}
