package ingestserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/ingester/ingestclient"
	"github.com/paddock/raceline/lib/collector"
	"github.com/paddock/raceline/lib/notify"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/poller"
	"github.com/paddock/raceline/lib/racestore"
	"github.com/paddock/raceline/localdb"
	"github.com/paddock/raceline/utils/httputil"
	"github.com/paddock/raceline/utils/testutil"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

const _secret = "s3cret"

// 06:00 KST on 2024-12-10.
var _now = time.Date(2024, 12, 9, 21, 0, 0, 0, time.UTC)

type recordingPoller struct {
	sync.Mutex
	ids     [][]string
	ctxErrs []error
}

func (p *recordingPoller) Poll(ctx context.Context, ids []string) poller.Result {
	p.Lock()
	defer p.Unlock()
	p.ids = append(p.ids, ids)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return poller.Result{Collected: len(ids)}
}

func (p *recordingPoller) CtxErrs() []error {
	p.Lock()
	defer p.Unlock()
	return append([]error(nil), p.ctxErrs...)
}

func (p *recordingPoller) Calls() [][]string {
	p.Lock()
	defer p.Unlock()
	return append([][]string(nil), p.ids...)
}

type recordingSchedulePoller struct {
	sync.Mutex
	dates []time.Time
	types [][]core.RaceType
}

func (p *recordingSchedulePoller) Poll(
	ctx context.Context, date time.Time, raceTypes []core.RaceType) poller.Result {

	p.Lock()
	defer p.Unlock()
	p.dates = append(p.dates, date)
	p.types = append(p.types, raceTypes)
	return poller.Result{Collected: 2, Skipped: 1}
}

func (p *recordingSchedulePoller) Calls() ([]time.Time, [][]core.RaceType) {
	p.Lock()
	defer p.Unlock()
	return append([]time.Time(nil), p.dates...), append([][]core.RaceType(nil), p.types...)
}

type tickerStub struct {
	sync.Mutex
	res collector.TickResult
	err error
}

func (t *tickerStub) set(res collector.TickResult, err error) {
	t.Lock()
	defer t.Unlock()
	t.res, t.err = res, err
}

func (t *tickerStub) Tick(context.Context) (collector.TickResult, error) {
	t.Lock()
	defer t.Unlock()
	return t.res, t.err
}

// invokerStub fails the entities given to fail.
type invokerStub struct {
	sync.Mutex
	errs map[string]error
}

func (s *invokerStub) fail(entityID string, err error) {
	s.Lock()
	defer s.Unlock()
	s.errs[entityID] = err
}

func (s *invokerStub) invoke(ctx context.Context, entityID string) error {
	s.Lock()
	defer s.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.errs[entityID]
}

type serverFixture struct {
	clk      *clock.Mock
	ledger   *persistedretry.SQLStore
	races    *racestore.Store
	schedule *recordingSchedulePoller
	entries  *recordingPoller
	results  *recordingPoller
	odds     *recordingPoller
	ticker   *tickerStub
	invoker  *invokerStub
	handler  http.Handler
	addr     string
	client   *ingestclient.HTTPClient
}

func newServerFixture(t *testing.T) *serverFixture {
	db, cleanup := localdb.Fixture()
	t.Cleanup(cleanup)

	clk := clock.NewMock()
	clk.Set(_now)

	f := &serverFixture{
		clk:      clk,
		ledger:   persistedretry.NewSQLStore(persistedretry.Config{}, db, clk),
		races:    racestore.New(db, clk),
		schedule: &recordingSchedulePoller{},
		entries:  &recordingPoller{},
		results:  &recordingPoller{},
		odds:     &recordingPoller{},
		ticker:   &tickerStub{},
		invoker:  &invokerStub{errs: make(map[string]error)},
	}

	invokers := make(map[persistedretry.JobType]persistedretry.Invoker)
	for _, j := range persistedretry.JobTypes() {
		invokers[j] = f.invoker.invoke
	}
	recovery, err := persistedretry.NewManager(
		persistedretry.Config{RecordPause: time.Millisecond},
		tally.NoopScope, f.ledger, invokers, &notify.Recorder{}, clock.New())
	require.NoError(t, err)

	s, err := New(
		Config{},
		tally.NewTestScope("", nil),
		clk,
		_secret,
		Pollers{f.schedule, f.entries, f.results, f.odds},
		f.ticker,
		recovery,
		f.ledger,
		f.races)
	require.NoError(t, err)

	f.handler = s.Handler()
	addr, stop := testutil.StartServer(f.handler)
	t.Cleanup(stop)

	f.addr = addr
	f.client = ingestclient.New(addr, _secret, 0)
	return f
}

func (f *serverFixture) logFailure(t *testing.T, entityID string) *persistedretry.Failure {
	failure, err := f.ledger.LogFailure(persistedretry.NewFailure{
		JobType:      persistedretry.JobOddsPoll,
		EntityType:   persistedretry.EntityOdds,
		EntityID:     entityID,
		ErrorMessage: "GET /odds 503",
	})
	require.NoError(t, err)
	return failure
}

func TestHealthRequiresNoSecret(t *testing.T) {
	f := newServerFixture(t)

	_, err := httputil.Get(fmt.Sprintf("http://%s/health", f.addr))
	require.NoError(t, err)
}

func TestSecretRequired(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	_, err := ingestclient.New(f.addr, "wrong", 0).FailureStats(context.Background())
	require.True(httputil.IsStatus(err, http.StatusUnauthorized))

	_, err = httputil.Get(fmt.Sprintf("http://%s/failures", f.addr))
	require.True(httputil.IsStatus(err, http.StatusUnauthorized))
}

func TestPollSchedule(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	res, err := f.client.PollSchedule(context.Background(), "20241211", []string{"horse", "boat"})
	require.NoError(err)
	require.Equal(poller.Result{Collected: 2, Skipped: 1}, res)

	// Today in Seoul.
	_, err = f.client.PollSchedule(context.Background(), "", nil)
	require.NoError(err)

	dates, types := f.schedule.Calls()
	require.Equal([]time.Time{
		time.Date(2024, 12, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC),
	}, dates)
	require.Equal([]core.RaceType{core.Horse, core.Boat}, types[0])
	require.Empty(types[1])
}

func TestPollScheduleBadRequest(t *testing.T) {
	f := newServerFixture(t)

	for _, test := range []struct {
		date      string
		raceTypes []string
	}{
		{"2024-12-10", nil},
		{"20241310", nil},
		{"20241210", []string{"greyhound"}},
	} {
		_, err := f.client.PollSchedule(context.Background(), test.date, test.raceTypes)
		require.True(t, httputil.IsStatus(err, http.StatusBadRequest), "%+v", test)
	}
	dates, _ := f.schedule.Calls()
	require.Empty(t, dates)
}

func TestPollRaces(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	ids := []string{"horse-1-3-20241210", "bad-id"}

	for job, p := range map[ingestclient.Job]*recordingPoller{
		ingestclient.JobEntries: f.entries,
		ingestclient.JobResults: f.results,
		ingestclient.JobOdds:    f.odds,
	} {
		res, err := f.client.PollRaces(context.Background(), job, ids)
		require.NoError(err)
		require.Equal(2, res.Collected)
		require.Equal([][]string{ids}, p.Calls())
	}

	_, err := f.client.PollRaces(context.Background(), ingestclient.JobOdds, nil)
	require.True(httputil.IsStatus(err, http.StatusBadRequest))
}

func cancelledRequest(t *testing.T, method, path, body string) *http.Request {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := http.NewRequestWithContext(ctx, method, path, strings.NewReader(body))
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+_secret)
	return r
}

func TestPollRacesOutlivesCancelledRequest(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, cancelledRequest(
		t, http.MethodPost, "/jobs/odds", `{"race_ids": ["horse-1-3-20241210"]}`))

	require.Equal(http.StatusOK, w.Code)
	require.Equal([]error{nil}, f.odds.CtxErrs())
}

func TestRetryFailureOutlivesCancelledRequest(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	failure := f.logFailure(t, "horse-1-1-20241210")

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, cancelledRequest(
		t, http.MethodPost, fmt.Sprintf("/failures/%d/retry", failure.ID), ""))
	require.Equal(http.StatusOK, w.Code)

	got, err := f.ledger.Get(failure.ID)
	require.NoError(err)
	require.Equal(persistedretry.StatusResolved, got.Status)
	require.Equal(0, got.RetryCount)
}

func TestTick(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)
	expected := collector.TickResult{Odds: poller.Result{Collected: 4}, SecondPass: 1}
	f.ticker.set(expected, nil)

	res, err := f.client.Tick(context.Background())
	require.NoError(err)
	require.Equal(expected, res)

	f.ticker.set(collector.TickResult{}, errors.New("some error"))
	_, err = f.client.Tick(context.Background())
	require.True(httputil.IsStatus(err, http.StatusInternalServerError))
}

func TestProcessFailures(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	f.logFailure(t, "horse-1-1-20241210")
	f.logFailure(t, "horse-1-2-20241210")
	f.invoker.fail("horse-1-2-20241210", errors.New("still down"))

	// Nothing is due yet.
	res, err := f.client.ProcessFailures(context.Background(), 0)
	require.NoError(err)
	require.Equal(persistedretry.Result{}, res)

	f.clk.Add(time.Hour)

	res, err = f.client.ProcessFailures(context.Background(), 10)
	require.NoError(err)
	require.Equal(persistedretry.Result{Processed: 2, Recovered: 1, Failed: 1}, res)

	stats, err := f.client.FailureStats(context.Background())
	require.NoError(err)
	require.Equal(1, stats[persistedretry.StatusResolved])
	require.Equal(1, stats[persistedretry.StatusPending])
	require.Equal(0, stats[persistedretry.StatusRetrying])
}

func TestListAndGetFailures(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	a := f.logFailure(t, "horse-1-1-20241210")
	f.clk.Add(time.Second)
	b := f.logFailure(t, "horse-1-2-20241210")

	fs, err := f.client.ListFailures(context.Background(), persistedretry.Query{})
	require.NoError(err)
	require.Len(fs, 2)
	require.Equal(b.ID, fs[0].ID)
	require.Equal(a.ID, fs[1].ID)

	fs, err = f.client.ListFailures(context.Background(), persistedretry.Query{
		EntityID: "horse-1-1-20241210",
	})
	require.NoError(err)
	require.Len(fs, 1)
	require.Equal(a.ID, fs[0].ID)

	fs, err = f.client.ListFailures(context.Background(), persistedretry.Query{
		Status: persistedretry.StatusResolved,
	})
	require.NoError(err)
	require.Empty(fs)

	got, err := f.client.GetFailure(context.Background(), a.ID)
	require.NoError(err)
	require.Equal(a.EntityID, got.EntityID)
	require.Equal(persistedretry.JobOddsPoll, got.JobType)
	require.Equal(persistedretry.StatusPending, got.Status)

	_, err = f.client.GetFailure(context.Background(), 999)
	require.Equal(ingestclient.ErrFailureNotFound, err)
}

func TestListFailuresBadRequest(t *testing.T) {
	f := newServerFixture(t)

	for _, q := range []string{"status=broken", "job_type=nap", "limit=-1", "offset=x"} {
		_, err := httputil.Get(
			fmt.Sprintf("http://%s/failures?%s", f.addr, q),
			httputil.SendHeaders(map[string]string{"Authorization": "Bearer " + _secret}))
		require.True(t, httputil.IsStatus(err, http.StatusBadRequest), q)
	}
}

func TestRetryFailure(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	// Not due, but retried anyway.
	failure := f.logFailure(t, "horse-1-1-20241210")

	got, err := f.client.RetryFailure(context.Background(), failure.ID)
	require.NoError(err)
	require.Equal(persistedretry.StatusResolved, got.Status)
	require.NotNil(got.ResolvedAt)

	_, err = f.client.RetryFailure(context.Background(), failure.ID)
	require.Equal(ingestclient.ErrNotRetryable, err)

	_, err = f.client.RetryFailure(context.Background(), 999)
	require.Equal(ingestclient.ErrFailureNotFound, err)
}

func TestRetryFailureStillFailing(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	failure := f.logFailure(t, "horse-1-1-20241210")
	f.invoker.fail(failure.EntityID, errors.New("still down"))

	got, err := f.client.RetryFailure(context.Background(), failure.ID)
	require.NoError(err)
	require.Equal(persistedretry.StatusPending, got.Status)
	require.Equal(1, got.RetryCount)
}

func TestRacesAndOdds(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	day := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	horse, err := core.NewRaceID(core.Horse, "1", 3, day)
	require.NoError(err)
	boat, err := core.NewRaceID(core.Boat, "ms", 1, day)
	require.NoError(err)

	require.NoError(f.races.UpsertRaces([]core.Race{
		core.RaceFixture(horse, _now.Add(5*time.Hour)),
		core.RaceFixture(boat, _now.Add(4*time.Hour)),
	}))

	t1 := _now.Add(time.Hour)
	t2 := t1.Add(5 * time.Minute)
	_, err = f.races.InsertOdds([]core.OddsSnapshot{
		core.OddsFixture(horse, 1, t1),
		core.OddsFixture(horse, 2, t1),
		core.OddsFixture(horse, 1, t2),
	})
	require.NoError(err)

	races, err := f.client.Races(context.Background(), "20241210", nil)
	require.NoError(err)
	require.Len(races, 2)
	require.Equal(boat.String(), races[0].ID)
	require.Equal(horse.String(), races[1].ID)

	races, err = f.client.Races(context.Background(), "20241210", []string{"horse"})
	require.NoError(err)
	require.Len(races, 1)

	races, err = f.client.Races(context.Background(), "20241211", nil)
	require.NoError(err)
	require.Empty(races)

	odds, err := f.client.Odds(context.Background(), horse.String(), time.Time{})
	require.NoError(err)
	require.Len(odds, 3)

	odds, err = f.client.Odds(context.Background(), horse.String(), t2)
	require.NoError(err)
	require.Len(odds, 1)
	require.Equal("3.4", odds[0].Win.String())

	_, err = f.client.Odds(context.Background(), "cycle-1-1-20241210", time.Time{})
	require.Equal(ingestclient.ErrRaceNotFound, err)

	_, err = f.client.Odds(context.Background(), "bad-id", time.Time{})
	require.True(httputil.IsStatus(err, http.StatusBadRequest))
}

func TestGetRace(t *testing.T) {
	require := require.New(t)

	f := newServerFixture(t)

	id, err := core.ParseRaceID("horse-1-3-20241210")
	require.NoError(err)
	require.NoError(f.races.UpsertRaces([]core.Race{core.RaceFixture(id, _now.Add(5*time.Hour))}))

	resp, err := httputil.Get(
		fmt.Sprintf("http://%s/races/%s", f.addr, id),
		httputil.SendHeaders(map[string]string{"Authorization": "Bearer " + _secret}))
	require.NoError(err)
	defer resp.Body.Close()

	var detail RaceDetail
	require.NoError(json.NewDecoder(resp.Body).Decode(&detail))
	require.Equal(id.String(), detail.ID)
	require.NotNil(detail.Entries)
	require.Empty(detail.Entries)
	require.Empty(detail.Results)
}
