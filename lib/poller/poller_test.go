package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/notify"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/provider"
	"github.com/paddock/raceline/lib/racestore"
	"github.com/paddock/raceline/localdb"
	"github.com/paddock/raceline/mocks/lib/provider"
	"github.com/paddock/raceline/utils/backoff"
	"github.com/paddock/raceline/utils/log"

	"github.com/andres-erbsen/clock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

var (
	_date = time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	_now  = time.Date(2024, 12, 10, 1, 20, 0, 0, time.UTC)
)

type failingStore struct {
	Store
	err error
}

func (s failingStore) InsertOdds([]core.OddsSnapshot) (int, error) { return 0, s.err }

func (s failingStore) UpsertRaces([]core.Race) error { return s.err }

type fixture struct {
	ctrl     *gomock.Controller
	client   *mockprovider.MockClient
	races    *racestore.Store
	ledger   *persistedretry.SQLStore
	notifier *notify.Recorder
	pollers  *Pollers
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore builds pollers over a temporary database. If wrap is
// non-nil, pollers write through wrap(races) instead.
func newFixtureWithStore(t *testing.T, wrap func(Store) Store) *fixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	db, cleanup := localdb.Fixture()
	t.Cleanup(cleanup)

	clk := clock.NewMock()
	clk.Set(_now)

	races := racestore.New(db, clk)
	ledger := persistedretry.NewSQLStore(persistedretry.Config{}, db, clk)

	client := mockprovider.NewMockClient(ctrl)
	providers := provider.NewManager()
	require.NoError(t, providers.Register(core.Horse, client, nil))

	mapper, err := provider.NewMapper(provider.MapperConfig{})
	require.NoError(t, err)

	executor := backoff.NewExecutor(backoff.Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}, tally.NoopScope, clock.New())

	var store Store = races
	if wrap != nil {
		store = wrap(races)
	}
	rec := &notify.Recorder{}
	p := New(Config{}, tally.NoopScope, clk, executor, providers, mapper, store, ledger, rec)

	return &fixture{ctrl, client, races, ledger, rec, p}
}

func oddsItems() []provider.RawOddsItem {
	return []provider.RawOddsItem{
		{EntryNo: "1", Win: "3.4", Place: "1.6"},
		{EntryNo: "2", Win: "5.0", Place: "2.1"},
	}
}

func TestSchedulePollStoresEveryRace(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)

	f.client.EXPECT().FetchSchedules(gomock.Any(), core.Horse, _date).Return([]provider.RawScheduleItem{
		{Track: "1", RaceNo: "1", StartTime: "1035"},
		{Track: "1", RaceNo: "2", StartTime: "1110"},
		{Track: "2", RaceNo: "1", StartTime: "1050"},
	}, nil)

	res := f.pollers.Schedule.Poll(context.Background(), _date, []core.RaceType{core.Horse})
	require.Equal(Result{Collected: 3}, res)

	races, err := f.races.RacesByDate(_date, core.Horse)
	require.NoError(err)
	require.Len(races, 3)

	failures, err := f.ledger.Find(persistedretry.Query{})
	require.NoError(err)
	require.Empty(failures)
}

func TestSchedulePollDefaultsToRegisteredRaceTypes(t *testing.T) {
	f := newFixture(t)

	f.client.EXPECT().FetchSchedules(gomock.Any(), core.Horse, _date).Return(nil, nil)

	res := f.pollers.Schedule.Poll(context.Background(), _date, nil)
	require.Equal(t, Result{}, res)
}

func TestSchedulePollSkipsUnregisteredRaceType(t *testing.T) {
	f := newFixture(t)

	res := f.pollers.Schedule.Poll(context.Background(), _date, []core.RaceType{core.Boat})
	require.Equal(t, Result{Skipped: 1}, res)
}

func TestSchedulePollSkipsUnmappableItems(t *testing.T) {
	f := newFixture(t)

	f.client.EXPECT().FetchSchedules(gomock.Any(), core.Horse, _date).Return([]provider.RawScheduleItem{
		{Track: "1", RaceNo: "1", StartTime: "1035"},
		{Track: "1", RaceNo: "two", StartTime: "1110"},
	}, nil)

	res := f.pollers.Schedule.Poll(context.Background(), _date, []core.RaceType{core.Horse})
	require.Equal(t, Result{Collected: 1, Skipped: 1}, res)
}

func TestSchedulePollFailureLogsScheduleKey(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)

	f.client.EXPECT().FetchSchedules(gomock.Any(), core.Horse, _date).
		Return(nil, errors.New("timeout")).Times(3)

	res := f.pollers.Schedule.Poll(context.Background(), _date, []core.RaceType{core.Horse})
	require.Equal(Result{Errors: 1}, res)

	failures, err := f.ledger.Find(persistedretry.Query{})
	require.NoError(err)
	require.Len(failures, 1)
	require.Equal(persistedretry.JobSchedulePoll, failures[0].JobType)
	require.Equal(persistedretry.EntityRace, failures[0].EntityType)
	require.Equal("horse-20241210", failures[0].EntityID)
}

func TestOddsPollSkipsMalformedID(t *testing.T) {
	require := require.New(t)

	logs, restore := log.Observe()
	defer restore()

	f := newFixture(t)

	res := f.pollers.Odds.Poll(context.Background(), []string{"bad-id"})
	require.Equal(Result{Skipped: 1}, res)
	require.Zero(res.Collected)
	require.Zero(res.Errors)

	entries := logs.FilterMessage("Skipping target").FilterField(zap.String("entity_id", "bad-id")).All()
	require.Len(entries, 1)
	require.Equal(zap.WarnLevel, entries[0].Level)

	failures, err := f.ledger.Find(persistedretry.Query{})
	require.NoError(err)
	require.Empty(failures)
	require.Empty(f.notifier.Events())
}

func TestOddsPollStampsCollectionTime(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	id := core.RaceIDFixture()

	f.client.EXPECT().FetchOdds(gomock.Any(), id).Return(oddsItems(), nil).Times(2)

	res := f.pollers.Odds.Poll(context.Background(), []string{id.String()})
	require.Equal(Result{Collected: 2}, res)

	odds, err := f.races.OddsForRace(id.String(), time.Time{})
	require.NoError(err)
	require.Len(odds, 2)
	require.True(_now.Equal(odds[0].Time))

	// Same second: the snapshot already exists.
	res = f.pollers.Odds.Poll(context.Background(), []string{id.String()})
	require.Equal(Result{Skipped: 2}, res)

	odds, err = f.races.OddsForRace(id.String(), time.Time{})
	require.NoError(err)
	require.Len(odds, 2)
}

func TestOddsPollFailureDoesNotAbortBatch(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)

	ok, err := core.ParseRaceID("horse-1-1-20241210")
	require.NoError(err)
	bad, err := core.ParseRaceID("horse-1-2-20241210")
	require.NoError(err)

	f.client.EXPECT().FetchOdds(gomock.Any(), ok).Return(oddsItems(), nil)
	f.client.EXPECT().FetchOdds(gomock.Any(), bad).Return(nil, errors.New("503")).Times(3)

	res := f.pollers.Odds.Poll(context.Background(), []string{ok.String(), bad.String(), "bad-id"})
	require.Equal(Result{Collected: 2, Skipped: 1, Errors: 1}, res)

	failures, err := f.ledger.Find(persistedretry.Query{})
	require.NoError(err)
	require.Len(failures, 1)
	require.Equal(persistedretry.JobOddsPoll, failures[0].JobType)
	require.Equal(persistedretry.EntityOdds, failures[0].EntityType)
	require.Equal(bad.String(), failures[0].EntityID)
	require.Equal(persistedretry.StatusPending, failures[0].Status)
	require.Equal(float64(3), failures[0].Metadata["attempts"])

	require.Equal([]notify.Kind{notify.KindIngestionFailure}, f.notifier.Kinds())
}

func TestCancelledPollIsNotLedgered(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.client.EXPECT().FetchOdds(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, id core.RaceID) ([]provider.RawOddsItem, error) {
			return nil, ctx.Err()
		}).Times(3)

	res := f.pollers.Odds.Poll(ctx, []string{
		"horse-1-1-20241210",
		"horse-1-2-20241210",
		"horse-1-3-20241210",
	})
	require.Equal(Result{Errors: 3}, res)

	failures, err := f.ledger.Find(persistedretry.Query{})
	require.NoError(err)
	require.Empty(failures)
	require.Empty(f.notifier.Kinds())
}

func TestPermanentFetchErrorIsNotRetried(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	id := core.RaceIDFixture()

	f.client.EXPECT().FetchEntries(gomock.Any(), id).Return(nil, backoff.Permanent(errors.New("400")))

	res := f.pollers.Entry.Poll(context.Background(), []string{id.String()})
	require.Equal(Result{Errors: 1}, res)

	failures, err := f.ledger.Find(persistedretry.Query{JobType: persistedretry.JobEntryPoll})
	require.NoError(err)
	require.Len(failures, 1)
}

func TestStoreFailureIsNotRetriedNorLedgered(t *testing.T) {
	require := require.New(t)

	f := newFixtureWithStore(t, func(s Store) Store {
		return failingStore{s, errors.New("database is locked")}
	})
	id := core.RaceIDFixture()

	// Fetched exactly once.
	f.client.EXPECT().FetchOdds(gomock.Any(), id).Return(oddsItems(), nil)

	res := f.pollers.Odds.Poll(context.Background(), []string{id.String()})
	require.Equal(Result{Errors: 1}, res)

	failures, err := f.ledger.Find(persistedretry.Query{})
	require.NoError(err)
	require.Empty(failures)
	require.Equal([]notify.Kind{notify.KindStoreFailure}, f.notifier.Kinds())
}

func TestEntryPoll(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	id := core.RaceIDFixture()

	f.client.EXPECT().FetchEntries(gomock.Any(), id).Return([]provider.RawEntryItem{
		{EntryNo: "1", Name: "Thunder", Weight: "54"},
		{EntryNo: "2", Name: "Lightning", Scratched: "Y"},
	}, nil)

	res := f.pollers.Entry.Poll(context.Background(), []string{id.String()})
	require.Equal(Result{Collected: 2}, res)

	entries, err := f.races.Entries(id.String())
	require.NoError(err)
	require.Len(entries, 2)
	require.True(entries[1].Scratched)
}

func TestResultPollMarksRaceFinished(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	id := core.RaceIDFixture()
	require.NoError(f.races.UpsertRaces([]core.Race{core.RaceFixture(id, _now.Add(-30*time.Minute))}))

	f.client.EXPECT().FetchResults(gomock.Any(), id).Return([]provider.RawResultItem{
		{EntryNo: "2", Rank: "1"},
		{EntryNo: "1", Rank: "2"},
	}, nil)

	res := f.pollers.Result.Poll(context.Background(), []string{id.String()})
	require.Equal(Result{Collected: 2}, res)

	race, err := f.races.GetRace(id.String())
	require.NoError(err)
	require.Equal(core.RaceFinished, race.Status)

	results, err := f.races.Results(id.String())
	require.NoError(err)
	require.Len(results, 2)
}

func TestResultPollWithoutResultsKeepsRaceScheduled(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	id := core.RaceIDFixture()
	require.NoError(f.races.UpsertRaces([]core.Race{core.RaceFixture(id, _now.Add(-30*time.Minute))}))

	f.client.EXPECT().FetchResults(gomock.Any(), id).Return(nil, nil)

	res := f.pollers.Result.Poll(context.Background(), []string{id.String()})
	require.Equal(Result{}, res)

	race, err := f.races.GetRace(id.String())
	require.NoError(err)
	require.Equal(core.RaceScheduled, race.Status)
}

func TestInvokersCoverEveryJobType(t *testing.T) {
	f := newFixture(t)

	invokers := f.pollers.Invokers()
	for _, j := range persistedretry.JobTypes() {
		require.NotNil(t, invokers[j], string(j))
	}
}

func TestRetryDoesNotLogNewFailures(t *testing.T) {
	require := require.New(t)

	f := newFixture(t)
	id := core.RaceIDFixture()
	invokers := f.pollers.Invokers()

	f.client.EXPECT().FetchOdds(gomock.Any(), id).Return(nil, errors.New("503")).Times(3)
	require.Error(invokers[persistedretry.JobOddsPoll](context.Background(), id.String()))

	f.client.EXPECT().FetchSchedules(gomock.Any(), core.Horse, _date).Return(nil, nil)
	require.NoError(invokers[persistedretry.JobSchedulePoll](context.Background(), "horse-20241210"))

	require.Error(invokers[persistedretry.JobEntryPoll](context.Background(), "bad-id"))
	require.Error(invokers[persistedretry.JobSchedulePoll](context.Background(), "horse-1-1-20241210"))

	failures, err := f.ledger.Find(persistedretry.Query{})
	require.NoError(err)
	require.Empty(failures)
	require.Empty(f.notifier.Events())
}
