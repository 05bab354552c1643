package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/paddock/raceline/ingester/ingestclient"
	"github.com/paddock/raceline/lib/persistedretry"

	"github.com/alecthomas/kingpin"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type app struct {
	*kingpin.Application

	addr    *string
	secret  *string
	timeout *time.Duration

	failuresList   *kingpin.CmdClause
	listStatus     *string
	listJobType    *string
	listEntityID   *string
	listLimit      *int
	listOffset     *int
	failuresStats  *kingpin.CmdClause
	failuresGet    *kingpin.CmdClause
	getID          *int64
	failuresRetry  *kingpin.CmdClause
	retryID        *int64
	triggerTick    *kingpin.CmdClause
	triggerSched   *kingpin.CmdClause
	schedDate      *string
	schedTypes     *[]string
	triggerEntries *kingpin.CmdClause
	entriesIDs     *[]string
	triggerResults *kingpin.CmdClause
	resultsIDs     *[]string
	triggerOdds    *kingpin.CmdClause
	oddsIDs        *[]string
	triggerRecov   *kingpin.CmdClause
	recovLimit     *int
	races          *kingpin.CmdClause
	racesDate      *string
	racesTypes     *[]string
	odds           *kingpin.CmdClause
	oddsRaceID     *string
	oddsSince      *string
}

func newApp() *app {
	a := &app{Application: kingpin.New("racectl", "Raceline ingester operator tool")}

	a.addr = a.Flag("addr", "Ingester address").Default("localhost:8080").Envar("RACELINE_ADDR").String()
	a.secret = a.Flag("secret", "API shared secret").Envar("RACELINE_API_SECRET").String()
	a.timeout = a.Flag("timeout", "Request timeout").Default("5m").Duration()

	failures := a.Command("failures", "Inspect and retry recorded failures")

	a.failuresList = failures.Command("list", "List failures, newest first")
	a.listStatus = a.failuresList.Flag("status", "Filter by status").String()
	a.listJobType = a.failuresList.Flag("job-type", "Filter by job type").String()
	a.listEntityID = a.failuresList.Flag("entity", "Filter by entity id").String()
	a.listLimit = a.failuresList.Flag("limit", "Maximum number of failures").Short('n').Int()
	a.listOffset = a.failuresList.Flag("offset", "Failures to skip").Int()

	a.failuresStats = failures.Command("stats", "Count failures per status")

	a.failuresGet = failures.Command("get", "Show one failure")
	a.getID = a.failuresGet.Arg("id", "Failure id").Required().Int64()

	a.failuresRetry = failures.Command("retry", "Retry one pending failure now")
	a.retryID = a.failuresRetry.Arg("id", "Failure id").Required().Int64()

	trigger := a.Command("trigger", "Run a job on the ingester")

	a.triggerTick = trigger.Command("tick", "Run one collector tick")

	a.triggerSched = trigger.Command("schedule", "Poll race schedules")
	a.schedDate = a.triggerSched.Flag("date", "Race day as YYYYMMDD, default today").String()
	a.schedTypes = a.triggerSched.Flag("type", "Race type, repeatable").Strings()

	a.triggerEntries = trigger.Command("entries", "Poll race entries")
	a.entriesIDs = a.triggerEntries.Arg("race-ids", "Race ids").Required().Strings()

	a.triggerResults = trigger.Command("results", "Poll race results")
	a.resultsIDs = a.triggerResults.Arg("race-ids", "Race ids").Required().Strings()

	a.triggerOdds = trigger.Command("odds", "Poll race odds")
	a.oddsIDs = a.triggerOdds.Arg("race-ids", "Race ids").Required().Strings()

	a.triggerRecov = trigger.Command("recovery", "Process due failures once")
	a.recovLimit = a.triggerRecov.Flag("limit", "Maximum failures to process").Short('n').Int()

	a.races = a.Command("races", "List races of a day")
	a.racesDate = a.races.Flag("date", "Race day as YYYYMMDD, default today").String()
	a.racesTypes = a.races.Flag("type", "Race type, repeatable").Strings()

	a.odds = a.Command("odds", "List odds snapshots of a race")
	a.oddsRaceID = a.odds.Arg("race-id", "Race id").Required().String()
	a.oddsSince = a.odds.Flag("since", "Only snapshots after this RFC3339 time").String()

	return a
}

// execute runs the parsed command cmd against c and writes the JSON response
// to out.
func (a *app) execute(ctx context.Context, c ingestclient.Client, cmd string, out io.Writer) error {
	var res interface{}
	var err error

	switch cmd {
	case a.failuresList.FullCommand():
		var q persistedretry.Query
		if q, err = a.query(); err != nil {
			return err
		}
		res, err = c.ListFailures(ctx, q)
	case a.failuresStats.FullCommand():
		res, err = c.FailureStats(ctx)
	case a.failuresGet.FullCommand():
		res, err = c.GetFailure(ctx, *a.getID)
	case a.failuresRetry.FullCommand():
		res, err = c.RetryFailure(ctx, *a.retryID)
	case a.triggerTick.FullCommand():
		res, err = c.Tick(ctx)
	case a.triggerSched.FullCommand():
		res, err = c.PollSchedule(ctx, *a.schedDate, *a.schedTypes)
	case a.triggerEntries.FullCommand():
		res, err = c.PollRaces(ctx, ingestclient.JobEntries, *a.entriesIDs)
	case a.triggerResults.FullCommand():
		res, err = c.PollRaces(ctx, ingestclient.JobResults, *a.resultsIDs)
	case a.triggerOdds.FullCommand():
		res, err = c.PollRaces(ctx, ingestclient.JobOdds, *a.oddsIDs)
	case a.triggerRecov.FullCommand():
		res, err = c.ProcessFailures(ctx, *a.recovLimit)
	case a.races.FullCommand():
		res, err = c.Races(ctx, *a.racesDate, *a.racesTypes)
	case a.odds.FullCommand():
		var since time.Time
		if *a.oddsSince != "" {
			if since, err = time.Parse(time.RFC3339, *a.oddsSince); err != nil {
				return fmt.Errorf("parse since: %s", err)
			}
		}
		res, err = c.Odds(ctx, *a.oddsRaceID, since)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func (a *app) query() (persistedretry.Query, error) {
	q := persistedretry.Query{
		EntityID: *a.listEntityID,
		Limit:    *a.listLimit,
		Offset:   *a.listOffset,
	}
	if *a.listStatus != "" {
		s, err := persistedretry.ParseStatus(*a.listStatus)
		if err != nil {
			return q, err
		}
		q.Status = s
	}
	if *a.listJobType != "" {
		t, err := persistedretry.ParseJobType(*a.listJobType)
		if err != nil {
			return q, err
		}
		q.JobType = t
	}
	return q, nil
}
