// Package ingestclient is a client for the ingester HTTP API.
package ingestclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/collector"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/poller"
	"github.com/paddock/raceline/utils/httputil"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client errors.
var (
	ErrFailureNotFound = errors.New("failure not found")
	ErrRaceNotFound    = errors.New("race not found")
	ErrNotRetryable    = errors.New("failure is not pending")
)

// Job names a race poll job.
type Job string

// Race poll jobs.
const (
	JobEntries Job = "entries"
	JobResults Job = "results"
	JobOdds    Job = "odds"
)

// Client defines a client for accessing the ingester.
type Client interface {
	Tick(ctx context.Context) (collector.TickResult, error)
	PollSchedule(ctx context.Context, date string, raceTypes []string) (poller.Result, error)
	PollRaces(ctx context.Context, job Job, ids []string) (poller.Result, error)
	ProcessFailures(ctx context.Context, limit int) (persistedretry.Result, error)

	ListFailures(ctx context.Context, q persistedretry.Query) ([]*persistedretry.Failure, error)
	FailureStats(ctx context.Context) (persistedretry.Stats, error)
	GetFailure(ctx context.Context, id int64) (*persistedretry.Failure, error)
	RetryFailure(ctx context.Context, id int64) (*persistedretry.Failure, error)

	Races(ctx context.Context, date string, raceTypes []string) ([]core.Race, error)
	Odds(ctx context.Context, raceID string, since time.Time) ([]core.OddsSnapshot, error)
}

// HTTPClient provides a wrapper for HTTP operations on an ingester.
type HTTPClient struct {
	addr    string
	secret  string
	timeout time.Duration
}

// New creates a new client for an ingester at addr. addr is either host:port
// or a base URL.
func New(addr, secret string, timeout time.Duration) *HTTPClient {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPClient{strings.TrimRight(addr, "/"), secret, timeout}
}

func (c *HTTPClient) send(
	ctx context.Context, method, path string, params url.Values, body interface{}, out interface{}) error {

	u := c.addr + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	opts := []httputil.SendOption{
		httputil.SendContext(ctx),
		httputil.SendTimeout(c.timeout),
		httputil.SendHeaders(map[string]string{
			"Authorization": "Bearer " + c.secret,
			"Content-Type":  "application/json",
		}),
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("json encode: %s", err)
		}
		opts = append(opts, httputil.SendBody(bytes.NewReader(b)))
	}
	resp, err := httputil.Send(method, u, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("json decode: %s", err)
	}
	return nil
}

// Tick triggers one collection cycle.
func (c *HTTPClient) Tick(ctx context.Context) (collector.TickResult, error) {
	var res collector.TickResult
	err := c.send(ctx, http.MethodPost, "/jobs/tick", nil, nil, &res)
	return res, err
}

// PollSchedule polls the schedules of date (YYYYMMDD, empty for today) for
// raceTypes (empty for all).
func (c *HTTPClient) PollSchedule(
	ctx context.Context, date string, raceTypes []string) (poller.Result, error) {

	params := url.Values{}
	if date != "" {
		params.Set("date", date)
	}
	if len(raceTypes) > 0 {
		params.Set("race_types", strings.Join(raceTypes, ","))
	}
	var res poller.Result
	err := c.send(ctx, http.MethodPost, "/jobs/schedule", params, nil, &res)
	return res, err
}

// PollRaces runs job for the races ids.
func (c *HTTPClient) PollRaces(ctx context.Context, job Job, ids []string) (poller.Result, error) {
	var res poller.Result
	body := map[string][]string{"race_ids": ids}
	err := c.send(ctx, http.MethodPost, "/jobs/"+string(job), nil, body, &res)
	return res, err
}

// ProcessFailures runs one recovery pass over up to limit failures. Zero
// limit uses the server default.
func (c *HTTPClient) ProcessFailures(ctx context.Context, limit int) (persistedretry.Result, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var res persistedretry.Result
	err := c.send(ctx, http.MethodPost, "/jobs/recovery", params, nil, &res)
	return res, err
}

// ListFailures lists failure records matching q, newest first.
func (c *HTTPClient) ListFailures(
	ctx context.Context, q persistedretry.Query) ([]*persistedretry.Failure, error) {

	params := url.Values{}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.JobType != "" {
		params.Set("job_type", string(q.JobType))
	}
	if q.EntityID != "" {
		params.Set("entity_id", q.EntityID)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	var fs []*persistedretry.Failure
	err := c.send(ctx, http.MethodGet, "/failures", params, nil, &fs)
	return fs, err
}

// FailureStats counts failure records per status.
func (c *HTTPClient) FailureStats(ctx context.Context) (persistedretry.Stats, error) {
	var stats persistedretry.Stats
	err := c.send(ctx, http.MethodGet, "/failures/stats", nil, nil, &stats)
	return stats, err
}

// GetFailure returns failure record id. Returns ErrFailureNotFound if the
// record does not exist.
func (c *HTTPClient) GetFailure(ctx context.Context, id int64) (*persistedretry.Failure, error) {
	var f persistedretry.Failure
	err := c.send(ctx, http.MethodGet, fmt.Sprintf("/failures/%d", id), nil, nil, &f)
	if httputil.IsNotFound(err) {
		return nil, ErrFailureNotFound
	} else if err != nil {
		return nil, err
	}
	return &f, nil
}

// RetryFailure immediately retries pending failure record id and returns the
// record as it stands afterwards. Returns ErrNotRetryable if the record is not
// pending.
func (c *HTTPClient) RetryFailure(ctx context.Context, id int64) (*persistedretry.Failure, error) {
	var f persistedretry.Failure
	err := c.send(ctx, http.MethodPost, fmt.Sprintf("/failures/%d/retry", id), nil, nil, &f)
	if httputil.IsNotFound(err) {
		return nil, ErrFailureNotFound
	} else if httputil.IsStatus(err, http.StatusConflict) {
		return nil, ErrNotRetryable
	} else if err != nil {
		return nil, err
	}
	return &f, nil
}

// Races lists the races held on date (YYYYMMDD, empty for today).
func (c *HTTPClient) Races(ctx context.Context, date string, raceTypes []string) ([]core.Race, error) {
	params := url.Values{}
	if date != "" {
		params.Set("date", date)
	}
	if len(raceTypes) > 0 {
		params.Set("race_types", strings.Join(raceTypes, ","))
	}
	var races []core.Race
	err := c.send(ctx, http.MethodGet, "/races", params, nil, &races)
	return races, err
}

// Odds returns the odds snapshots of raceID recorded at or after since.
// Returns ErrRaceNotFound if the race does not exist.
func (c *HTTPClient) Odds(
	ctx context.Context, raceID string, since time.Time) ([]core.OddsSnapshot, error) {

	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	var odds []core.OddsSnapshot
	err := c.send(
		ctx, http.MethodGet, "/races/"+url.PathEscape(raceID)+"/odds", params, nil, &odds)
	if httputil.IsNotFound(err) {
		return nil, ErrRaceNotFound
	} else if err != nil {
		return nil, err
	}
	return odds, nil
}
