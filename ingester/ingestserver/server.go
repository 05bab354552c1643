// Package ingestserver exposes the ingester's job triggers and its operator
// and read APIs over HTTP.
package ingestserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Container images ship without zoneinfo.

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/collector"
	"github.com/paddock/raceline/lib/middleware"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/poller"
	"github.com/paddock/raceline/lib/racestore"
	"github.com/paddock/raceline/utils/handler"
	"github.com/paddock/raceline/utils/log"

	"github.com/andres-erbsen/clock"
	"github.com/go-chi/chi"
	jsoniter "github.com/json-iterator/go"
	"github.com/uber-go/tally"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SchedulePoller collects race schedules.
type SchedulePoller interface {
	Poll(ctx context.Context, date time.Time, raceTypes []core.RaceType) poller.Result
}

// RacePoller collects data of individual races.
type RacePoller interface {
	Poll(ctx context.Context, ids []string) poller.Result
}

// Pollers groups the pollers triggered through /jobs.
type Pollers struct {
	Schedule SchedulePoller
	Entries  RacePoller
	Results  RacePoller
	Odds     RacePoller
}

// Ticker runs one collection cycle on demand.
type Ticker interface {
	Tick(ctx context.Context) (collector.TickResult, error)
}

// RaceStore reads stored races.
type RaceStore interface {
	GetRace(id string) (core.Race, error)
	RacesByDate(date time.Time, types ...core.RaceType) ([]core.Race, error)
	Entries(raceID string) ([]core.Entry, error)
	Results(raceID string) ([]core.Result, error)
	OddsForRace(raceID string, since time.Time) ([]core.OddsSnapshot, error)
}

// Server defines the ingester HTTP server.
type Server struct {
	config   Config
	stats    tally.Scope
	clk      clock.Clock
	loc      *time.Location
	secret   string
	pollers  Pollers
	ticker   Ticker
	recovery persistedretry.Manager
	ledger   persistedretry.Store
	races    RaceStore
}

// New creates a new Server. Every endpoint but /health requires secret.
func New(
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	secret string,
	pollers Pollers,
	ticker Ticker,
	recovery persistedretry.Manager,
	ledger persistedretry.Store,
	races RaceStore) (*Server, error) {

	config = config.applyDefaults()

	loc, err := time.LoadLocation(config.Location)
	if err != nil {
		return nil, fmt.Errorf("load location: %s", err)
	}

	stats = stats.Tagged(map[string]string{
		"module": "ingestserver",
	})

	return &Server{
		config:   config,
		stats:    stats,
		clk:      clk,
		loc:      loc,
		secret:   secret,
		pollers:  pollers,
		ticker:   ticker,
		recovery: recovery,
		ledger:   ledger,
		races:    races,
	}, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.StatusCounter(s.stats))
	r.Use(middleware.LatencyTimer(s.stats))

	r.Get("/health", s.healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SharedSecret(s.secret))

		r.Post("/jobs/tick", handler.Wrap(s.tickHandler))
		r.Post("/jobs/schedule", handler.Wrap(s.scheduleHandler))
		r.Post("/jobs/entries", handler.Wrap(s.racePollHandler(s.pollers.Entries)))
		r.Post("/jobs/results", handler.Wrap(s.racePollHandler(s.pollers.Results)))
		r.Post("/jobs/odds", handler.Wrap(s.racePollHandler(s.pollers.Odds)))
		r.Post("/jobs/recovery", handler.Wrap(s.recoveryHandler))

		r.Get("/failures", handler.Wrap(s.listFailuresHandler))
		r.Get("/failures/stats", handler.Wrap(s.failureStatsHandler))
		r.Get("/failures/{id}", handler.Wrap(s.getFailureHandler))
		r.Post("/failures/{id}/retry", handler.Wrap(s.retryFailureHandler))

		r.Get("/races", handler.Wrap(s.listRacesHandler))
		r.Get("/races/{id}", handler.Wrap(s.getRaceHandler))
		r.Get("/races/{id}/odds", handler.Wrap(s.getOddsHandler))
	})

	return r
}

// detach returns the context jobs triggered by r run on. Jobs run to
// completion even if the caller stops waiting for the response.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "OK")
}

func (s *Server) tickHandler(w http.ResponseWriter, r *http.Request) error {
	if s.ticker == nil {
		return handler.Errorf("collector disabled").Status(http.StatusServiceUnavailable)
	}
	res, err := s.ticker.Tick(detach(r))
	if err != nil {
		return handler.Errorf("tick: %s", err)
	}
	return handler.WriteJSON(w, http.StatusOK, res)
}

// scheduleHandler polls the schedules of ?date (default today) for
// ?race_types (default every registered type).
func (s *Server) scheduleHandler(w http.ResponseWriter, r *http.Request) error {
	date, err := s.parseDate(r)
	if err != nil {
		return err
	}
	types, err := parseRaceTypes(r.URL.Query().Get("race_types"))
	if err != nil {
		return err
	}
	res := s.pollers.Schedule.Poll(detach(r), date, types)
	return handler.WriteJSON(w, http.StatusOK, res)
}

type racePollRequest struct {
	RaceIDs []string `json:"race_ids"`
}

func (s *Server) racePollHandler(p RacePoller) handler.ErrHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		defer r.Body.Close()
		var req racePollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return handler.Errorf("json decode: %s", err).Status(http.StatusBadRequest)
		}
		if len(req.RaceIDs) == 0 {
			return handler.Errorf("race_ids required").Status(http.StatusBadRequest)
		}
		if len(req.RaceIDs) > s.config.MaxBatchSize {
			return handler.Errorf(
				"too many race_ids: %d > %d", len(req.RaceIDs), s.config.MaxBatchSize).
				Status(http.StatusBadRequest)
		}
		res := p.Poll(detach(r), req.RaceIDs)
		return handler.WriteJSON(w, http.StatusOK, res)
	}
}

func (s *Server) recoveryHandler(w http.ResponseWriter, r *http.Request) error {
	limit, err := parseIntParam(r, "limit")
	if err != nil {
		return err
	}
	res, err := s.recovery.ProcessFailures(detach(r), limit)
	if err != nil {
		return handler.Errorf("process failures: %s", err)
	}
	log.Infow("Manual recovery pass complete",
		"processed", res.Processed,
		"recovered", res.Recovered,
		"failed", res.Failed)
	return handler.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) listFailuresHandler(w http.ResponseWriter, r *http.Request) error {
	var q persistedretry.Query
	params := r.URL.Query()
	if v := params.Get("status"); v != "" {
		status, err := persistedretry.ParseStatus(v)
		if err != nil {
			return handler.Errorf("%s", err).Status(http.StatusBadRequest)
		}
		q.Status = status
	}
	if v := params.Get("job_type"); v != "" {
		jobType, err := persistedretry.ParseJobType(v)
		if err != nil {
			return handler.Errorf("%s", err).Status(http.StatusBadRequest)
		}
		q.JobType = jobType
	}
	q.EntityID = params.Get("entity_id")

	var err error
	if q.Limit, err = parseIntParam(r, "limit"); err != nil {
		return err
	}
	if q.Limit == 0 {
		q.Limit = s.config.DefaultListLimit
	}
	if q.Offset, err = parseIntParam(r, "offset"); err != nil {
		return err
	}

	failures, err := s.ledger.Find(q)
	if err != nil {
		return handler.Errorf("find failures: %s", err)
	}
	if failures == nil {
		failures = []*persistedretry.Failure{}
	}
	return handler.WriteJSON(w, http.StatusOK, failures)
}

func (s *Server) failureStatsHandler(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.ledger.Stats()
	if err != nil {
		return handler.Errorf("failure stats: %s", err)
	}
	return handler.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) getFailureHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := parseFailureID(r)
	if err != nil {
		return err
	}
	f, err := s.ledger.Get(id)
	if err == persistedretry.ErrFailureNotFound {
		return handler.ErrorStatus(http.StatusNotFound)
	} else if err != nil {
		return handler.Errorf("get failure: %s", err)
	}
	return handler.WriteJSON(w, http.StatusOK, f)
}

// retryFailureHandler forces an immediate retry of a pending failure,
// regardless of when it is next due.
func (s *Server) retryFailureHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := parseFailureID(r)
	if err != nil {
		return err
	}
	f, err := s.recovery.Retry(detach(r), id)
	if err != nil {
		switch {
		case errors.Is(err, persistedretry.ErrFailureNotFound):
			return handler.ErrorStatus(http.StatusNotFound)
		case errors.Is(err, persistedretry.ErrInvalidTransition):
			return handler.Errorf("%s", err).Status(http.StatusConflict)
		default:
			return handler.Errorf("retry failure: %s", err)
		}
	}
	return handler.WriteJSON(w, http.StatusOK, f)
}

func (s *Server) listRacesHandler(w http.ResponseWriter, r *http.Request) error {
	date, err := s.parseDate(r)
	if err != nil {
		return err
	}
	types, err := parseRaceTypes(r.URL.Query().Get("race_types"))
	if err != nil {
		return err
	}
	races, err := s.races.RacesByDate(date, types...)
	if err != nil {
		return handler.Errorf("races by date: %s", err)
	}
	if races == nil {
		races = []core.Race{}
	}
	return handler.WriteJSON(w, http.StatusOK, races)
}

// RaceDetail is the response of GET /races/{id}.
type RaceDetail struct {
	core.Race
	Entries []core.Entry  `json:"entries"`
	Results []core.Result `json:"results"`
}

func (s *Server) getRaceHandler(w http.ResponseWriter, r *http.Request) error {
	race, err := s.getRace(r)
	if err != nil {
		return err
	}
	entries, err := s.races.Entries(race.ID)
	if err != nil {
		return handler.Errorf("entries: %s", err)
	}
	results, err := s.races.Results(race.ID)
	if err != nil {
		return handler.Errorf("results: %s", err)
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	if results == nil {
		results = []core.Result{}
	}
	return handler.WriteJSON(w, http.StatusOK, RaceDetail{race, entries, results})
}

// getOddsHandler returns the odds snapshots of a race, optionally only those
// recorded at or after ?since (RFC3339).
func (s *Server) getOddsHandler(w http.ResponseWriter, r *http.Request) error {
	race, err := s.getRace(r)
	if err != nil {
		return err
	}
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		since, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return handler.Errorf("invalid since: %s", err).Status(http.StatusBadRequest)
		}
	}
	odds, err := s.races.OddsForRace(race.ID, since)
	if err != nil {
		return handler.Errorf("odds: %s", err)
	}
	if odds == nil {
		odds = []core.OddsSnapshot{}
	}
	return handler.WriteJSON(w, http.StatusOK, odds)
}

func (s *Server) getRace(r *http.Request) (core.Race, error) {
	id := chi.URLParam(r, "id")
	if _, err := core.ParseRaceID(id); err != nil {
		return core.Race{}, handler.Errorf("%s", err).Status(http.StatusBadRequest)
	}
	race, err := s.races.GetRace(id)
	if err == racestore.ErrRaceNotFound {
		return core.Race{}, handler.ErrorStatus(http.StatusNotFound)
	} else if err != nil {
		return core.Race{}, handler.Errorf("get race: %s", err)
	}
	return race, nil
}

// parseDate parses ?date as YYYYMMDD, defaulting to today.
func (s *Server) parseDate(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return core.Day(s.clk.Now().In(s.loc)), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, handler.Errorf("%s", err).Status(http.StatusBadRequest)
	}
	return d, nil
}

// parseRaceTypes parses a comma separated list of race types.
func parseRaceTypes(v string) ([]core.RaceType, error) {
	if v == "" {
		return nil, nil
	}
	var types []core.RaceType
	for _, s := range strings.Split(v, ",") {
		t, err := core.ParseRaceType(strings.TrimSpace(s))
		if err != nil {
			return nil, handler.Errorf("%s", err).Status(http.StatusBadRequest)
		}
		types = append(types, t)
	}
	return types, nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, handler.Errorf("invalid %s: %q", name, v).Status(http.StatusBadRequest)
	}
	return n, nil
}

func parseFailureID(r *http.Request) (int64, error) {
	v := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, handler.Errorf("invalid failure id: %q", v).Status(http.StatusBadRequest)
	}
	return id, nil
}
