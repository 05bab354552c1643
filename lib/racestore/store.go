// Package racestore persists normalized races, entries, results and odds.
// Every write is an idempotent upsert keyed by the natural identifier of the
// record, so pollers may safely re-apply the same mapped data on retry.
package racestore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paddock/raceline/core"

	"github.com/andres-erbsen/clock"
	"github.com/jmoiron/sqlx"
)

// ErrRaceNotFound is returned when a race does not exist.
var ErrRaceNotFound = errors.New("race not found")

const _upsertRace = `
	INSERT INTO race (
		id, race_type, track, track_name, race_no, race_date,
		start_time, distance, grade, status, updated_at
	) VALUES (
		:id, :race_type, :track, :track_name, :race_no, :race_date,
		:start_time, :distance, :grade, :status, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		track_name=excluded.track_name,
		start_time=excluded.start_time,
		distance=excluded.distance,
		grade=excluded.grade,
		status=CASE WHEN excluded.status='scheduled' THEN race.status ELSE excluded.status END,
		updated_at=excluded.updated_at
`

const _upsertEntry = `
	INSERT INTO entry (
		race_id, entry_no, name, rider, trainer, weight, scratched, updated_at
	) VALUES (
		:race_id, :entry_no, :name, :rider, :trainer, :weight, :scratched, :updated_at
	)
	ON CONFLICT(race_id, entry_no) DO UPDATE SET
		name=excluded.name,
		rider=excluded.rider,
		trainer=excluded.trainer,
		weight=excluded.weight,
		scratched=excluded.scratched,
		updated_at=excluded.updated_at
`

const _upsertResult = `
	INSERT INTO result (
		race_id, entry_no, rank, finish_time, win_payout, place_payout, updated_at
	) VALUES (
		:race_id, :entry_no, :rank, :finish_time, :win_payout, :place_payout, :updated_at
	)
	ON CONFLICT(race_id, entry_no) DO UPDATE SET
		rank=excluded.rank,
		finish_time=excluded.finish_time,
		win_payout=excluded.win_payout,
		place_payout=excluded.place_payout,
		updated_at=excluded.updated_at
`

// Odds snapshots are immutable once recorded, so duplicates are dropped.
const _insertOdds = `
	INSERT INTO odds (time, race_id, entry_no, win, place)
	VALUES (:time, :race_id, :entry_no, :win, :place)
	ON CONFLICT(time, race_id, entry_no) DO NOTHING
`

// Store is the durable store for race data. Timestamps are stored in UTC at
// second precision so they order lexicographically.
type Store struct {
	db  *sqlx.DB
	clk clock.Clock
}

// New creates a new Store.
func New(db *sqlx.DB, clk clock.Clock) *Store {
	return &Store{db, clk}
}

func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// UpsertRaces inserts races or updates the mutable fields of existing ones. A
// race whose incoming status is scheduled keeps its stored status, so a
// schedule refresh never reopens a finished race.
func (s *Store) UpsertRaces(races []core.Race) error {
	now := ts(s.clk.Now())
	rows := make([]interface{}, len(races))
	for i, r := range races {
		r.StartTime = ts(r.StartTime)
		r.UpdatedAt = now
		if r.Status == "" {
			r.Status = core.RaceScheduled
		}
		rows[i] = r
	}
	_, err := s.execBatch(_upsertRace, rows)
	return err
}

// UpsertEntries inserts entries or updates existing ones keyed by
// (race_id, entry_no).
func (s *Store) UpsertEntries(entries []core.Entry) error {
	now := ts(s.clk.Now())
	rows := make([]interface{}, len(entries))
	for i, e := range entries {
		e.UpdatedAt = now
		rows[i] = e
	}
	_, err := s.execBatch(_upsertEntry, rows)
	return err
}

// UpsertResults inserts results or updates existing ones keyed by
// (race_id, entry_no).
func (s *Store) UpsertResults(results []core.Result) error {
	now := ts(s.clk.Now())
	rows := make([]interface{}, len(results))
	for i, r := range results {
		r.UpdatedAt = now
		rows[i] = r
	}
	_, err := s.execBatch(_upsertResult, rows)
	return err
}

// InsertOdds records odds snapshots, ignoring any whose (time, race_id,
// entry_no) already exists. Returns the number of rows actually inserted.
func (s *Store) InsertOdds(odds []core.OddsSnapshot) (int, error) {
	rows := make([]interface{}, len(odds))
	for i, o := range odds {
		o.Time = ts(o.Time)
		rows[i] = o
	}
	n, err := s.execBatch(_insertOdds, rows)
	return int(n), err
}

// execBatch runs query once per row inside a single transaction.
func (s *Store) execBatch(query string, rows []interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("begin: %s", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(query)
	if err != nil {
		return 0, fmt.Errorf("prepare: %s", err)
	}
	defer stmt.Close()

	var affected int64
	for _, row := range rows {
		res, err := stmt.Exec(row)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %s", err)
		}
		affected += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %s", err)
	}
	return affected, nil
}

// SetRaceStatus updates the status of race id.
func (s *Store) SetRaceStatus(id string, status core.RaceStatus) error {
	res, err := s.db.Exec(
		`UPDATE race SET status=?, updated_at=? WHERE id=?`,
		status, ts(s.clk.Now()), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrRaceNotFound
	}
	return nil
}

// GetRace returns the race with id.
func (s *Store) GetRace(id string) (core.Race, error) {
	var r core.Race
	err := s.db.Get(&r, `SELECT * FROM race WHERE id=?`, id)
	if err == sql.ErrNoRows {
		return core.Race{}, ErrRaceNotFound
	} else if err != nil {
		return core.Race{}, err
	}
	return r, nil
}

// RacesByDate returns the races held on date, optionally restricted to
// types, ordered by start time.
func (s *Store) RacesByDate(date time.Time, types ...core.RaceType) ([]core.Race, error) {
	query := `SELECT * FROM race WHERE race_date=? ORDER BY start_time, id`
	args := []interface{}{core.FormatDate(date)}
	if len(types) > 0 {
		var err error
		query, args, err = sqlx.In(
			`SELECT * FROM race WHERE race_date=? AND race_type IN (?) ORDER BY start_time, id`,
			core.FormatDate(date), types)
		if err != nil {
			return nil, fmt.Errorf("expand race types: %s", err)
		}
	}
	var races []core.Race
	if err := s.db.Select(&races, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return races, nil
}

// RacesStartingBetween returns races with from < start_time <= to, ordered
// by start time.
func (s *Store) RacesStartingBetween(from, to time.Time) ([]core.Race, error) {
	var races []core.Race
	err := s.db.Select(&races, `
		SELECT * FROM race
		WHERE start_time > ? AND start_time <= ?
		ORDER BY start_time, id
	`, ts(from), ts(to))
	if err != nil {
		return nil, err
	}
	return races, nil
}

// Entries returns the line-up of race id ordered by entry number.
func (s *Store) Entries(raceID string) ([]core.Entry, error) {
	var entries []core.Entry
	err := s.db.Select(&entries, `
		SELECT * FROM entry WHERE race_id=? ORDER BY entry_no
	`, raceID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Results returns the results of race id ordered by rank.
func (s *Store) Results(raceID string) ([]core.Result, error) {
	var results []core.Result
	err := s.db.Select(&results, `
		SELECT * FROM result WHERE race_id=? ORDER BY rank, entry_no
	`, raceID)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// OddsForRace returns every odds snapshot of race id recorded at or after
// since, oldest first.
func (s *Store) OddsForRace(raceID string, since time.Time) ([]core.OddsSnapshot, error) {
	var odds []core.OddsSnapshot
	err := s.db.Select(&odds, `
		SELECT * FROM odds
		WHERE race_id=? AND time >= ?
		ORDER BY time, entry_no
	`, raceID, ts(since))
	if err != nil {
		return nil, err
	}
	return odds, nil
}
