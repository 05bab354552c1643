package persistedretry

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/jmoiron/sqlx"
)

// SQLStore is a Store backed by the ingestion_failure table of the local
// database.
type SQLStore struct {
	config Config
	db     *sqlx.DB
	clk    clock.Clock
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a new SQLStore.
func NewSQLStore(config Config, db *sqlx.DB, clk clock.Clock) *SQLStore {
	return &SQLStore{config.applyDefaults(), db, clk}
}

func (s *SQLStore) now() time.Time {
	return s.clk.Now().UTC().Truncate(time.Second)
}

// LogFailure inserts f as a pending record.
func (s *SQLStore) LogFailure(f NewFailure) (*Failure, error) {
	now := s.now()
	if f.Metadata == nil {
		f.Metadata = Metadata{}
	}
	res, err := s.db.Exec(`
		INSERT INTO ingestion_failure (
			job_type, entity_type, entity_id, error_message, error_detail,
			retry_count, max_retries, status, next_retry_at,
			created_at, updated_at, metadata
		) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)
	`,
		f.JobType, f.EntityType, f.EntityID, f.ErrorMessage, f.ErrorDetail,
		s.config.MaxRetries, StatusPending, now.Add(s.config.Backoff.Duration(0)),
		now, now, f.Metadata)
	if err != nil {
		return nil, fmt.Errorf("insert: %s", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %s", err)
	}
	return s.Get(id)
}

// GetRetryable returns pending records which are due and within budget.
func (s *SQLStore) GetRetryable(limit int) ([]*Failure, error) {
	var fs []*Failure
	err := s.db.Select(&fs, `
		SELECT * FROM ingestion_failure
		WHERE status=? AND next_retry_at < ? AND retry_count < max_retries
		ORDER BY next_retry_at, id
		LIMIT ?
	`, StatusPending, s.now(), limit)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// allowedFrom lists the statuses a record may hold before moving to the key
// status through UpdateStatus.
var allowedFrom = map[Status][]Status{
	StatusRetrying: {StatusPending},
	StatusResolved: {StatusRetrying},
	StatusPending:  {StatusRetrying},
}

// UpdateStatus transitions record id to status. The transition is a single
// conditional update, so of two concurrent callers claiming the same record
// exactly one succeeds and the other gets ErrInvalidTransition.
func (s *SQLStore) UpdateStatus(id int64, status Status) (*Failure, error) {
	from, ok := allowedFrom[status]
	if !ok {
		return nil, fmt.Errorf("to %s: %w", status, ErrInvalidTransition)
	}
	now := s.now()
	var resolvedAt *time.Time
	if status == StatusResolved {
		resolvedAt = &now
	}
	query, args, err := sqlx.In(`
		UPDATE ingestion_failure
		SET status=?, resolved_at=?, updated_at=?
		WHERE id=? AND status IN (?)
	`, status, resolvedAt, now, id, from)
	if err != nil {
		return nil, err
	}
	res, err := s.db.Exec(s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("update: %s", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %s", err)
	} else if n == 0 {
		f, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s to %s: %w", f.Status, status, ErrInvalidTransition)
	}
	return s.Get(id)
}

// IncrementRetryCount atomically bumps the retry count of record id.
func (s *SQLStore) IncrementRetryCount(id int64) (*Failure, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin: %s", err)
	}
	defer tx.Rollback()

	var f Failure
	if err := tx.Get(&f, `SELECT * FROM ingestion_failure WHERE id=?`, id); err == sql.ErrNoRows {
		return nil, ErrFailureNotFound
	} else if err != nil {
		return nil, err
	}
	if f.Status != StatusPending && f.Status != StatusRetrying {
		return nil, fmt.Errorf("increment %s: %w", f.Status, ErrInvalidTransition)
	}

	now := s.now()
	f.RetryCount++
	f.Status = StatusPending
	f.NextRetryAt = now.Add(s.config.Backoff.Duration(f.RetryCount))
	if f.RetryCount >= f.MaxRetries {
		f.RetryCount = f.MaxRetries
		f.Status = StatusMaxRetriesExceeded
	}
	f.ResolvedAt = nil
	f.UpdatedAt = now
	_, err = tx.Exec(`
		UPDATE ingestion_failure
		SET retry_count=?, status=?, next_retry_at=?, resolved_at=NULL, updated_at=?
		WHERE id=?
	`, f.RetryCount, f.Status, f.NextRetryAt, f.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update: %s", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %s", err)
	}
	return &f, nil
}

// ResetRetrying returns records left in retrying, e.g. by a crash mid
// recovery, to pending.
func (s *SQLStore) ResetRetrying() (int, error) {
	res, err := s.db.Exec(`
		UPDATE ingestion_failure SET status=?, updated_at=? WHERE status=?
	`, StatusPending, s.now(), StatusRetrying)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Get returns record id.
func (s *SQLStore) Get(id int64) (*Failure, error) {
	var f Failure
	err := s.db.Get(&f, `SELECT * FROM ingestion_failure WHERE id=?`, id)
	if err == sql.ErrNoRows {
		return nil, ErrFailureNotFound
	} else if err != nil {
		return nil, err
	}
	return &f, nil
}

// Find returns records matching q, newest first.
func (s *SQLStore) Find(q Query) ([]*Failure, error) {
	var conds []string
	var args []interface{}
	if q.Status != "" {
		conds = append(conds, "status=?")
		args = append(args, q.Status)
	}
	if q.JobType != "" {
		conds = append(conds, "job_type=?")
		args = append(args, q.JobType)
	}
	if q.EntityID != "" {
		conds = append(conds, "entity_id=?")
		args = append(args, q.EntityID)
	}
	query := "SELECT * FROM ingestion_failure"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	var fs []*Failure
	if err := s.db.Select(&fs, query, args...); err != nil {
		return nil, err
	}
	return fs, nil
}

// Stats counts records per status. Every status is present.
func (s *SQLStore) Stats() (Stats, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	err := s.db.Select(&rows, `
		SELECT status, COUNT(*) AS count FROM ingestion_failure GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	stats := make(Stats)
	for _, st := range Statuses() {
		stats[st] = 0
	}
	for _, r := range rows {
		stats[r.Status] = r.Count
	}
	return stats, nil
}
