package persistedretry

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Status is the lifecycle state of a failure record.
type Status string

// Failure statuses. Resolved and MaxRetriesExceeded are terminal.
const (
	StatusPending            Status = "pending"
	StatusRetrying           Status = "retrying"
	StatusResolved           Status = "resolved"
	StatusMaxRetriesExceeded Status = "max_retries_exceeded"
)

// Statuses returns every status.
func Statuses() []Status {
	return []Status{StatusPending, StatusRetrying, StatusResolved, StatusMaxRetriesExceeded}
}

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// JobType identifies the poller which produced a failure.
type JobType string

// Job types.
const (
	JobSchedulePoll JobType = "schedule_poll"
	JobEntryPoll    JobType = "entry_poll"
	JobResultPoll   JobType = "result_poll"
	JobOddsPoll     JobType = "odds_poll"
)

// JobTypes returns every job type. A recovery dispatch table must cover all
// of them.
func JobTypes() []JobType {
	return []JobType{JobSchedulePoll, JobEntryPoll, JobResultPoll, JobOddsPoll}
}

// ParseJobType converts s into a JobType.
func ParseJobType(s string) (JobType, error) {
	for _, j := range JobTypes() {
		if string(j) == s {
			return j, nil
		}
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// EntityType identifies the kind of entity a failure affected.
type EntityType string

// Entity types.
const (
	EntityRace   EntityType = "race"
	EntityEntry  EntityType = "entry"
	EntityResult EntityType = "result"
	EntityOdds   EntityType = "odds"
)

// Metadata is an opaque diagnostic payload stored as JSON.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %s", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.New("metadata: unsupported column type")
	}
	out := Metadata{}
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("unmarshal metadata: %s", err)
	}
	*m = out
	return nil
}

// Failure is a durable record of an ingestion attempt which exhausted its
// retries.
type Failure struct {
	ID           int64      `db:"id" json:"id"`
	JobType      JobType    `db:"job_type" json:"job_type"`
	EntityType   EntityType `db:"entity_type" json:"entity_type"`
	EntityID     string     `db:"entity_id" json:"entity_id"`
	ErrorMessage string     `db:"error_message" json:"error_message"`
	ErrorDetail  string     `db:"error_detail" json:"error_detail,omitempty"`
	RetryCount   int        `db:"retry_count" json:"retry_count"`
	MaxRetries   int        `db:"max_retries" json:"max_retries"`
	Status       Status     `db:"status" json:"status"`
	NextRetryAt  time.Time  `db:"next_retry_at" json:"next_retry_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt   *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	Metadata     Metadata   `db:"metadata" json:"metadata"`
}

// NewFailure describes a failure to be logged.
type NewFailure struct {
	JobType      JobType
	EntityType   EntityType
	EntityID     string
	ErrorMessage string
	ErrorDetail  string
	Metadata     Metadata
}

// Query filters failure listings. Zero fields match everything.
type Query struct {
	Status   Status
	JobType  JobType
	EntityID string
	Limit    int
	Offset   int
}

// Stats maps every status to its record count.
type Stats map[Status]int
