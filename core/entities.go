package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaceStatus is the mutable lifecycle state of a race.
type RaceStatus string

// Race statuses.
const (
	RaceScheduled RaceStatus = "scheduled"
	RaceFinished  RaceStatus = "finished"
	RaceCancelled RaceStatus = "cancelled"
)

// Race is a normalized scheduled race. ID is the canonical RaceID string.
type Race struct {
	ID        string     `db:"id" json:"id"`
	RaceType  RaceType   `db:"race_type" json:"race_type"`
	Track     string     `db:"track" json:"track"`
	TrackName string     `db:"track_name" json:"track_name"`
	Number    int        `db:"race_no" json:"race_no"`
	RaceDate  string     `db:"race_date" json:"race_date"`
	StartTime time.Time  `db:"start_time" json:"start_time"`
	Distance  int        `db:"distance" json:"distance"`
	Grade     string     `db:"grade" json:"grade"`
	Status    RaceStatus `db:"status" json:"status"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Entry is one runner in a race line-up.
type Entry struct {
	RaceID    string          `db:"race_id" json:"race_id"`
	EntryNo   int             `db:"entry_no" json:"entry_no"`
	Name      string          `db:"name" json:"name"`
	Rider     string          `db:"rider" json:"rider"`
	Trainer   string          `db:"trainer" json:"trainer"`
	Weight    decimal.Decimal `db:"weight" json:"weight"`
	Scratched bool            `db:"scratched" json:"scratched"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Result is the final placing of one entry.
type Result struct {
	RaceID      string          `db:"race_id" json:"race_id"`
	EntryNo     int             `db:"entry_no" json:"entry_no"`
	Rank        int             `db:"rank" json:"rank"`
	FinishTime  string          `db:"finish_time" json:"finish_time"`
	WinPayout   decimal.Decimal `db:"win_payout" json:"win_payout"`
	PlacePayout decimal.Decimal `db:"place_payout" json:"place_payout"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// OddsSnapshot is an immutable reading of one entry's odds at Time.
type OddsSnapshot struct {
	Time    time.Time       `db:"time" json:"time"`
	RaceID  string          `db:"race_id" json:"race_id"`
	EntryNo int             `db:"entry_no" json:"entry_no"`
	Win     decimal.Decimal `db:"win" json:"win"`
	Place   decimal.Decimal `db:"place" json:"place"`
}
