package provider

import (
	"context"
	"time"

	"github.com/paddock/raceline/core"
)

// Client defines an interface for fetching race data from an upstream
// provider. Items are returned in the provider's raw string form; use a
// Mapper to normalize them.
//
// Implementations of Client must be thread-safe, since they are shared by
// concurrent pollers. Clients return an error on any transport failure or
// unexpected status; they never retry on their own.
type Client interface {
	// FetchSchedules returns every race of raceType on date.
	FetchSchedules(ctx context.Context, raceType core.RaceType, date time.Time) ([]RawScheduleItem, error)

	// FetchEntries returns the line-up of race id.
	FetchEntries(ctx context.Context, id core.RaceID) ([]RawEntryItem, error)

	// FetchOdds returns the current odds of race id.
	FetchOdds(ctx context.Context, id core.RaceID) ([]RawOddsItem, error)

	// FetchResults returns the final placings of race id. Returns an empty
	// slice if the race has not finished.
	FetchResults(ctx context.Context, id core.RaceID) ([]RawResultItem, error)
}

// Fields holds one raw upstream record keyed by canonical field name.
type Fields map[string]string

// Canonical raw field names.
const (
	FieldTrack       = "track"
	FieldTrackName   = "track_name"
	FieldRaceNo      = "race_no"
	FieldStartTime   = "start_time"
	FieldDistance    = "distance"
	FieldGrade       = "grade"
	FieldEntryNo     = "entry_no"
	FieldName        = "name"
	FieldRider       = "rider"
	FieldTrainer     = "trainer"
	FieldWeight      = "weight"
	FieldScratched   = "scratched"
	FieldWin         = "win"
	FieldPlace       = "place"
	FieldRank        = "rank"
	FieldFinishTime  = "finish_time"
	FieldWinPayout   = "win_payout"
	FieldPlacePayout = "place_payout"
)

// RawScheduleItem is a race as listed by a provider schedule.
type RawScheduleItem struct {
	Track     string
	TrackName string
	RaceNo    string
	StartTime string
	Distance  string
	Grade     string
}

// NewRawScheduleItem builds a RawScheduleItem from f.
func NewRawScheduleItem(f Fields) RawScheduleItem {
	return RawScheduleItem{
		Track:     f[FieldTrack],
		TrackName: f[FieldTrackName],
		RaceNo:    f[FieldRaceNo],
		StartTime: f[FieldStartTime],
		Distance:  f[FieldDistance],
		Grade:     f[FieldGrade],
	}
}

// RawEntryItem is one runner as listed by a provider.
type RawEntryItem struct {
	EntryNo   string
	Name      string
	Rider     string
	Trainer   string
	Weight    string
	Scratched string
}

// NewRawEntryItem builds a RawEntryItem from f.
func NewRawEntryItem(f Fields) RawEntryItem {
	return RawEntryItem{
		EntryNo:   f[FieldEntryNo],
		Name:      f[FieldName],
		Rider:     f[FieldRider],
		Trainer:   f[FieldTrainer],
		Weight:    f[FieldWeight],
		Scratched: f[FieldScratched],
	}
}

// RawOddsItem is the current odds of one runner.
type RawOddsItem struct {
	EntryNo string
	Win     string
	Place   string
}

// NewRawOddsItem builds a RawOddsItem from f.
func NewRawOddsItem(f Fields) RawOddsItem {
	return RawOddsItem{
		EntryNo: f[FieldEntryNo],
		Win:     f[FieldWin],
		Place:   f[FieldPlace],
	}
}

// RawResultItem is the final placing of one runner.
type RawResultItem struct {
	EntryNo     string
	Rank        string
	FinishTime  string
	WinPayout   string
	PlacePayout string
}

// NewRawResultItem builds a RawResultItem from f.
func NewRawResultItem(f Fields) RawResultItem {
	return RawResultItem{
		EntryNo:     f[FieldEntryNo],
		Rank:        f[FieldRank],
		FinishTime:  f[FieldFinishTime],
		WinPayout:   f[FieldWinPayout],
		PlacePayout: f[FieldPlacePayout],
	}
}
