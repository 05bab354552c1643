package provider

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Container images ship without zoneinfo.

	"github.com/paddock/raceline/core"

	"github.com/shopspring/decimal"
)

// ErrInvalidItem is returned when a raw item cannot be normalized.
var ErrInvalidItem = errors.New("invalid item")

// MapperConfig defines Mapper configuration.
type MapperConfig struct {
	// Location is the time zone upstream start times are expressed in.
	Location string `yaml:"location"`
}

func (c MapperConfig) applyDefaults() MapperConfig {
	if c.Location == "" {
		c.Location = "Asia/Seoul"
	}
	return c
}

// Mapper normalizes raw provider items into core entities.
type Mapper struct {
	loc *time.Location
}

// NewMapper creates a new Mapper.
func NewMapper(config MapperConfig) (*Mapper, error) {
	config = config.applyDefaults()
	loc, err := time.LoadLocation(config.Location)
	if err != nil {
		return nil, fmt.Errorf("load location: %s", err)
	}
	return &Mapper{loc}, nil
}

// Location returns the upstream time zone.
func (m *Mapper) Location() *time.Location {
	return m.loc
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidItem, fmt.Sprintf(format, args...))
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, invalid("%s %q", field, s)
	}
	return n, nil
}

func parseOptionalInt(field, s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseInt(field, s)
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid("%s %q", field, s)
	}
	return d, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}

// startTime combines the calendar day of date with a local clock time in
// HHMM, HH:MM or RFC3339 form.
func (m *Mapper) startTime(date time.Time, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	clock := strings.ReplaceAll(s, ":", "")
	if len(clock) != 4 {
		return time.Time{}, invalid("start time %q", s)
	}
	hh, err1 := strconv.Atoi(clock[:2])
	mm, err2 := strconv.Atoi(clock[2:])
	if err1 != nil || err2 != nil || hh > 23 || mm > 59 {
		return time.Time{}, invalid("start time %q", s)
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, hh, mm, 0, 0, m.loc).UTC(), nil
}

// MapSchedule normalizes a schedule item of raceType listed for date.
func (m *Mapper) MapSchedule(raceType core.RaceType, date time.Time, item RawScheduleItem) (core.Race, error) {
	no, err := parseInt("race_no", item.RaceNo)
	if err != nil {
		return core.Race{}, err
	}
	id, err := core.NewRaceID(raceType, strings.TrimSpace(item.Track), no, date)
	if err != nil {
		return core.Race{}, fmt.Errorf("%w: %s", ErrInvalidItem, err)
	}
	start, err := m.startTime(id.Date, item.StartTime)
	if err != nil {
		return core.Race{}, err
	}
	distance, err := parseOptionalInt("distance", item.Distance)
	if err != nil {
		return core.Race{}, err
	}
	return core.Race{
		ID:        id.String(),
		RaceType:  id.Type,
		Track:     id.Track,
		TrackName: strings.TrimSpace(item.TrackName),
		Number:    id.Number,
		RaceDate:  core.FormatDate(id.Date),
		StartTime: start,
		Distance:  distance,
		Grade:     strings.TrimSpace(item.Grade),
		Status:    core.RaceScheduled,
	}, nil
}

// MapEntry normalizes an entry item of race id.
func (m *Mapper) MapEntry(id core.RaceID, item RawEntryItem) (core.Entry, error) {
	no, err := parseInt("entry_no", item.EntryNo)
	if err != nil {
		return core.Entry{}, err
	}
	weight, err := parseDecimal("weight", item.Weight)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		RaceID:    id.String(),
		EntryNo:   no,
		Name:      strings.TrimSpace(item.Name),
		Rider:     strings.TrimSpace(item.Rider),
		Trainer:   strings.TrimSpace(item.Trainer),
		Weight:    weight,
		Scratched: parseBool(item.Scratched),
	}, nil
}

// MapOdds normalizes an odds item of race id observed at t. Items without a
// win price are rejected.
func (m *Mapper) MapOdds(id core.RaceID, t time.Time, item RawOddsItem) (core.OddsSnapshot, error) {
	no, err := parseInt("entry_no", item.EntryNo)
	if err != nil {
		return core.OddsSnapshot{}, err
	}
	if strings.TrimSpace(item.Win) == "" {
		return core.OddsSnapshot{}, invalid("entry %d has no win odds", no)
	}
	win, err := parseDecimal("win", item.Win)
	if err != nil {
		return core.OddsSnapshot{}, err
	}
	place, err := parseDecimal("place", item.Place)
	if err != nil {
		return core.OddsSnapshot{}, err
	}
	return core.OddsSnapshot{
		Time:    t.UTC().Truncate(time.Second),
		RaceID:  id.String(),
		EntryNo: no,
		Win:     win,
		Place:   place,
	}, nil
}

// MapResult normalizes a result item of race id.
func (m *Mapper) MapResult(id core.RaceID, item RawResultItem) (core.Result, error) {
	no, err := parseInt("entry_no", item.EntryNo)
	if err != nil {
		return core.Result{}, err
	}
	rank, err := parseInt("rank", item.Rank)
	if err != nil {
		return core.Result{}, err
	}
	win, err := parseDecimal("win_payout", item.WinPayout)
	if err != nil {
		return core.Result{}, err
	}
	place, err := parseDecimal("place_payout", item.PlacePayout)
	if err != nil {
		return core.Result{}, err
	}
	return core.Result{
		RaceID:      id.String(),
		EntryNo:     no,
		Rank:        rank,
		FinishTime:  strings.TrimSpace(item.FinishTime),
		WinPayout:   win,
		PlacePayout: place,
	}, nil
}
