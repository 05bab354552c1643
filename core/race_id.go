package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the compact date layout used in race ids and provider
// requests.
const DateFormat = "20060102"

// RaceType enumerates the supported racing sports.
type RaceType string

// Race types.
const (
	Horse RaceType = "horse"
	Cycle RaceType = "cycle"
	Boat  RaceType = "boat"
)

// ErrRaceTypeNotFound is returned when parsing an unknown race type.
var ErrRaceTypeNotFound = errors.New("race type not found")

// AllRaceTypes returns every supported race type.
func AllRaceTypes() []RaceType {
	return []RaceType{Horse, Cycle, Boat}
}

// ParseRaceType converts s into a RaceType.
func ParseRaceType(s string) (RaceType, error) {
	switch t := RaceType(s); t {
	case Horse, Cycle, Boat:
		return t, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrRaceTypeNotFound)
}

func (t RaceType) String() string { return string(t) }

// ErrInvalidRaceID is returned when a race id cannot be parsed.
var ErrInvalidRaceID = errors.New("invalid race id")

// RaceID identifies a single race. Its canonical string form is
// {type}-{track}-{number}-{YYYYMMDD}, e.g. horse-1-3-20241210.
type RaceID struct {
	Type   RaceType
	Track  string
	Number int
	Date   time.Time
}

// NewRaceID creates a RaceID. The date is truncated to a UTC calendar day.
func NewRaceID(t RaceType, track string, number int, date time.Time) (RaceID, error) {
	if _, err := ParseRaceType(string(t)); err != nil {
		return RaceID{}, err
	}
	if track == "" || strings.Contains(track, "-") {
		return RaceID{}, fmt.Errorf("track %q: %w", track, ErrInvalidRaceID)
	}
	if number <= 0 {
		return RaceID{}, fmt.Errorf("race number %d: %w", number, ErrInvalidRaceID)
	}
	return RaceID{t, track, number, Day(date)}, nil
}

// ParseRaceID parses the canonical form of a RaceID. Parsing is strict: the
// result always formats back to exactly s.
func ParseRaceID(s string) (RaceID, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return RaceID{}, fmt.Errorf("%q: %w", s, ErrInvalidRaceID)
	}
	t, err := ParseRaceType(parts[0])
	if err != nil {
		return RaceID{}, fmt.Errorf("%q: %w", s, ErrInvalidRaceID)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || strconv.Itoa(n) != parts[2] {
		return RaceID{}, fmt.Errorf("%q: bad race number: %w", s, ErrInvalidRaceID)
	}
	d, err := ParseDate(parts[3])
	if err != nil {
		return RaceID{}, fmt.Errorf("%q: %w", s, ErrInvalidRaceID)
	}
	return NewRaceID(t, parts[1], n, d)
}

func (id RaceID) String() string {
	return fmt.Sprintf("%s-%s-%d-%s", id.Type, id.Track, id.Number, FormatDate(id.Date))
}

// ScheduleKey identifies the schedule of one race type on one day. Its string
// form {type}-{YYYYMMDD} is the entity id of schedule poll failures.
type ScheduleKey struct {
	Type RaceType
	Date time.Time
}

// NewScheduleKey creates a ScheduleKey for date.
func NewScheduleKey(t RaceType, date time.Time) ScheduleKey {
	return ScheduleKey{t, Day(date)}
}

// ParseScheduleKey parses the string form of a ScheduleKey.
func ParseScheduleKey(s string) (ScheduleKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return ScheduleKey{}, fmt.Errorf("invalid schedule key %q", s)
	}
	t, err := ParseRaceType(parts[0])
	if err != nil {
		return ScheduleKey{}, err
	}
	d, err := ParseDate(parts[1])
	if err != nil {
		return ScheduleKey{}, err
	}
	return ScheduleKey{t, d}, nil
}

func (k ScheduleKey) String() string {
	return fmt.Sprintf("%s-%s", k.Type, FormatDate(k.Date))
}

// Day returns the calendar day of t, in t's location, as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats t as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// ParseDate parses a strict YYYYMMDD date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %s", s, err)
	}
	if d.Format(DateFormat) != s {
		return time.Time{}, fmt.Errorf("parse date %q: not canonical", s)
	}
	return d, nil
}
