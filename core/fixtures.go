package core

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// RaceIDFixture returns a random horse RaceID on 2024-12-10.
func RaceIDFixture() RaceID {
	id, err := NewRaceID(
		Horse,
		fmt.Sprintf("%d", rand.Intn(3)+1),
		rand.Intn(12)+1,
		time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		panic(err)
	}
	return id
}

// RaceFixture returns a scheduled Race for id starting at start.
func RaceFixture(id RaceID, start time.Time) Race {
	return Race{
		ID:        id.String(),
		RaceType:  id.Type,
		Track:     id.Track,
		TrackName: "track " + id.Track,
		Number:    id.Number,
		RaceDate:  FormatDate(id.Date),
		StartTime: start.UTC().Truncate(time.Second),
		Distance:  1200,
		Grade:     "G3",
		Status:    RaceScheduled,
	}
}

// OddsFixture returns an odds snapshot for entryNo of id.
func OddsFixture(id RaceID, entryNo int, t time.Time) OddsSnapshot {
	return OddsSnapshot{
		Time:    t.UTC().Truncate(time.Second),
		RaceID:  id.String(),
		EntryNo: entryNo,
		Win:     decimal.RequireFromString("3.4"),
		Place:   decimal.RequireFromString("1.6"),
	}
}
