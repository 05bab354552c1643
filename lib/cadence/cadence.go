// Package cadence decides how often data for a race should be collected as
// its start time approaches. All functions are pure.
package cadence

import (
	"math"
	"time"

	"github.com/paddock/raceline/core"
)

// Window is the maximum number of minutes before start during which a race
// is collected.
const Window = 60

// CollectionInterval returns the collection cadence for a race starting in
// minutesToStart minutes. ok is false when the race has started or is
// outside the collection window.
func CollectionInterval(minutesToStart int) (d time.Duration, ok bool) {
	switch {
	case minutesToStart <= 0:
		return 0, false
	case minutesToStart <= 5:
		return 30 * time.Second, true
	case minutesToStart <= 15:
		return time.Minute, true
	case minutesToStart <= Window:
		return 5 * time.Minute, true
	}
	return 0, false
}

// ShouldCollectNow reports whether a tick landing minutesToStart minutes
// before start should collect. Inside 15 minutes every tick collects;
// further out only ticks on a 5 minute boundary do.
func ShouldCollectNow(minutesToStart int) bool {
	switch {
	case minutesToStart <= 0:
		return false
	case minutesToStart <= 15:
		return true
	case minutesToStart <= Window:
		return minutesToStart%5 == 0
	}
	return false
}

// NeedsSecondPass reports whether a 30 second sub-tick collection should be
// scheduled in addition to the regular tick.
func NeedsSecondPass(minutesToStart int) bool {
	return minutesToStart > 0 && minutesToStart <= 5
}

// MinutesToStart returns the whole minutes from now until start, rounded
// down. Negative values mean the race is underway.
func MinutesToStart(start, now time.Time) int {
	return int(math.Floor(start.Sub(now).Minutes()))
}

// CollectionWindow is a race annotated with its cadence at a point in time.
type CollectionWindow struct {
	Race             core.Race
	MinutesToStart   int
	Interval         time.Duration
	ShouldCollectNow bool
}

// Evaluate computes the collection window of race at now.
func Evaluate(race core.Race, now time.Time) CollectionWindow {
	m := MinutesToStart(race.StartTime, now)
	d, _ := CollectionInterval(m)
	return CollectionWindow{
		Race:             race,
		MinutesToStart:   m,
		Interval:         d,
		ShouldCollectNow: ShouldCollectNow(m),
	}
}

// UpcomingRaces returns the windows of races with 0 < minutesToStart <= 60,
// preserving input order.
func UpcomingRaces(races []core.Race, now time.Time) []CollectionWindow {
	var windows []CollectionWindow
	for _, r := range races {
		w := Evaluate(r, now)
		if w.MinutesToStart > 0 && w.MinutesToStart <= Window {
			windows = append(windows, w)
		}
	}
	return windows
}
