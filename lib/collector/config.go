package collector

import "time"

// Config defines Collector configuration.
type Config struct {
	TickInterval time.Duration `yaml:"tick_interval"`

	// SecondPassDelay is how long after a tick the extra odds collection of
	// races inside the final band runs.
	SecondPassDelay time.Duration `yaml:"second_pass_delay"`

	// EntryWindow is how many minutes before start line-ups are refreshed
	// along with odds.
	EntryWindow int `yaml:"entry_window"`

	// Results are polled for scheduled races which started between
	// ResultDelay and ResultHorizon ago.
	ResultDelay   time.Duration `yaml:"result_delay"`
	ResultHorizon time.Duration `yaml:"result_horizon"`

	// ScheduleHour is the local hour from which the day's schedules are
	// polled, 0 being midnight. Unset defaults to 6. Negative disables the
	// daily schedule poll.
	ScheduleHour *int `yaml:"schedule_hour"`

	// RaceTypes polled by the daily schedule poll. Empty means every
	// registered race type.
	RaceTypes []string `yaml:"race_types"`

	// Location is the time zone race days are expressed in.
	Location string `yaml:"location"`

	// LeaseTTL is how long a tick holds the tick lease. Keep it below
	// TickInterval or a replica skips its own next tick.
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

func (c Config) applyDefaults() Config {
	if c.TickInterval == 0 {
		c.TickInterval = time.Minute
	}
	if c.SecondPassDelay == 0 {
		c.SecondPassDelay = 30 * time.Second
	}
	if c.EntryWindow == 0 {
		c.EntryWindow = 15
	}
	if c.ResultDelay == 0 {
		c.ResultDelay = 10 * time.Minute
	}
	if c.ResultHorizon == 0 {
		c.ResultHorizon = 90 * time.Minute
	}
	if c.ScheduleHour == nil {
		h := 6
		c.ScheduleHour = &h
	}
	if c.Location == "" {
		c.Location = "Asia/Seoul"
	}
	if c.LeaseTTL == 0 {
		c.LeaseTTL = 55 * time.Second
	}
	return c
}
