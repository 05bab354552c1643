package persistedretry

import (
	"time"

	"github.com/paddock/raceline/utils/backoff"
)

// Config defines the failure ledger and recovery configuration.
type Config struct {
	// Retry budget given to every new failure record.
	MaxRetries int `yaml:"max_retries"`

	// Schedule of next_retry_at for failure records. MaxRetries of the
	// embedded policy is ignored.
	Backoff backoff.Config `yaml:"backoff"`

	// Max records claimed per recovery pass.
	BatchLimit int `yaml:"batch_limit"`

	// Interval between recovery passes.
	Interval time.Duration `yaml:"interval"`

	// Pause between records within a pass, to avoid bursting the upstream.
	RecordPause time.Duration `yaml:"record_pause"`
}

func (c Config) applyDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.Backoff.InitialDelay == 0 {
		c.Backoff.InitialDelay = time.Minute
	}
	if c.Backoff.MaxDelay == 0 {
		c.Backoff.MaxDelay = 30 * time.Minute
	}
	if c.Backoff.Multiplier == 0 {
		c.Backoff.Multiplier = 2
	}
	c.Backoff.NoJitter = true
	if c.BatchLimit == 0 {
		c.BatchLimit = 10
	}
	if c.Interval == 0 {
		c.Interval = 5 * time.Minute
	}
	if c.RecordPause == 0 {
		c.RecordPause = time.Second
	}
	return c
}
