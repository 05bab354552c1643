// Package backoff runs operations under a bounded exponential retry policy.
package backoff

import (
	"math"
	"time"
)

// Config defines a retry policy.
type Config struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	NoJitter     bool          `yaml:"no_jitter"`
}

// ApplyDefaults fills zero fields with the default policy: 5 retries starting
// at 1s, doubling, capped at 30s, with 10% jitter.
func (c Config) ApplyDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2
	}
	return c
}

// Duration returns the un-jittered delay before retry number attempt, where
// attempt 0 is the delay after the first failure:
// min(InitialDelay * Multiplier^attempt, MaxDelay).
func (c Config) Duration(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if d >= float64(c.MaxDelay) || math.IsInf(d, 0) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

func (c Config) randomizationFactor() float64 {
	if c.NoJitter {
		return 0
	}
	return 0.1
}
