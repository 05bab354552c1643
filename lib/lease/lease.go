// Package lease provides short-lived named leases so that only one ingester
// replica drives a given periodic task at a time.
package lease

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotAcquired is returned when a lease is held by someone else.
var ErrNotAcquired = errors.New("lease not acquired")

// Lease grants exclusive named leases.
type Lease interface {
	// TryAcquire acquires lease name for at most ttl without blocking.
	// Returns ErrNotAcquired if it is held elsewhere. release gives the
	// lease up early and is safe to call after the ttl has passed.
	TryAcquire(name string, ttl time.Duration) (release func(), err error)
}

// Available backends.
const (
	_none  = "none"
	_file  = "file"
	_redis = "redis"
)

// Config defines lease configuration.
type Config struct {
	// Backend is one of none, file or redis. Default: file.
	Backend string      `yaml:"backend"`
	File    FileConfig  `yaml:"file"`
	Redis   RedisConfig `yaml:"redis"`
}

func (c Config) applyDefaults() Config {
	if c.Backend == "" {
		c.Backend = _file
	}
	return c
}

// New creates the Lease of the configured backend.
func New(config Config) (Lease, error) {
	config = config.applyDefaults()
	switch config.Backend {
	case _none:
		return NoopLease{}, nil
	case _file:
		return NewFileLease(config.File)
	case _redis:
		return NewRedisLease(config.Redis)
	default:
		return nil, fmt.Errorf("unknown lease backend: %s", config.Backend)
	}
}

// NoopLease always grants every lease. Suitable for a single replica.
type NoopLease struct{}

// TryAcquire implements Lease.
func (NoopLease) TryAcquire(string, time.Duration) (func(), error) {
	return func() {}, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return fmt.Errorf("mkdir %s: %s", dir, err)
	}
	return nil
}

func lockPath(dir, name string) string {
	return filepath.Join(dir, name+".lock")
}
