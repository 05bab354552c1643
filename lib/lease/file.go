package lease

import (
	"fmt"
	"time"

	"github.com/paddock/raceline/utils/log"

	"github.com/gofrs/flock"
)

// FileConfig defines FileLease configuration.
type FileConfig struct {
	Dir string `yaml:"dir"`
}

func (c FileConfig) applyDefaults() FileConfig {
	if c.Dir == "" {
		c.Dir = "/var/run/raceline"
	}
	return c
}

// FileLease grants leases through advisory file locks, coordinating
// processes on the same host. Leases are held until released or until the
// holding process exits, regardless of ttl.
type FileLease struct {
	dir string
}

// NewFileLease creates a new FileLease.
func NewFileLease(config FileConfig) (*FileLease, error) {
	config = config.applyDefaults()
	if err := ensureDir(config.Dir); err != nil {
		return nil, err
	}
	return &FileLease{config.Dir}, nil
}

// TryAcquire implements Lease.
func (l *FileLease) TryAcquire(name string, ttl time.Duration) (func(), error) {
	fl := flock.New(lockPath(l.dir, name))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("flock: %s", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.With("lease", name).Errorf("Error releasing file lease: %s", err)
		}
	}, nil
}
