package lease

import (
	"errors"
	"fmt"
	"time"

	"github.com/paddock/raceline/utils/log"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
)

// RedisConfig defines RedisLease configuration.
type RedisConfig struct {
	Addr            string        `yaml:"addr"`
	Prefix          string        `yaml:"prefix"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

func (c RedisConfig) applyDefaults() RedisConfig {
	if c.Prefix == "" {
		c.Prefix = "raceline:lease:"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 60 * time.Second
	}
	return c
}

// Deletes the lease only if it still holds our token, so an expired lease
// re-acquired by another replica is never released by us.
var _releaseScript = redis.NewScript(1, `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLease grants leases shared by every replica using the same Redis.
type RedisLease struct {
	config RedisConfig
	pool   *redis.Pool
}

// NewRedisLease creates a new RedisLease.
func NewRedisLease(config RedisConfig) (*RedisLease, error) {
	config = config.applyDefaults()

	if config.Addr == "" {
		return nil, errors.New("invalid config: missing addr")
	}

	l := &RedisLease{
		config: config,
		pool: &redis.Pool{
			Dial: func() (redis.Conn, error) {
				return redis.Dial(
					"tcp",
					config.Addr,
					redis.DialConnectTimeout(config.DialTimeout),
					redis.DialReadTimeout(config.ReadTimeout),
					redis.DialWriteTimeout(config.WriteTimeout))
			},
			MaxIdle:     config.MaxIdleConns,
			IdleTimeout: config.IdleConnTimeout,
			Wait:        true,
		},
	}

	// Ensure we can connect to Redis.
	c, err := l.pool.Dial()
	if err != nil {
		return nil, fmt.Errorf("dial redis: %s", err)
	}
	c.Close()

	return l, nil
}

// TryAcquire implements Lease.
func (l *RedisLease) TryAcquire(name string, ttl time.Duration) (func(), error) {
	c := l.pool.Get()
	defer c.Close()

	key := l.config.Prefix + name
	token := uuid.NewString()

	_, err := redis.String(c.Do("SET", key, token, "NX", "PX", ttl.Milliseconds()))
	if err == redis.ErrNil {
		return nil, ErrNotAcquired
	} else if err != nil {
		return nil, fmt.Errorf("redis set: %s", err)
	}

	return func() {
		c := l.pool.Get()
		defer c.Close()
		if _, err := _releaseScript.Do(c, key, token); err != nil {
			log.With("lease", name).Errorf("Error releasing redis lease: %s", err)
		}
	}, nil
}

// Close closes the connection pool.
func (l *RedisLease) Close() error {
	return l.pool.Close()
}
