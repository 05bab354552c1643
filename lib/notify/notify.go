// Package notify delivers operator notifications about ingestion failures and
// recoveries. Notifications are queued and sent by a background worker so
// callers never block on, or fail because of, a notification sink.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/paddock/raceline/utils/log"

	"github.com/andres-erbsen/clock"
	"github.com/google/uuid"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
)

// Kind classifies an Event.
type Kind string

// Event kinds.
const (
	KindIngestionFailure   Kind = "ingestion_failure"
	KindRecovered          Kind = "recovered"
	KindMaxRetriesExceeded Kind = "max_retries_exceeded"
	KindStoreFailure       Kind = "store_failure"
)

// Event is a single notification.
type Event struct {
	ID      string            `json:"id"`
	Kind    Kind              `json:"kind"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Time    time.Time         `json:"time"`
}

// Notifier accepts events for delivery. Notify never blocks.
type Notifier interface {
	Notify(e Event)
}

// Sink delivers a single event somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

// Config defines notification configuration.
type Config struct {
	QueueSize   int           `yaml:"queue_size"`
	SendTimeout time.Duration `yaml:"send_timeout"`
	Webhook     WebhookConfig `yaml:"webhook"`
}

func (c Config) applyDefaults() Config {
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = 10 * time.Second
	}
	return c
}

// Queue is a Notifier which buffers events and fans each out to every sink
// from a single worker. Events are dropped when the buffer is full.
type Queue struct {
	config Config
	stats  tally.Scope
	clk    clock.Clock
	sinks  []Sink

	events    chan Event
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewQueue creates a new Queue and starts its worker.
func NewQueue(config Config, stats tally.Scope, clk clock.Clock, sinks ...Sink) *Queue {
	config = config.applyDefaults()
	q := &Queue{
		config: config,
		stats:  stats.SubScope("notify"),
		clk:    clk,
		sinks:  sinks,
		events: make(chan Event, config.QueueSize),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Notify enqueues e. ID and Time are filled in when empty.
func (q *Queue) Notify(e Event) {
	if q.closed.Load() {
		q.stats.Counter("dropped").Inc(1)
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = q.clk.Now().UTC()
	}
	select {
	case q.events <- e:
		q.stats.Counter("enqueued").Inc(1)
	default:
		q.stats.Counter("dropped").Inc(1)
		log.With("kind", e.Kind, "title", e.Title).Warn("Notification queue full, dropping event")
	}
}

// Close stops accepting events, delivers the ones already queued and waits
// for the worker to exit.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.done)
		q.wg.Wait()
	})
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case e := <-q.events:
			q.deliver(e)
		case <-q.done:
			for {
				select {
				case e := <-q.events:
					q.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(e Event) {
	for _, s := range q.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), q.config.SendTimeout)
		err := s.Send(ctx, e)
		cancel()
		if err != nil {
			q.stats.Tagged(map[string]string{"sink": s.Name()}).Counter("send_failure").Inc(1)
			log.With("sink", s.Name(), "kind", e.Kind).Errorf("Error sending notification: %s", err)
		}
	}
}
