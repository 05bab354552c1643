// Package shutdown coordinates graceful process shutdown on SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/paddock/raceline/utils/log"
)

type cleanup struct {
	name string
	fn   func() error
}

// Handler cancels its context on the first shutdown signal and then runs the
// registered cleanups, most recently added first.
type Handler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	cleanups []cleanup

	once sync.Once
	done chan struct{}
}

// New creates a new Handler whose context derives from ctx.
func New(ctx context.Context) *Handler {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handler{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			log.Infof("Received %s, shutting down", sig)
			h.Shutdown()
		case <-ctx.Done():
		}
	}()

	return h
}

// Context is cancelled once shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers fn to run during shutdown.
func (h *Handler) AddCleanup(name string, fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanups = append(h.cleanups, cleanup{name, fn})
}

// Shutdown cancels the context and runs every cleanup. Errors are logged and
// do not stop the remaining cleanups. Only the first call has any effect.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		defer h.mu.Unlock()

		for i := len(h.cleanups) - 1; i >= 0; i-- {
			c := h.cleanups[i]
			if err := c.fn(); err != nil {
				log.With("cleanup", c.name).Errorf("Error during shutdown: %s", err)
			}
		}
		log.Infof("Shutdown complete")
		close(h.done)
	})
}

// Wait blocks until Shutdown has finished.
func (h *Handler) Wait() {
	<-h.done
}
