// Package listener serves HTTP handlers on configured addresses.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server is an HTTP server bound to a listener.
type Server struct {
	srv *http.Server
	l   net.Listener
}

// Listen binds config and returns a Server which serves h once Serve is
// called.
func Listen(config Config, h http.Handler) (*Server, error) {
	config = config.applyDefaults()
	l, err := net.Listen(config.Net, config.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %s", config, err)
	}
	return &Server{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		l: l,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.l.Addr()
}

// Serve blocks serving requests until Shutdown is called, in which case it
// returns nil.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits up to timeout for in-flight
// requests to finish.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
