package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/kart-io/logger"

	options "github.com/kart-io/sentinel-rag/pkg/options/server/http"
)

// HTTPServer serves an http.Handler with the configured timeouts.
type HTTPServer struct {
	opts    *options.Options
	server  *http.Server
	mu      sync.Mutex
	ln      net.Listener
	errChan chan error
}

var _ Runnable = (*HTTPServer)(nil)

// NewHTTPServer creates an HTTP server for handler.
func NewHTTPServer(opts *options.Options, handler http.Handler) *HTTPServer {
	if opts == nil {
		opts = options.NewOptions()
	}
	return &HTTPServer{
		opts: opts,
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      handler,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		errChan: make(chan error, 1),
	}
}

// Name returns the server name.
func (s *HTTPServer) Name() string {
	return "http"
}

// Start binds the listener and serves in the background.
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server error", "addr", ln.Addr().String(), "error", err.Error())
			s.errChan <- err
		}
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx expires.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address, or the configured one before Start.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.opts.Addr
}

// Err reports a fatal serve error.
func (s *HTTPServer) Err() <-chan error {
	return s.errChan
}
