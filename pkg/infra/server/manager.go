package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// Manager runs servers under a unified lifecycle.
type Manager struct {
	shutdownTimeout time.Duration
	servers         []Runnable
	mu              sync.Mutex
	started         bool
}

// NewManager creates a manager. shutdownTimeout bounds Stop during Run.
func NewManager(shutdownTimeout time.Duration, servers ...Runnable) *Manager {
	return &Manager{
		shutdownTimeout: shutdownTimeout,
		servers:         servers,
	}
}

// AddServer adds a server to the manager.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// Start starts all servers in order. On failure the already started ones
// are stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("server manager already started")
	}
	m.started = true
	servers := append([]Runnable(nil), m.servers...)
	m.mu.Unlock()

	for i, s := range servers {
		if err := s.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = servers[j].Stop(ctx)
			}
			return fmt.Errorf("failed to start server %s: %w", s.Name(), err)
		}
		logger.Infow("Server started", "name", s.Name())
	}
	return nil
}

// Stop stops all servers in reverse order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	servers := append([]Runnable(nil), m.servers...)
	m.mu.Unlock()

	var errs []error
	for i := len(servers) - 1; i >= 0; i-- {
		if err := servers[i].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", servers[i].Name(), err))
		}
		logger.Infow("Server stopped", "name", servers[i].Name())
	}
	return errors.Join(errs...)
}

// Run starts all servers, blocks until ctx is cancelled and then stops them
// within the shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	return m.Stop(shutdownCtx)
}
