// Package storage provides a registry for the backend clients a process
// holds open (vector database, cache), with aggregated health checks and
// ordered shutdown.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrClientNotFound is returned by Get for an unknown client name.
	ErrClientNotFound = errors.New("storage client not found")
	// ErrClientAlreadyExists is returned by Register for a duplicate name.
	ErrClientAlreadyExists = errors.New("storage client already registered")
)

// Client is the base interface for backend clients.
type Client interface {
	// Name returns the backend type, e.g. "redis" or "milvus".
	Name() string
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}

// HealthStatus is the result of one client health check.
type HealthStatus struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// Manager manages storage clients. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
	order   []string
}

// NewManager creates a new storage manager instance.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]Client)}
}

// Register registers a storage client under name.
func (m *Manager) Register(name string, client Client) error {
	if name == "" || client == nil {
		return fmt.Errorf("storage: name and client are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return fmt.Errorf("%w: %s", ErrClientAlreadyExists, name)
	}
	m.clients[name] = client
	m.order = append(m.order, name)
	return nil
}

// Get returns the client registered under name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, name)
	}
	return c, nil
}

// List returns the registered names, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll pings every client concurrently.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	clients := make(map[string]Client, len(m.clients))
	for name, c := range m.clients {
		clients[name] = c
	}
	m.mu.RUnlock()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]HealthStatus, len(clients))
	)
	for name, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := c.Ping(ctx)
			st := HealthStatus{Name: c.Name(), Healthy: err == nil, Latency: time.Since(start)}
			if err != nil {
				st.Error = err.Error()
			}
			mu.Lock()
			out[name] = st
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// CloseAll closes all clients in reverse registration order and clears the registry.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		if err := m.clients[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	m.clients = make(map[string]Client)
	m.order = nil
	return errors.Join(errs...)
}
