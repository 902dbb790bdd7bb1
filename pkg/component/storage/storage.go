// Package storage defines the lifecycle contract of backend connections and a
// registry that checks and closes them together.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// ErrNotFound is returned by Get for an unknown client name.
var ErrNotFound = errors.New("storage: client not found")

// Client is a backend connection owned by the process.
type Client interface {
	// Name returns the storage type identifier.
	Name() string
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// HealthStatus is the outcome of one Ping.
type HealthStatus struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// Manager keeps the named clients of the process. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]Client)}
}

// Register adds client under name. Names must be unique.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return fmt.Errorf("storage: client name cannot be empty")
	}
	if client == nil {
		return fmt.Errorf("storage: client %q is nil", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[name]; ok {
		return fmt.Errorf("storage: client %q already registered", name)
	}
	m.clients[name] = client
	return nil
}

// Get returns the client registered under name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
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

// HealthCheckAll pings every client and returns the statuses sorted by name.
func (m *Manager) HealthCheckAll(ctx context.Context) []HealthStatus {
	statuses := make([]HealthStatus, 0)
	for _, name := range m.List() {
		c, err := m.Get(name)
		if err != nil {
			continue
		}
		start := time.Now()
		err = c.Ping(ctx)
		st := HealthStatus{Name: name, Healthy: err == nil, Latency: time.Since(start)}
		if err != nil {
			st.Error = err.Error()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// CloseAll closes every client, even if some fail, and empties the registry.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(m.clients, name)
	}
	return utilerrors.NewAggregate(errs)
}
