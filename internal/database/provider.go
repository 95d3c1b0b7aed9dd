package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Backend is an opened record store that owns its connection pool.
type Backend interface {
	RecordStore
	// Close releases the underlying connections
	Close() error
}

// Opener connects a backend using the database configuration.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (Backend, error)

var (
	backends   = make(map[string]Opener)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a record store constructor under a driver name.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(driver string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[driver] = open
}

// RegisteredBackends returns the sorted list of driver names.
func RegisteredBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	backendsMu.RLock()
	open, ok := backends[cfg.Driver]
	backendsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("database backend %q not registered (available: %v)", cfg.Driver, RegisteredBackends())
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%s backend not initialized: DATABASE_URL is required", cfg.Driver)
	}
	return open(ctx, cfg)
}
