// Package backend assembles the resource store selected by configuration.
package backend

import (
	"context"

	"estimator/internal/auth"
	"estimator/internal/gateway"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is an assembled backend. Resources may be decorated (for example to
// publish change events) while Accounts always talks to the raw store.
type Result struct {
	Resources gateway.Resources
	Accounts  auth.AccountStore
	// Ready reports whether the store is usable; used by /readyz.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; empty starts with no records
	SeedFile string

	// Change events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
