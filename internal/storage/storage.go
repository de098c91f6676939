package storage

import (
	"context"

	"github.com/sigwatch/sigwatch/internal/annotation"
	"github.com/sigwatch/sigwatch/internal/signal"
	"github.com/sigwatch/sigwatch/internal/storage/sqlite"
)

// Store defines the interface for the two append-only logs: signals and
// annotations. Records are never updated or deleted once written.
type Store interface {
	// Signals
	AppendSignal(ctx context.Context, sig *signal.Signal) error
	ListSignals(ctx context.Context) ([]*signal.Signal, error)
	CountSignals(ctx context.Context) (int, error)

	// Annotations
	AppendAnnotation(ctx context.Context, note *annotation.Annotation) error
	ListAnnotations(ctx context.Context) ([]*annotation.Annotation, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".sigwatch/sigwatch.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".sigwatch/sigwatch.db",
	}
}

// NewStore creates a new SQLite store backend
// The ctx parameter is currently unused but kept for API consistency
// and future extension possibilities
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Path == "" {
		cfg.Path = ".sigwatch/sigwatch.db"
	}

	return sqlite.New(cfg.Path)
}
