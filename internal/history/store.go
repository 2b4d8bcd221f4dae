package history

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNotFound    = errors.New("history entry not found")
	ErrInvalidID   = errors.New("invalid history entry ID")
	ErrStoreClosed = errors.New("history store is closed")
)

// Store defines the interface for history storage operations.
type Store interface {
	// Add adds a new history entry and returns its ID.
	Add(ctx context.Context, entry Entry) (string, error)

	// Get retrieves a single history entry by ID.
	Get(ctx context.Context, id string) (Entry, error)

	// List returns matching entries, newest first.
	List(ctx context.Context, opts QueryOptions) ([]Entry, error)

	// Count returns the number of entries matching the query options.
	Count(ctx context.Context, opts QueryOptions) (int64, error)

	// Delete removes a history entry by ID.
	Delete(ctx context.Context, id string) error

	// Prune keeps only the newest keepLast entries.
	Prune(ctx context.Context, keepLast int) (PruneResult, error)

	// Clear removes all history entries.
	Clear(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}
