// Package store provides tiered durable persistence for workflow sessions.
// The backing tier is selected once at process startup (Redis preferred,
// Supabase fallback, in-process memory as a last resort) and fixed for the
// process lifetime behind the Store interface.
package store

import (
	"context"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// Store defines the interface for session storage operations.
type Store interface {
	// Create persists a new session with Version set to 1.
	// Returns an error if the session already exists.
	Create(ctx context.Context, sess *session.Session) error

	// Get retrieves a session by ID.
	// Returns session.ErrNotFound if the session does not exist.
	Get(ctx context.Context, id string) (*session.Session, error)

	// Update updates an existing session with optimistic locking.
	// Verifies the Version matches the stored version, increments Version,
	// updates UpdatedAt, and persists the session.
	// Returns session.ErrVersionConflict if the version does not match.
	// Returns session.ErrNotFound if the session does not exist.
	Update(ctx context.Context, sess *session.Session) error

	// AppendTurn appends a conversation turn to the session's history,
	// preserving insertion order at the storage boundary.
	AppendTurn(ctx context.Context, id string, turn session.ConversationTurn) error

	// Delete deletes a session by ID.
	Delete(ctx context.Context, id string) error

	// Ping verifies the backing tier is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases any resources.
	Close() error
}
