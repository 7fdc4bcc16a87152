package store

import (
	"context"
	"sync"
	"time"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// MemoryStore implements Store using an in-memory map with optimistic
// locking. It is non-durable and cannot be shared across processes; the
// factory logs a visible warning when this tier is selected.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session.Session),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return session.ErrVersionConflict
	}

	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.Version = 1

	s.sessions[sess.ID] = clone(sess)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.sessions[id]
	if !exists {
		return nil, session.ErrNotFound
	}
	return clone(stored), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[sess.ID]
	if !exists {
		return session.ErrNotFound
	}

	// Check version for optimistic locking
	if stored.Version != sess.Version {
		return session.ErrVersionConflict
	}

	sess.Version++
	sess.UpdatedAt = time.Now()

	s.sessions[sess.ID] = clone(sess)
	return nil
}

// AppendTurn implements Store.
func (s *MemoryStore) AppendTurn(ctx context.Context, id string, turn session.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[id]
	if !exists {
		return session.ErrNotFound
	}

	stored.ConversationHistory = append(stored.ConversationHistory, turn)
	stored.Version++
	stored.UpdatedAt = time.Now()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}

// clone copies a session so callers never alias stored state.
func clone(sess *session.Session) *session.Session {
	out := *sess
	if sess.StageOutputs != nil {
		out.StageOutputs = make(map[session.Stage]session.StageOutput, len(sess.StageOutputs))
		for k, v := range sess.StageOutputs {
			out.StageOutputs[k] = v
		}
	}
	if sess.ConversationHistory != nil {
		out.ConversationHistory = make([]session.ConversationTurn, len(sess.ConversationHistory))
		copy(out.ConversationHistory, sess.ConversationHistory)
	}
	return &out
}

// Compile-time check that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
