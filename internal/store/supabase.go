package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

const sessionsTable = "sessions"

// SupabaseConfig holds Supabase connection configuration.
type SupabaseConfig struct {
	URL    string
	APIKey string
}

// SupabaseStore implements Store against a Supabase Postgres table via the
// PostgREST query builder. Optimistic locking is enforced by guarding
// updates on the stored version column and checking the returned row count.
type SupabaseStore struct {
	client *supabase.Client
}

// sessionRow mirrors the sessions table. StageOutputs and
// ConversationHistory are jsonb columns; history is a JSON array, so
// ordered-sequence semantics hold at the storage boundary.
type sessionRow struct {
	ID                  string                                `json:"id"`
	OwnerID             string                                `json:"owner_id"`
	CurrentStage        session.Stage                         `json:"current_stage"`
	Prompt              string                                `json:"prompt"`
	TargetDurationSecs  int                                   `json:"target_duration_secs"`
	StageOutputs        map[session.Stage]session.StageOutput `json:"stage_outputs"`
	ConversationHistory []session.ConversationTurn            `json:"conversation_history"`
	GenerationSeq       uint64                                `json:"generation_seq"`
	Version             int64                                 `json:"version"`
	CreatedAt           time.Time                             `json:"created_at"`
	UpdatedAt           time.Time                             `json:"updated_at"`
}

// NewSupabaseStore creates a new Supabase-backed session store.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseStore{client: client}, nil
}

// Create implements Store.
func (s *SupabaseStore) Create(ctx context.Context, sess *session.Session) error {
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.Version = 1

	var inserted []sessionRow
	_, err := s.client.From(sessionsTable).
		Insert(toRow(sess), false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SupabaseStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var rows []sessionRow
	_, err := s.client.From(sessionsTable).
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(rows) == 0 {
		return nil, session.ErrNotFound
	}
	return fromRow(&rows[0]), nil
}

// Update implements Store.
// The version guard on the WHERE clause makes the update conditional; an
// empty returned set means the row was missing or the version moved.
func (s *SupabaseStore) Update(ctx context.Context, sess *session.Session) error {
	expected := sess.Version
	sess.Version = expected + 1
	sess.UpdatedAt = time.Now()

	var updated []sessionRow
	_, err := s.client.From(sessionsTable).
		Update(toRow(sess), "representation", "").
		Eq("id", sess.ID).
		Eq("version", strconv.FormatInt(expected, 10)).
		ExecuteTo(&updated)
	if err != nil {
		sess.Version = expected
		return fmt.Errorf("failed to update session: %w", err)
	}

	if len(updated) == 0 {
		sess.Version = expected
		if _, getErr := s.Get(ctx, sess.ID); getErr != nil {
			return getErr
		}
		return session.ErrVersionConflict
	}
	return nil
}

// AppendTurn implements Store.
func (s *SupabaseStore) AppendTurn(ctx context.Context, id string, turn session.ConversationTurn) error {
	stored, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	stored.ConversationHistory = append(stored.ConversationHistory, turn)
	return s.Update(ctx, stored)
}

// Delete implements Store.
func (s *SupabaseStore) Delete(ctx context.Context, id string) error {
	var deleted []sessionRow
	_, err := s.client.From(sessionsTable).
		Delete("", "").
		Eq("id", id).
		ExecuteTo(&deleted)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	var rows []sessionRow
	_, err := s.client.From(sessionsTable).
		Select("id", "", false).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("supabase unreachable: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SupabaseStore) Close() error {
	// Supabase client doesn't require explicit close
	return nil
}

func toRow(sess *session.Session) *sessionRow {
	return &sessionRow{
		ID:                  sess.ID,
		OwnerID:             sess.OwnerID,
		CurrentStage:        sess.CurrentStage,
		Prompt:              sess.Prompt,
		TargetDurationSecs:  sess.TargetDurationSecs,
		StageOutputs:        sess.StageOutputs,
		ConversationHistory: sess.ConversationHistory,
		GenerationSeq:       sess.GenerationSeq,
		Version:             sess.Version,
		CreatedAt:           sess.CreatedAt,
		UpdatedAt:           sess.UpdatedAt,
	}
}

func fromRow(row *sessionRow) *session.Session {
	return &session.Session{
		ID:                  row.ID,
		OwnerID:             row.OwnerID,
		CurrentStage:        row.CurrentStage,
		Prompt:              row.Prompt,
		TargetDurationSecs:  row.TargetDurationSecs,
		StageOutputs:        row.StageOutputs,
		ConversationHistory: row.ConversationHistory,
		GenerationSeq:       row.GenerationSeq,
		Version:             row.Version,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

// Compile-time check that SupabaseStore implements Store
var _ Store = (*SupabaseStore)(nil)
