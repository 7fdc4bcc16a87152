package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

const (
	// Redis key prefix for sessions
	sessionKeyPrefix = "admint:session:"
	// Default TTL for session keys (24 hours)
	defaultTTL = 24 * time.Hour
)

// RedisStore implements Store using Redis with optimistic locking.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Create implements Store.
// Creates a new session with Version set to 1 and sets TTL.
func (s *RedisStore) Create(ctx context.Context, sess *session.Session) error {
	key := s.key(sess.ID)
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.Version = 1

	val, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, key, val, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return session.ErrVersionConflict
	}
	return nil
}

// Get implements Store.
// Refreshes TTL on every read.
func (s *RedisStore) Get(ctx context.Context, id string) (*session.Session, error) {
	key := s.key(id)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}

	// Refresh TTL on read
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return &sess, nil
}

// Update implements Store.
// Implements optimistic locking using Redis WATCH/MULTI/EXEC.
// Verifies Version matches, increments it, updates UpdatedAt, and persists.
func (s *RedisStore) Update(ctx context.Context, sess *session.Session) error {
	key := s.key(sess.ID)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return session.ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored session.Session
		if err := json.Unmarshal([]byte(val), &stored); err != nil {
			return err
		}

		if stored.Version != sess.Version {
			return session.ErrVersionConflict
		}

		sess.Version++
		sess.UpdatedAt = time.Now()

		newVal, err := json.Marshal(sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		return err
	}, key)
}

// AppendTurn implements Store.
// Appends under WATCH so concurrent writers cannot drop or reorder turns.
func (s *RedisStore) AppendTurn(ctx context.Context, id string, turn session.ConversationTurn) error {
	key := s.key(id)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return session.ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored session.Session
		if err := json.Unmarshal([]byte(val), &stored); err != nil {
			return err
		}

		stored.ConversationHistory = append(stored.ConversationHistory, turn)
		stored.Version++
		stored.UpdatedAt = time.Now()

		newVal, err := json.Marshal(&stored)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		return err
	}, key)
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// key constructs the Redis key for a session ID.
func (s *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}

// Compile-time check that RedisStore implements Store
var _ Store = (*RedisStore)(nil)
