package store

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tier identifies the backing tier a Store was opened on.
type Tier string

const (
	TierRedis    Tier = "redis"
	TierSupabase Tier = "supabase"
	TierMemory   Tier = "memory"
)

// Config holds the connection settings for the storage tiers. Empty
// settings disable the corresponding tier.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	SupabaseURL   string
	SupabaseKey   string
}

// Select opens the best available storage tier, in fixed preference order:
// Redis, then Supabase, then in-process memory. The choice is made once;
// callers hold the returned Store for the process lifetime.
//
// A configured tier that is unreachable at startup is skipped with a logged
// reason. The memory tier always succeeds but is non-durable and cannot be
// shared across processes, so selecting it logs a visible warning.
func Select(ctx context.Context, cfg Config) (Store, Tier, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s := NewRedisStore(client, cfg.RedisTTL)
		if err := s.Ping(ctx); err == nil {
			return s, TierRedis, nil
		} else {
			log.Printf("store: redis at %s unreachable, falling back: %v", cfg.RedisAddr, err)
			_ = client.Close()
		}
	}

	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		s, err := NewSupabaseStore(SupabaseConfig{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
		if err == nil {
			if pingErr := s.Ping(ctx); pingErr == nil {
				return s, TierSupabase, nil
			} else {
				log.Printf("store: supabase unreachable, falling back: %v", pingErr)
			}
		} else {
			log.Printf("store: supabase client init failed, falling back: %v", err)
		}
	}

	log.Printf("store: WARNING using in-process memory store; session state is " +
		"non-durable and will be lost on restart (development use only)")
	return NewMemoryStore(), TierMemory, nil
}
