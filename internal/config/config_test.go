package config

import (
	"path/filepath"
	"testing"
)

func TestConfigYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Store.RedisAddr = "localhost:6379"
	cfg.Collaborators.GeneratorURL = "http://gen.internal"

	if err := WriteConfig(path, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if loaded.Store.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", loaded.Store.RedisAddr)
	}
	if loaded.Collaborators.GeneratorURL != "http://gen.internal" {
		t.Errorf("GeneratorURL = %q", loaded.Collaborators.GeneratorURL)
	}
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Workflow.GenerationTimeoutSecs != 300 {
		t.Errorf("GenerationTimeoutSecs = %d, want 300", cfg.Workflow.GenerationTimeoutSecs)
	}
	if cfg.Workflow.HistorySuffixTurns != 10 {
		t.Errorf("HistorySuffixTurns = %d, want 10", cfg.Workflow.HistorySuffixTurns)
	}
	if cfg.Notify.HeartbeatSecs != 15 {
		t.Errorf("HeartbeatSecs = %d, want 15", cfg.Notify.HeartbeatSecs)
	}
	if cfg.Store.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want unset by default", cfg.Store.RedisAddr)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := &Config{}
	*partial = *DefaultConfig()
	partial.HTTP.Addr = ":9999"
	if err := WriteConfig(path, partial); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if loaded.HTTP.Addr != ":9999" {
		t.Errorf("Addr = %q", loaded.HTTP.Addr)
	}
	if loaded.EventLog.Path == "" {
		t.Error("EventLog.Path default lost")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ADMINT_REDIS_ADDR", "redis.prod:6379")
	t.Setenv("ADMINT_SUPABASE_KEY", "sk-test")

	cfg := DefaultConfig()
	if cfg.Store.RedisAddr != "redis.prod:6379" {
		t.Errorf("RedisAddr = %q, env override lost", cfg.Store.RedisAddr)
	}
	if cfg.Store.SupabaseKey != "sk-test" {
		t.Errorf("SupabaseKey = %q, env override lost", cfg.Store.SupabaseKey)
	}
}
