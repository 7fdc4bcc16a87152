// Package config handles reading and writing the service configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for config.yaml.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Store         StoreConfig         `yaml:"store"`
	Workflow      WorkflowConfig      `yaml:"workflow"`
	Notify        NotifyConfig        `yaml:"notify"`
	EventLog      EventLogConfig      `yaml:"event_log"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
}

// CollaboratorsConfig points at the external generation and reasoning
// services.
type CollaboratorsConfig struct {
	GeneratorURL string `yaml:"generator_url"`
	ReasonerURL  string `yaml:"reasoner_url"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig selects and configures the storage tiers. An empty address
// or URL disables that tier.
type StoreConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisTTLHours int    `yaml:"redis_ttl_hours"`
	SupabaseURL   string `yaml:"supabase_url"`
	SupabaseKey   string `yaml:"supabase_key"`
}

// WorkflowConfig controls generation behaviour.
type WorkflowConfig struct {
	GenerationTimeoutSecs int `yaml:"generation_timeout_secs"`
	HistorySuffixTurns    int `yaml:"history_suffix_turns"`
}

// NotifyConfig controls the real-time channel.
type NotifyConfig struct {
	HeartbeatSecs int `yaml:"heartbeat_secs"`
}

// EventLogConfig controls the JSONL audit log.
type EventLogConfig struct {
	Path string `yaml:"path"`
}

// ReadConfig reads a YAML config file from path.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// WriteConfig writes cfg to path.
func WriteConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Store: StoreConfig{
			RedisTTLHours: 24,
		},
		Workflow: WorkflowConfig{
			GenerationTimeoutSecs: 300,
			HistorySuffixTurns:    10,
		},
		Notify: NotifyConfig{HeartbeatSecs: 15},
		EventLog: EventLogConfig{
			Path: "admint-events.jsonl",
		},
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv lets deployment secrets override file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("ADMINT_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv("ADMINT_REDIS_PASSWORD"); v != "" {
		c.Store.RedisPassword = v
	}
	if v := os.Getenv("ADMINT_SUPABASE_URL"); v != "" {
		c.Store.SupabaseURL = v
	}
	if v := os.Getenv("ADMINT_SUPABASE_KEY"); v != "" {
		c.Store.SupabaseKey = v
	}
}
