// Package config loads and validates the gateway configuration from a JSON
// file. Secret-bearing fields support ${ENV_VAR} expansion so API keys and
// the admin token never need to live in the file itself.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the grounder gateway configuration
type Config struct {
	Port         int                `json:"port"`
	DataDir      string             `json:"data_dir,omitempty"`
	AdminToken   string             `json:"admin_token"`
	AI           AIConfig           `json:"ai"`
	Retrieval    RetrievalConfig    `json:"retrieval"`
	Memory       MemoryConfig       `json:"memory"`
	Audit        AuditConfig        `json:"audit,omitempty"`
	RateLimiting RateLimitingConfig `json:"rate_limiting,omitempty"`
	Maintenance  MaintenanceConfig  `json:"maintenance,omitempty"`
}

// AIConfig contains the upstream model gateway settings
type AIConfig struct {
	Completion ProviderConfig  `json:"completion"`
	Embedding  EmbeddingConfig `json:"embedding"`
}

// ProviderConfig configures a chat completion provider.
// Provider is "openai" or "anthropic"; an empty provider means the
// completion gateway is absent and chat requests fail with 500.
type ProviderConfig struct {
	Provider  string `json:"provider"`
	APIKey    string `json:"api_key"` // supports ${ENV_VAR} expansion
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// EmbeddingConfig configures the embedding gateway.
// Provider is "openai"; an empty provider means embedding is absent and
// ingestion plus grounded retrieval fail with 500.
type EmbeddingConfig struct {
	Provider   string `json:"provider"`
	APIKey     string `json:"api_key"` // supports ${ENV_VAR} expansion
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// RetrievalConfig tunes similarity search and routing. Threshold is a
// pointer so an explicit 0 (a meaningful cutoff, cosine scores can be
// negative) is distinguishable from an absent key, which gets the default.
type RetrievalConfig struct {
	TopK      int      `json:"top_k,omitempty"`     // chunks injected in grounded mode (default 3)
	Threshold *float32 `json:"threshold,omitempty"` // relevance cutoff, exclusive (default 0.45)
}

// MemoryConfig tunes per-session conversation memory
type MemoryConfig struct {
	Window         int `json:"window,omitempty"`           // max turns kept per session, even (default 6)
	IdleTTLMinutes int `json:"idle_ttl_minutes,omitempty"` // idle-session eviction (default 60)
}

// AuditConfig controls the SQLite chat audit log
type AuditConfig struct {
	Enabled       bool   `json:"enabled"`
	Path          string `json:"path,omitempty"`           // derived from data_dir if empty
	RetentionDays int    `json:"retention_days,omitempty"` // 0 keeps forever
}

// RateLimitingConfig controls per-client chat rate limiting
type RateLimitingConfig struct {
	Enabled       bool `json:"enabled"`
	WindowSeconds int  `json:"window_seconds,omitempty"` // default 60
	MaxRequests   int  `json:"max_requests,omitempty"`   // default 30
}

// MaintenanceConfig controls the background housekeeping schedule
type MaintenanceConfig struct {
	Schedule string `json:"schedule,omitempty"` // cron spec (default "@every 10m")
}

// Default returns a configuration with sensible defaults. Secrets reference
// environment variables so the generated file is safe to commit.
func Default() *Config {
	return &Config{
		Port:       8080,
		DataDir:    "./data",
		AdminToken: "${GROUNDER_ADMIN_TOKEN}",
		AI: AIConfig{
			Completion: ProviderConfig{
				Provider: "openai",
				APIKey:   "${OPENAI_API_KEY}",
				Model:    "gpt-4o-mini",
			},
			Embedding: EmbeddingConfig{
				Provider:   "openai",
				APIKey:     "${OPENAI_API_KEY}",
				Model:      "text-embedding-3-small",
				Dimensions: 1536,
			},
		},
		Retrieval: RetrievalConfig{TopK: 3, Threshold: float32Ptr(0.45)},
		Memory:    MemoryConfig{Window: 6, IdleTTLMinutes: 60},
		Audit:     AuditConfig{Enabled: true, RetentionDays: 30},
		RateLimiting: RateLimitingConfig{
			Enabled:       true,
			WindowSeconds: 60,
			MaxRequests:   30,
		},
		Maintenance: MaintenanceConfig{Schedule: "@every 10m"},
	}
}

// Load loads configuration from a file, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		fmt.Printf("Created default configuration at %s\n", path)
		if err := cfg.expandEnvVars(); err != nil {
			return nil, err
		}
		cfg.applyDefaults()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.expandEnvVars(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandEnvVars expands ${ENV_VAR} placeholders in secret-bearing fields.
// A placeholder whose variable is unset expands to empty, which downgrades
// the corresponding capability to absent rather than failing startup.
func (c *Config) expandEnvVars() error {
	c.DataDir = os.ExpandEnv(c.DataDir)
	c.AdminToken = os.ExpandEnv(c.AdminToken)
	c.AI.Completion.APIKey = os.ExpandEnv(c.AI.Completion.APIKey)
	c.AI.Embedding.APIKey = os.ExpandEnv(c.AI.Embedding.APIKey)
	c.Audit.Path = os.ExpandEnv(c.Audit.Path)
	return nil
}

// applyDefaults fills zero values with defaults
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.Threshold == nil {
		c.Retrieval.Threshold = float32Ptr(0.45)
	}
	if c.Memory.Window == 0 {
		c.Memory.Window = 6
	}
	if c.Memory.IdleTTLMinutes == 0 {
		c.Memory.IdleTTLMinutes = 60
	}
	if c.RateLimiting.WindowSeconds == 0 {
		c.RateLimiting.WindowSeconds = 60
	}
	if c.RateLimiting.MaxRequests == 0 {
		c.RateLimiting.MaxRequests = 30
	}
	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = "@every 10m"
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if t := c.Retrieval.Threshold; t != nil && (*t < -1 || *t > 1) {
		return fmt.Errorf("retrieval.threshold must be in [-1, 1], got %v", *t)
	}
	if c.Memory.Window < 2 {
		return fmt.Errorf("memory.window must be at least 2, got %d", c.Memory.Window)
	}
	if c.Memory.Window%2 != 0 {
		return fmt.Errorf("memory.window must be even (user+assistant pairs), got %d", c.Memory.Window)
	}
	if c.RateLimiting.Enabled && c.RateLimiting.MaxRequests < 1 {
		return fmt.Errorf("rate_limiting.max_requests must be at least 1, got %d", c.RateLimiting.MaxRequests)
	}
	return nil
}

func float32Ptr(v float32) *float32 {
	return &v
}

// SnapshotPath returns the knowledge snapshot location under the data dir.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "knowledge.json")
}

// AuditPath returns the audit database location, deriving it from the data
// dir when not set explicitly.
func (c *Config) AuditPath() string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(c.DataDir, "audit.db")
}
