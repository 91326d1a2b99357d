// Package config loads and validates the gateway's declarative
// configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/unigate/pkg/schema"
)

// BreakerConfig holds circuit-breaker tunables.
type BreakerConfig struct {
	Window           int     `yaml:"window,omitempty"`
	FailureThreshold float64 `yaml:"failure_threshold,omitempty"`
	CooldownSeconds  int     `yaml:"cooldown_seconds,omitempty"`
}

// CacheConfig holds response-cache tunables. TTLSeconds maps task
// category to TTL; a zero entry disables caching for that category.
type CacheConfig struct {
	Backend             string         `yaml:"backend,omitempty"` // memory (default) or redis
	RedisAddr           string         `yaml:"redis_addr,omitempty"`
	RedisPassword       string         `yaml:"redis_password,omitempty"`
	RedisDB             int            `yaml:"redis_db,omitempty"`
	SweepIntervalSecs int            `yaml:"sweep_interval_seconds,omitempty"`
	TTLSeconds        map[string]int `yaml:"ttl_seconds,omitempty"`
}

// RateLimitConfig holds admission tunables.
type RateLimitConfig struct {
	CallerRate      float64 `yaml:"caller_rate,omitempty"`
	CallerBurst     int     `yaml:"caller_burst,omitempty"`
	GlobalRate      float64 `yaml:"global_rate,omitempty"`
	GlobalBurst     int     `yaml:"global_burst,omitempty"`
	QueueDepth      int     `yaml:"queue_depth,omitempty"`
	MaxQueueDelayMs int     `yaml:"max_queue_delay_ms,omitempty"`
}

// TelemetryConfig holds sink settings. AuditDB enables the SQLite
// audit trail when set.
type TelemetryConfig struct {
	LogEvents bool   `yaml:"log_events"`
	AuditDB   string `yaml:"audit_db,omitempty"`
}

// Config is the full gateway configuration.
type Config struct {
	Listen               string           `yaml:"listen,omitempty"`
	Platforms            []PlatformConfig `yaml:"platforms"`
	Breaker              BreakerConfig    `yaml:"breaker,omitempty"`
	Cache                CacheConfig      `yaml:"cache,omitempty"`
	RateLimit            RateLimitConfig  `yaml:"rate_limit,omitempty"`
	DispatchTimeoutSecs  int              `yaml:"dispatch_timeout_seconds,omitempty"`
	ProbeIntervalSeconds int              `yaml:"probe_interval_seconds,omitempty"`
	Telemetry            TelemetryConfig  `yaml:"telemetry,omitempty"`
}

// Load reads configuration from a YAML file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration: the four reference
// platforms on their conventional local endpoints.
func Default() *Config {
	cfg := &Config{
		Platforms: []PlatformConfig{
			{
				ID:       "dify",
				Kind:     "dify",
				Endpoint: "http://dify-api:3000/api/v1",
				Strengths: []string{
					"chat_conversation", "knowledge_base", "document_qa", "multi_language",
				},
				Latency: "low",
				Cost:    "medium",
				Tier:    2,
			},
			{
				ID:       "ragflow",
				Kind:     "ragflow",
				Endpoint: "http://ragflow-api:9380/api/v1",
				Strengths: []string{
					"document_qa", "hybrid_retrieval", "knowledge_base", "enterprise_grade",
				},
				Latency: "medium",
				Cost:    "medium",
				Tier:    3,
			},
			{
				ID:       "n8n",
				Kind:     "n8n",
				Endpoint: "http://n8n-api:5678",
				Strengths: []string{
					"workflow_automation", "multi_step_processing", "webhook_integration",
				},
				Latency: "high",
				Cost:    "low",
				Tier:    1,
				Webhook: "unigate",
			},
			{
				ID:       "langflow",
				Kind:     "langflow",
				Endpoint: "http://langflow-api:3000/api/v1",
				Strengths: []string{
					"visual_flow_design", "component_orchestration",
				},
				Latency: "medium",
				Cost:    "low",
				Tier:    1,
				FlowID:  "default",
			},
		},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Breaker.Window == 0 {
		cfg.Breaker.Window = 20
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 0.5
	}
	if cfg.Breaker.CooldownSeconds == 0 {
		cfg.Breaker.CooldownSeconds = 30
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.SweepIntervalSecs == 0 {
		cfg.Cache.SweepIntervalSecs = 60
	}
	if cfg.RateLimit.CallerRate == 0 {
		cfg.RateLimit.CallerRate = 10
	}
	if cfg.RateLimit.CallerBurst == 0 {
		cfg.RateLimit.CallerBurst = 20
	}
	if cfg.RateLimit.GlobalRate == 0 {
		cfg.RateLimit.GlobalRate = 200
	}
	if cfg.RateLimit.GlobalBurst == 0 {
		cfg.RateLimit.GlobalBurst = 400
	}
	if cfg.RateLimit.MaxQueueDelayMs == 0 {
		cfg.RateLimit.MaxQueueDelayMs = 200
	}
	if cfg.DispatchTimeoutSecs == 0 {
		cfg.DispatchTimeoutSecs = 30
	}
	if cfg.ProbeIntervalSeconds == 0 {
		cfg.ProbeIntervalSeconds = 15
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}
	seen := map[string]bool{}
	for i := range c.Platforms {
		p := &c.Platforms[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate platform id %q", p.ID)
		}
		seen[p.ID] = true
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache backend redis requires redis_addr")
	}
	for category := range c.Cache.TTLSeconds {
		if _, err := schema.ParseTaskCategory(category); err != nil {
			return fmt.Errorf("cache ttl table: %w", err)
		}
	}
	if c.Breaker.FailureThreshold < 0 || c.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("breaker failure_threshold must be within [0,1]")
	}
	return nil
}

// Profiles converts every platform entry into an immutable profile
// snapshot for the registry.
func (c *Config) Profiles() []*schema.PlatformProfile {
	profiles := make([]*schema.PlatformProfile, 0, len(c.Platforms))
	for i := range c.Platforms {
		profiles = append(profiles, c.Platforms[i].Profile())
	}
	return profiles
}

// TTLTable converts the configured TTL map into the cache's table,
// falling back to nil (cache defaults) when unset.
func (c *Config) TTLTable() map[schema.TaskCategory]time.Duration {
	if len(c.Cache.TTLSeconds) == 0 {
		return nil
	}
	table := make(map[schema.TaskCategory]time.Duration, len(c.Cache.TTLSeconds))
	for category, secs := range c.Cache.TTLSeconds {
		table[schema.TaskCategory(category)] = time.Duration(secs) * time.Second
	}
	return table
}

// DispatchTimeout returns the per-attempt adapter timeout.
func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSecs) * time.Second
}

// Cooldown returns the breaker cooldown interval.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownSeconds) * time.Second
}

// ProbeInterval returns the health prober interval.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}
