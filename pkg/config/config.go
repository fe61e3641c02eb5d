// Package config loads the gateway's runtime configuration from the
// environment, layering a .env file underneath real process environment
// variables (LoadEnvFiles) rather than a YAML document — the gateway's
// configuration surface is small enough that a struct of env vars is a
// better fit than a full config tree.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is every tunable the gateway reads at startup.
type Config struct {
	// HTTP server
	ServicePort int
	CORSOrigins []string

	// Model provider
	ModelProvider string
	APIKey        string
	DefaultModel  string
	FastModel     string

	// Conversation store
	ConversationStoreType string // "memory" or "redis"
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	// Rate limit store
	RateLimitStoreType string // "memory" or "sql"
	RateLimitDialect   string // "postgres", "mysql", "sqlite" (when RateLimitStoreType is "sql")
	RateLimitDSN       string

	// External data service
	ExternalDataBaseURL string
	ExternalDataTimeout time.Duration

	// Auth
	JWKSURL  string
	Issuer   string
	Audience string

	Debug bool

	// Observability
	TracingEnabled bool
	TracingEndpoint string
	MetricsEnabled bool

	// Native agent runtime budgets
	NativeAgentEnabled bool
	MaxToolCalls       int
	MaxTurnDuration    time.Duration
	PerToolTimeout     time.Duration
	HeartbeatInterval  time.Duration
}

// Load reads Config from the process environment, having first loaded
// any .env / .env.local file present.
func Load() (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		ServicePort:           envInt("SERVICE_PORT", 8080),
		CORSOrigins:           envList("CORS_ORIGINS", []string{"*"}),
		ModelProvider:         envString("MODEL_PROVIDER", "openai"),
		DefaultModel:          envString("DEFAULT_MODEL", "gpt-4o"),
		FastModel:             envString("FAST_MODEL", "gpt-4o-mini"),
		ConversationStoreType: envString("CONVERSATION_STORE_TYPE", "memory"),
		RedisAddr:             envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         envString("REDIS_PASSWORD", ""),
		RedisDB:               envInt("REDIS_DB", 0),
		RateLimitStoreType:    envString("RATE_LIMIT_STORE_TYPE", "memory"),
		RateLimitDialect:      envString("RATE_LIMIT_DIALECT", "postgres"),
		RateLimitDSN:          envString("RATE_LIMIT_DSN", ""),
		ExternalDataBaseURL:   envString("EXTERNAL_DATA_BASE_URL", ""),
		ExternalDataTimeout:   envDuration("EXTERNAL_DATA_TIMEOUT", 10*time.Second),
		JWKSURL:               envString("AUTH_JWKS_URL", ""),
		Issuer:                envString("AUTH_ISSUER", ""),
		Audience:              envString("AUTH_AUDIENCE", ""),
		Debug:                 envBool("DEBUG", false),
		TracingEnabled:        envBool("TRACING_ENABLED", false),
		TracingEndpoint:       envString("TRACING_ENDPOINT", "localhost:4317"),
		MetricsEnabled:        envBool("METRICS_ENABLED", true),
		NativeAgentEnabled:    envBool("NATIVE_AGENT_ENABLED", true),
		MaxToolCalls:          envInt("MAX_TOOL_CALLS", 10),
		MaxTurnDuration:       envDuration("MAX_TURN_DURATION_S", 120*time.Second),
		PerToolTimeout:        envDuration("PER_TOOL_TIMEOUT_S", 30*time.Second),
		HeartbeatInterval:     envDuration("HEARTBEAT_INTERVAL_S", 15*time.Second),
	}
	cfg.APIKey = GetProviderAPIKey(cfg.ModelProvider)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate rejects a configuration the gateway could not run with, so
// misconfiguration fails at startup rather than mid-request.
func (c *Config) Validate() error {
	if c.ServicePort <= 0 || c.ServicePort > 65535 {
		return fmt.Errorf("SERVICE_PORT must be between 1 and 65535, got %d", c.ServicePort)
	}
	if c.APIKey == "" {
		return fmt.Errorf("no API key configured for MODEL_PROVIDER=%s", c.ModelProvider)
	}
	if c.ExternalDataBaseURL == "" {
		return fmt.Errorf("EXTERNAL_DATA_BASE_URL is required")
	}
	switch c.ConversationStoreType {
	case "memory", "redis":
	default:
		return fmt.Errorf("CONVERSATION_STORE_TYPE must be memory or redis, got %q", c.ConversationStoreType)
	}
	switch c.RateLimitStoreType {
	case "memory":
	case "sql":
		if c.RateLimitDSN == "" {
			return fmt.Errorf("RATE_LIMIT_DSN is required when RATE_LIMIT_STORE_TYPE=sql")
		}
		switch c.RateLimitDialect {
		case "postgres", "mysql", "sqlite":
		default:
			return fmt.Errorf("RATE_LIMIT_DIALECT must be postgres, mysql, or sqlite, got %q", c.RateLimitDialect)
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE_TYPE must be memory or sql, got %q", c.RateLimitStoreType)
	}
	if c.MaxToolCalls <= 0 {
		return fmt.Errorf("MAX_TOOL_CALLS must be positive")
	}
	if c.MaxTurnDuration <= 0 || c.PerToolTimeout <= 0 || c.HeartbeatInterval <= 0 {
		return fmt.Errorf("MAX_TURN_DURATION_S, PER_TOOL_TIMEOUT_S and HEARTBEAT_INTERVAL_S must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
