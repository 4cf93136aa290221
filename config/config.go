// Package config provides configuration loading and management for FitAgent.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete FitAgent configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Model    ModelConfig    `yaml:"model"`
	Agent    AgentConfig    `yaml:"agent"`
	NATS     NATSConfig     `yaml:"nats"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// AllowedOrigins is the CORS allowlist ("*" allows any origin)
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SupabaseConfig configures the hosted Postgres REST store and auth.
type SupabaseConfig struct {
	// URL is the project base URL (e.g. https://xyz.supabase.co)
	URL string `yaml:"url"`
	// AnonKey is the public API key sent as the apikey header
	AnonKey string `yaml:"anon_key"`
	// JWTSecret verifies user access tokens (HS256)
	JWTSecret string `yaml:"jwt_secret"`
	// JWTIssuer is the expected iss claim; empty disables the check
	JWTIssuer string `yaml:"jwt_issuer"`
}

// ModelConfig configures the LLM model settings.
type ModelConfig struct {
	// Generation is the model used for task generation (e.g. "gpt-4o-mini")
	Generation string `yaml:"generation"`
	// Chat is the model used for the conversational coach
	Chat string `yaml:"chat"`
	// Endpoint is the OpenAI-compatible API endpoint
	Endpoint string `yaml:"endpoint"`
	// Temperature controls randomness (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// AgentConfig configures the generation pipeline and coach.
type AgentConfig struct {
	// GeneratorTimeout bounds a single domain generator call.
	// A generator that exceeds it contributes zero tasks; the run continues.
	GeneratorTimeout time.Duration `yaml:"generator_timeout"`
	// HistoryLimit is how many recent chat messages feed the coach
	HistoryLimit int `yaml:"history_limit"`
}

// NATSConfig configures the optional event publisher.
type NATSConfig struct {
	// URL is the NATS server URL (empty disables event publishing)
	URL string `yaml:"url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			Generation:  "gpt-4o-mini",
			Chat:        "gpt-4o",
			Endpoint:    "https://api.openai.com/v1",
			Temperature: 0,
			Timeout:     3 * time.Minute,
		},
		Agent: AgentConfig{
			GeneratorTimeout: 60 * time.Second,
			HistoryLimit:     30,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Model.Generation == "" {
		return fmt.Errorf("model.generation is required")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Agent.GeneratorTimeout <= 0 {
		return fmt.Errorf("agent.generator_timeout must be positive")
	}
	if c.Supabase.URL != "" && c.Supabase.AnonKey == "" {
		return fmt.Errorf("supabase.anon_key is required when supabase.url is set")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if len(other.Server.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = other.Server.AllowedOrigins
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	if other.Supabase.URL != "" {
		c.Supabase.URL = other.Supabase.URL
	}
	if other.Supabase.AnonKey != "" {
		c.Supabase.AnonKey = other.Supabase.AnonKey
	}
	if other.Supabase.JWTSecret != "" {
		c.Supabase.JWTSecret = other.Supabase.JWTSecret
	}
	if other.Supabase.JWTIssuer != "" {
		c.Supabase.JWTIssuer = other.Supabase.JWTIssuer
	}

	if other.Model.Generation != "" {
		c.Model.Generation = other.Model.Generation
	}
	if other.Model.Chat != "" {
		c.Model.Chat = other.Model.Chat
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	if other.Agent.GeneratorTimeout != 0 {
		c.Agent.GeneratorTimeout = other.Agent.GeneratorTimeout
	}
	if other.Agent.HistoryLimit != 0 {
		c.Agent.HistoryLimit = other.Agent.HistoryLimit
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
}

// ApplyEnv overlays environment variables onto the config.
// Environment values win over both defaults and file values so that
// deployments can configure the service without a config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FITAGENT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FITAGENT_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		c.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		c.Supabase.AnonKey = v
	}
	if v := os.Getenv("SUPABASE_JWT_SECRET"); v != "" {
		c.Supabase.JWTSecret = v
	}
	if v := os.Getenv("SUPABASE_JWT_ISSUER"); v != "" {
		c.Supabase.JWTIssuer = v
	}
	if v := os.Getenv("FITAGENT_MODEL_ENDPOINT"); v != "" {
		c.Model.Endpoint = v
	}
	if v := os.Getenv("FITAGENT_GENERATION_MODEL"); v != "" {
		c.Model.Generation = v
	}
	if v := os.Getenv("FITAGENT_CHAT_MODEL"); v != "" {
		c.Model.Chat = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("FITAGENT_GENERATOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Agent.GeneratorTimeout = d
		}
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
