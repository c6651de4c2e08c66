package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the TrialScope server.
type Config struct {
	Server    ServerConfig
	Snowflake SnowflakeConfig
	Redis     RedisConfig
	AI        AIConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type SnowflakeConfig struct {
	Account       string
	User          string
	Password      string
	Authenticator string // "externalbrowser" or "snowflake"
	Warehouse     string
	Database      string
	Schema        string
	Role          string
	QueryTimeout  time.Duration
}

type RedisConfig struct {
	// URL is optional; when empty, caching and rate limiting are disabled.
	URL string
	TTL time.Duration
}

type AIConfig struct {
	// Provider is optional; when empty, the meta-summary feature is disabled.
	Provider         string
	MaxTokens        int
	InferenceTimeout time.Duration
	Anthropic        AnthropicConfig
	OpenAI           OpenAIConfig
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

var validProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"mock":      true,
}

var validAuthenticators = map[string]bool{
	"externalbrowser": true,
	"snowflake":       true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TRIALSCOPE_PORT", 8080),
			Env:  envString("TRIALSCOPE_ENV", "development"),
		},
		Snowflake: SnowflakeConfig{
			Account:       os.Getenv("SNOWFLAKE_ACCOUNT"),
			User:          os.Getenv("SNOWFLAKE_USER"),
			Password:      os.Getenv("SNOWFLAKE_PASSWORD"),
			Authenticator: envString("SNOWFLAKE_AUTHENTICATOR", "externalbrowser"),
			Warehouse:     os.Getenv("SNOWFLAKE_WAREHOUSE"),
			Database:      envString("SNOWFLAKE_DATABASE", "REPORTING"),
			Schema:        envString("SNOWFLAKE_SCHEMA", "GENERAL"),
			Role:          os.Getenv("SNOWFLAKE_ROLE"),
			QueryTimeout:  envDuration("SNOWFLAKE_QUERY_TIMEOUT", 2*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
			TTL: envDuration("REDIS_CACHE_TTL", 60*time.Second),
		},
		AI: AIConfig{
			Provider:         os.Getenv("AI_PROVIDER"),
			MaxTokens:        envInt("AI_MAX_TOKENS", 4096),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 120*time.Second),
			Anthropic: AnthropicConfig{
				APIKey: os.Getenv("ANTHROPIC_API_KEY"),
				Model:  envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envString("OPENAI_MODEL", "gpt-4o"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MetaSummaryEnabled reports whether an LLM provider is configured, which
// gates the meta-summary endpoints.
func (c *Config) MetaSummaryEnabled() bool {
	return c.AI.Provider != ""
}

func (c *Config) validate() error {
	if c.Snowflake.Account == "" {
		return fmt.Errorf("SNOWFLAKE_ACCOUNT is required")
	}
	if c.Snowflake.User == "" {
		return fmt.Errorf("SNOWFLAKE_USER is required")
	}
	if !validAuthenticators[c.Snowflake.Authenticator] {
		return fmt.Errorf("SNOWFLAKE_AUTHENTICATOR must be one of externalbrowser, snowflake; got %q", c.Snowflake.Authenticator)
	}
	if c.Snowflake.Authenticator == "snowflake" && c.Snowflake.Password == "" {
		return fmt.Errorf("SNOWFLAKE_PASSWORD is required when SNOWFLAKE_AUTHENTICATOR is snowflake")
	}

	if c.AI.Provider != "" && !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of anthropic, openai, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
