// Package config provides unified configuration loading for the promo engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the promo engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	PromoIndex    PromoIndexConfig    `yaml:"promo_index"`
	Matching      MatchingConfig      `yaml:"matching"`
	Generation    GenerationConfig    `yaml:"generation"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Redis         RedisConfig         `yaml:"redis"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// PromoIndexConfig holds vector index connection settings.
type PromoIndexConfig struct {
	Host        string        `yaml:"host"`
	APIKey      string        `yaml:"api_key"`
	Namespace   string        `yaml:"namespace"`
	RerankModel string        `yaml:"rerank_model"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MatchingConfig holds matching pipeline tuning.
type MatchingConfig struct {
	SearchTopK     int           `yaml:"search_top_k"`
	RerankTopN     int           `yaml:"rerank_top_n"`
	ScoreThreshold float64       `yaml:"score_threshold"`
	ItemDelay      time.Duration `yaml:"item_delay"`
}

// GenerationConfig holds settings for the briefing generation model.
type GenerationConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RateLimitConfig holds monthly request quota settings.
type RateLimitConfig struct {
	Enabled          bool `yaml:"enabled"`
	RequestsPerMonth int  `yaml:"requests_per_month"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		PromoIndex: PromoIndexConfig{
			Namespace:   "__default__",
			RerankModel: "bge-reranker-v2-m3",
			Timeout:     30 * time.Second,
		},
		Matching: MatchingConfig{
			SearchTopK:     20,
			RerankTopN:     5,
			ScoreThreshold: 0.55,
			ItemDelay:      200 * time.Millisecond,
		},
		Generation: GenerationConfig{
			Model:       "google/gemini-3-pro-preview",
			BaseURL:     "https://openrouter.ai/api/v1",
			MaxTokens:   8192,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			RequestsPerMonth: 50,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "promo-engine",
		},
		Auth: AuthConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Matching.SearchTopK < 1 {
		return fmt.Errorf("search_top_k must be positive, got %d", c.Matching.SearchTopK)
	}

	if c.Matching.RerankTopN < 1 || c.Matching.RerankTopN > c.Matching.SearchTopK {
		return fmt.Errorf("rerank_top_n must be between 1 and search_top_k, got %d", c.Matching.RerankTopN)
	}

	if c.Matching.ScoreThreshold < 0 || c.Matching.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be between 0 and 1, got %f", c.Matching.ScoreThreshold)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMonth < 1 {
		return fmt.Errorf("requests_per_month must be positive when rate limiting is enabled")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("PROMO_INDEX_HOST"); v != "" {
		cfg.PromoIndex.Host = v
	}

	if v := os.Getenv("PROMO_INDEX_API_KEY"); v != "" {
		cfg.PromoIndex.APIKey = v
	}

	if v := os.Getenv("RERANK_SCORE_THRESHOLD"); v != "" {
		var threshold float64
		if _, err := fmt.Sscanf(v, "%f", &threshold); err == nil {
			cfg.Matching.ScoreThreshold = threshold
		}
	}

	if v := os.Getenv("GENERATION_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("API_AUTH_TOKEN"); v != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.Token = v
	}
}
