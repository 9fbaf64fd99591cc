// Package config provides unified configuration loading for the Comparison Engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/comparison"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/generation"
)

// Generation backends.
const (
	BackendBedrock    = "bedrock"
	BackendOpenRouter = "openrouter"
)

// Config holds all configuration for the Comparison Engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Generation    GenerationConfig    `yaml:"generation"`
	Chunking      chunking.Options    `yaml:"chunking"`
	Processing    ProcessingConfig    `yaml:"processing"`
	Prompts       PromptsConfig       `yaml:"prompts"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DatabaseConfig holds run history database settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// GenerationConfig selects and configures the generation backend.
type GenerationConfig struct {
	Backend    string                      `yaml:"backend"` // bedrock or openrouter
	Bedrock    BedrockConfig               `yaml:"bedrock"`
	OpenRouter OpenRouterConfig            `yaml:"openrouter"`
	Params     generation.GenerationParams `yaml:"params"`
	Retrieval  generation.RetrievalParams  `yaml:"retrieval"`
}

// BedrockConfig holds Bedrock knowledge-base settings.
type BedrockConfig struct {
	Region          string        `yaml:"region"`
	KnowledgeBaseID string        `yaml:"knowledge_base_id"`
	ModelARN        string        `yaml:"model_arn"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
}

// OpenRouterConfig holds OpenRouter settings.
type OpenRouterConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProcessingConfig holds chunk processing settings.
type ProcessingConfig struct {
	PacingDelay time.Duration `yaml:"pacing_delay"`
}

// PromptsConfig points at an optional topic file overlaying the built-ins.
type PromptsConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
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

		if cfg.Prompts.Path != "" {
			cfg.Prompts.Path = ResolveRelativePath(path, cfg.Prompts.Path)
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
	bedrock := generation.DefaultBedrockConfig()

	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     15 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   15 * time.Minute,
			GracefulShutdown: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/comparison-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Enabled:    true,
			Driver:     "memory",
			TTL:        generation.DefaultCacheTTL,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6380",
				DB:       0,
				PoolSize: 10,
			},
		},
		Generation: GenerationConfig{
			Backend: BackendBedrock,
			Bedrock: BedrockConfig{
				Region:         "us-west-2",
				ConnectTimeout: bedrock.ConnectTimeout,
				ReadTimeout:    bedrock.ReadTimeout,
				MaxAttempts:    bedrock.MaxAttempts,
			},
			OpenRouter: OpenRouterConfig{
				Timeout: 60 * time.Second,
			},
			Params:    generation.DefaultGenerationParams(),
			Retrieval: generation.DefaultRetrievalParams(),
		},
		Chunking: chunking.DefaultOptions(),
		Processing: ProcessingConfig{
			PacingDelay: comparison.DefaultPacingDelay,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "console",
			ServiceName: "comparison-engine",
		},
	}
}

// Validate checks the configuration for errors. Service credentials are
// checked separately by ValidateGeneration so that commands that never call
// the service can run without them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Generation.Backend != BackendBedrock && c.Generation.Backend != BackendOpenRouter {
		return fmt.Errorf("invalid generation backend: %s", c.Generation.Backend)
	}

	if !generation.ValidSearchType(c.Generation.Retrieval.SearchType) {
		return fmt.Errorf("invalid search type: %s", c.Generation.Retrieval.SearchType)
	}

	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}

	return nil
}

// ValidateGeneration checks that the selected backend has what it needs to
// make calls.
func (c *Config) ValidateGeneration() error {
	switch c.Generation.Backend {
	case BackendBedrock:
		if c.Generation.Bedrock.KnowledgeBaseID == "" {
			return fmt.Errorf("KNOWLEDGE_BASE_ID is required for the bedrock backend")
		}
		if c.Generation.Bedrock.ModelARN == "" {
			return fmt.Errorf("MODEL_ARN is required for the bedrock backend")
		}
	case BackendOpenRouter:
		if c.Generation.OpenRouter.APIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required for the openrouter backend")
		}
	}
	return nil
}

// PipelineConfig returns the explicit pipeline configuration.
func (c *Config) PipelineConfig() comparison.Config {
	modelRef := c.Generation.Bedrock.ModelARN
	if c.Generation.Backend == BackendOpenRouter {
		modelRef = c.Generation.OpenRouter.Model
	}

	return comparison.Config{
		KnowledgeBaseID: c.Generation.Bedrock.KnowledgeBaseID,
		ModelRef:        modelRef,
		Generation:      c.Generation.Params,
		Retrieval:       c.Generation.Retrieval,
		Chunking:        c.Chunking,
		PacingDelay:     c.Processing.PacingDelay,
	}
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("GENERATION_BACKEND"); v != "" {
		cfg.Generation.Backend = strings.ToLower(v)
	}

	if v := os.Getenv("KNOWLEDGE_BASE_ID"); v != "" {
		cfg.Generation.Bedrock.KnowledgeBaseID = v
	}

	if v := os.Getenv("MODEL_ARN"); v != "" {
		cfg.Generation.Bedrock.ModelARN = v
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Generation.Bedrock.Region = v
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Generation.OpenRouter.APIKey = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Generation.OpenRouter.Model = v
	}

	if v := os.Getenv("PACING_DELAY"); v != "" {
		if d, ok := parseDuration(v); ok {
			cfg.Processing.PacingDelay = d
		}
	}

	if v := os.Getenv("PROMPTS_PATH"); v != "" {
		cfg.Prompts.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// parseDuration accepts Go durations ("1500ms") or plain seconds ("1.5").
func parseDuration(v string) (time.Duration, bool) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
