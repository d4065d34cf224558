// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// search engine itself and for every optional adapter (Kafka, Postgres, Redis,
// metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Requests   RequestsConfig   `yaml:"requests"`
	Pagination PaginationConfig `yaml:"pagination"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// EngineConfig controls stop words and the scoring strategy.
type EngineConfig struct {
	StopWords         string `yaml:"stopWords"`
	Mode              string `yaml:"mode"`
	AccumulatorShards int    `yaml:"accumulatorShards"`
	MaxWorkers        int    `yaml:"maxWorkers"`
}

// RequestsConfig sizes the sliding window of the empty-result tracker.
type RequestsConfig struct {
	Window int `yaml:"window"`
}

type PaginationConfig struct {
	PageSize int `yaml:"pageSize"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. ConsumerGroup is a
// prefix: every process joins its own group so that it replays the topic
// from the start.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	DocumentTopic string   `yaml:"documentTopic"`
}

// RedisConfig holds Redis connection and result-caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// OpTimeout bounds each cache round trip; a slow cache counts as a miss.
	OpTimeout        time.Duration `yaml:"opTimeout"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint of the CLI.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values and rejects values the engine cannot run with.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// Validate checks the engine-facing settings.
func (c *Config) Validate() error {
	switch c.Engine.Mode {
	case "sequential", "parallel":
	default:
		return fmt.Errorf("engine.mode must be sequential or parallel, got %q", c.Engine.Mode)
	}
	if c.Engine.AccumulatorShards <= 0 {
		return fmt.Errorf("engine.accumulatorShards must be positive, got %d", c.Engine.AccumulatorShards)
	}
	if c.Requests.Window <= 0 {
		return fmt.Errorf("requests.window must be positive, got %d", c.Requests.Window)
	}
	if c.Pagination.PageSize <= 0 {
		return fmt.Errorf("pagination.pageSize must be positive, got %d", c.Pagination.PageSize)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			StopWords:         "and in on",
			Mode:              "sequential",
			AccumulatorShards: 50,
		},
		Requests: RequestsConfig{
			Window: 1440,
		},
		Pagination: PaginationConfig{
			PageSize: 2,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "searchserver",
			User:            "searchserver",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "searchserver-group",
			DocumentTopic: "document-events",
		},
		Redis: RedisConfig{
			Addr:             "localhost:6379",
			PoolSize:         10,
			CacheTTL:         60 * time.Second,
			OpTimeout:        50 * time.Millisecond,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("SP_ENGINE_STOP_WORDS"); ok {
		cfg.Engine.StopWords = v
	}
	if v := os.Getenv("SP_ENGINE_MODE"); v != "" {
		cfg.Engine.Mode = v
	}
	if v := os.Getenv("SP_ENGINE_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxWorkers = n
		}
	}
	if v := os.Getenv("SP_REQUESTS_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Requests.Window = n
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
