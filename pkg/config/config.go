// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// concordance server, the offline indexing tools and the optional backing
// services (Redis, Kafka, PostgreSQL).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Corpora  []CorpusConfig `yaml:"corpora" validate:"dive"`
	Search   SearchConfig   `yaml:"search"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds the line-protocol TCP server settings.
type ServerConfig struct {
	Port               int           `yaml:"port" validate:"min=1,max=65535"`
	ConnTimeout        time.Duration `yaml:"connTimeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"`
	MaxRequestBytes    int           `yaml:"maxRequestBytes" validate:"min=16"`
	MaxConcurrentConns int           `yaml:"maxConcurrentConns" validate:"min=1"`
}

// CorpusConfig names a corpus directory produced by natctl build. Corpora are
// numbered from 1 in the order they appear.
type CorpusConfig struct {
	Name string `yaml:"name" validate:"required"`
	Dir  string `yaml:"dir" validate:"required"`
}

// SearchConfig controls query limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit" validate:"min=1"`
	MaxResults   int `yaml:"maxResults" validate:"min=1,gtefield=DefaultLimit"`
	MaxTokens    int `yaml:"maxTokens" validate:"min=2"`
	NgramLimit   int `yaml:"ngramLimit" validate:"min=1"`
}

// IndexerConfig controls ingestion of aligned text into a corpus directory.
type IndexerConfig struct {
	MaxWordLen     int    `yaml:"maxWordLen" validate:"min=1"`
	MaxSentenceLen int    `yaml:"maxSentenceLen" validate:"min=1"`
	ChunkSize      int    `yaml:"chunkSize" validate:"min=0"`
	IgnoreCase     bool   `yaml:"ignoreCase"`
	SourceLanguage string `yaml:"sourceLanguage"`
	TargetLanguage string `yaml:"targetLanguage"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" validate:"required_if=Enabled true"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers" validate:"required_if=Enabled true"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// PostgresConfig holds the connection parameters of the ingestion catalog.
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

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// MetricsConfig controls the admin HTTP server (metrics, health, analytics).
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port" validate:"min=0,max=65535"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result.
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

// Validate checks the struct-tag constraints of every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]bool, len(c.Corpora))
	for _, cc := range c.Corpora {
		if seen[cc.Name] {
			return fmt.Errorf("invalid config: duplicate corpus name %q", cc.Name)
		}
		seen[cc.Name] = true
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               4000,
			ConnTimeout:        50 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			MaxRequestBytes:    1024,
			MaxConcurrentConns: 1,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxResults:   1000,
			MaxTokens:    50,
			NgramLimit:   10,
		},
		Indexer: IndexerConfig{
			MaxWordLen:     99,
			MaxSentenceLen: 500,
			ChunkSize:      0,
			IgnoreCase:     true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "concordance-analytics",
			Topics: KafkaTopics{
				AnalyticsEvents: "concordance-events",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "concordance",
			User:            "concordance",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads NAT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NAT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NAT_SERVER_CONN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ConnTimeout = d
		}
	}
	// NAT_CORPORA=name=dir,name=dir replaces the configured corpus list.
	if v := os.Getenv("NAT_CORPORA"); v != "" {
		var corpora []CorpusConfig
		for _, item := range strings.Split(v, ",") {
			name, dir, ok := strings.Cut(strings.TrimSpace(item), "=")
			if !ok {
				continue
			}
			corpora = append(corpora, CorpusConfig{Name: name, Dir: dir})
		}
		cfg.Corpora = corpora
	}
	if v := os.Getenv("NAT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("NAT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NAT_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("NAT_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("NAT_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("NAT_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("NAT_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("NAT_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("NAT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NAT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
