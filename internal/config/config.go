// Package config defines the configuration structures for the KeyIP-Chem
// binaries, their defaults and validation.  Loading lives in loader.go.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins lists the browser origins granted CORS access.  Empty
	// disables CORS headers.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GRPCConfig controls the gRPC listener that serves the standard health
// service.  Port 0 picks a free port.
type GRPCConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Reflection bool   `mapstructure:"reflection"`
}

// MatcherConfig bounds pattern compilation and substructure search.
type MatcherConfig struct {
	// StepBudget caps candidate bindings per match.  0 means unlimited.
	StepBudget int64 `mapstructure:"step_budget"`
	// MaxNestingDepth bounds branch and $(...) nesting in both notations.
	MaxNestingDepth int           `mapstructure:"max_nesting_depth"`
	MatchTimeout    time.Duration `mapstructure:"match_timeout"`
	// Workers is the number of patterns screened in parallel per request.
	Workers int `mapstructure:"workers"`
	// MaxPatterns caps the patterns accepted in one screening request.
	MaxPatterns int `mapstructure:"max_patterns"`
}

// CacheConfig controls the screening-result cache and the compiled-pattern
// cache.
type CacheConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	TTL              time.Duration `mapstructure:"ttl"`
	CompiledPatterns int           `mapstructure:"compiled_patterns"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the screening worker's Kafka parameters.
type KafkaConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Brokers     []string      `mapstructure:"brokers"`
	GroupID     string        `mapstructure:"group_id"`
	JobTopic    string        `mapstructure:"job_topic"`
	ResultTopic string        `mapstructure:"result_topic"`
	MinBytes    int           `mapstructure:"min_bytes"`
	MaxBytes    int           `mapstructure:"max_bytes"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	BatchSize   int           `mapstructure:"batch_size"`
}

// MinIOConfig holds object-storage parameters for compound libraries.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration shared by keyip, apiserver and worker.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	GRPC     GRPCConfig        `mapstructure:"grpc"`
	Matcher  MatcherConfig     `mapstructure:"matcher"`
	Cache    CacheConfig       `mapstructure:"cache"`
	Log      logging.LogConfig `mapstructure:"log"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks a fully defaulted Config and returns the first problem.
// Sections for disabled backends are not checked.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.GRPC.Enabled {
		if c.GRPC.Port < 0 || c.GRPC.Port > 65535 {
			return fmt.Errorf("config: grpc.port %d is out of range [0, 65535]", c.GRPC.Port)
		}
		if c.GRPC.Port == c.Server.Port {
			return fmt.Errorf("config: grpc.port must differ from server.port (%d)", c.Server.Port)
		}
	}

	if c.Matcher.StepBudget < 0 {
		return fmt.Errorf("config: matcher.step_budget must be >= 0, got %d", c.Matcher.StepBudget)
	}
	if c.Matcher.MaxNestingDepth < 1 {
		return fmt.Errorf("config: matcher.max_nesting_depth must be >= 1, got %d", c.Matcher.MaxNestingDepth)
	}
	if c.Matcher.MatchTimeout < 0 {
		return fmt.Errorf("config: matcher.match_timeout must not be negative")
	}
	if c.Matcher.Workers < 1 {
		return fmt.Errorf("config: matcher.workers must be >= 1, got %d", c.Matcher.Workers)
	}
	if c.Matcher.MaxPatterns < 1 {
		return fmt.Errorf("config: matcher.max_patterns must be >= 1, got %d", c.Matcher.MaxPatterns)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive when the cache is enabled")
	}
	if c.Cache.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("config: cache.enabled requires redis.enabled")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.JobTopic == "" || c.Kafka.ResultTopic == "" {
			return fmt.Errorf("config: kafka.job_topic and kafka.result_topic are required")
		}
		if c.Kafka.JobTopic == c.Kafka.ResultTopic {
			return fmt.Errorf("config: kafka.job_topic and kafka.result_topic must differ")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}

	return nil
}

// DSN renders the PostgreSQL connection URL.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

//Personal.AI order the ending
