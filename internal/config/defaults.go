package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerMaxBodySize     = 8 << 20
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultGRPCHost = "0.0.0.0"
	DefaultGRPCPort = 9090

	DefaultMatcherStepBudget      = 1_000_000
	DefaultMatcherMaxNestingDepth = 64
	DefaultMatcherMatchTimeout    = 5 * time.Second
	DefaultMatcherMaxPatterns     = 1024

	DefaultCacheTTL              = 10 * time.Minute
	DefaultCacheCompiledPatterns = 4096

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBName            = "keyip_chem"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxConns        = 16
	DefaultDBMinConns        = 2
	DefaultDBConnMaxLifetime = time.Hour
	DefaultDBConnMaxIdleTime = 10 * time.Minute
	DefaultDBMigrationPath   = "file://migrations"

	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 20
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisKeyPrefix    = "keyip:chem:"

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "keyip-chem-screening"
	DefaultKafkaJobTopic    = "screening.jobs"
	DefaultKafkaResultTopic = "screening.results"
	DefaultKafkaMinBytes    = 1
	DefaultKafkaMaxBytes    = 10 << 20
	DefaultKafkaMaxWait     = 500 * time.Millisecond
	DefaultKafkaBatchSize   = 100

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "compound-libraries"
	DefaultMinIORegion   = "us-east-1"

	DefaultMetricsNamespace = "keyip_chem"
	DefaultMetricsPath      = "/metrics"
)

// DefaultMatcherWorkers is the screening fan-out when none is configured.
func DefaultMatcherWorkers() int { return runtime.GOMAXPROCS(0) }

// registerDefaults makes every key known to v.  Viper only consults the
// environment for keys it knows about, so this is what lets KEYIP_* variables
// reach Unmarshal when there is no config file.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.max_body_size", DefaultServerMaxBodySize)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.host", DefaultGRPCHost)
	v.SetDefault("grpc.port", DefaultGRPCPort)
	v.SetDefault("grpc.reflection", false)

	v.SetDefault("matcher.step_budget", DefaultMatcherStepBudget)
	v.SetDefault("matcher.max_nesting_depth", DefaultMatcherMaxNestingDepth)
	v.SetDefault("matcher.match_timeout", DefaultMatcherMatchTimeout)
	v.SetDefault("matcher.workers", DefaultMatcherWorkers())
	v.SetDefault("matcher.max_patterns", DefaultMatcherMaxPatterns)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.compiled_patterns", DefaultCacheCompiledPatterns)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.error_output_paths", []string{"stderr"})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", DefaultDBHost)
	v.SetDefault("database.port", DefaultDBPort)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", DefaultDBName)
	v.SetDefault("database.ssl_mode", DefaultDBSSLMode)
	v.SetDefault("database.max_conns", DefaultDBMaxConns)
	v.SetDefault("database.min_conns", DefaultDBMinConns)
	v.SetDefault("database.conn_max_lifetime", DefaultDBConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", DefaultDBConnMaxIdleTime)
	v.SetDefault("database.migration_path", DefaultDBMigrationPath)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	v.SetDefault("redis.dial_timeout", DefaultRedisDialTimeout)
	v.SetDefault("redis.read_timeout", DefaultRedisReadTimeout)
	v.SetDefault("redis.write_timeout", DefaultRedisWriteTimeout)
	v.SetDefault("redis.key_prefix", DefaultRedisKeyPrefix)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("kafka.job_topic", DefaultKafkaJobTopic)
	v.SetDefault("kafka.result_topic", DefaultKafkaResultTopic)
	v.SetDefault("kafka.min_bytes", DefaultKafkaMinBytes)
	v.SetDefault("kafka.max_bytes", DefaultKafkaMaxBytes)
	v.SetDefault("kafka.max_wait", DefaultKafkaMaxWait)
	v.SetDefault("kafka.batch_size", DefaultKafkaBatchSize)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", DefaultMinIOEndpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", DefaultMinIOBucket)
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", DefaultMinIORegion)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.path", DefaultMetricsPath)
}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg.  Explicit values win.
// It covers Configs built in code that never went through viper.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── gRPC ──────────────────────────────────────────────────────────────────
	// Port is left alone: 0 is a valid "any free port" request.
	if cfg.GRPC.Host == "" {
		cfg.GRPC.Host = DefaultGRPCHost
	}

	// ── Matcher ───────────────────────────────────────────────────────────────
	// step_budget and match_timeout treat 0 as "unlimited" and are left alone.
	if cfg.Matcher.MaxNestingDepth == 0 {
		cfg.Matcher.MaxNestingDepth = DefaultMatcherMaxNestingDepth
	}
	if cfg.Matcher.Workers == 0 {
		cfg.Matcher.Workers = DefaultMatcherWorkers()
	}
	if cfg.Matcher.MaxPatterns == 0 {
		cfg.Matcher.MaxPatterns = DefaultMatcherMaxPatterns
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.CompiledPatterns == 0 {
		cfg.Cache.CompiledPatterns = DefaultCacheCompiledPatterns
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = DefaultDBMinConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDBConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = DefaultDBConnMaxIdleTime
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultDBMigrationPath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.JobTopic == "" {
		cfg.Kafka.JobTopic = DefaultKafkaJobTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = DefaultKafkaMinBytes
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = DefaultKafkaMaxBytes
	}
	if cfg.Kafka.MaxWait == 0 {
		cfg.Kafka.MaxWait = DefaultKafkaMaxWait
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = DefaultMinIORegion
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

//Personal.AI order the ending
