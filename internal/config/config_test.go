package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Chem/internal/config"
)

// validConfig returns a Config with every backend enabled that passes Validate.
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.Enabled = true
	cfg.Database.User = "keyip"
	cfg.Database.Password = "secret"
	cfg.Redis.Enabled = true
	cfg.Cache.Enabled = true
	cfg.Kafka.Enabled = true
	cfg.MinIO.Enabled = true
	cfg.GRPC.Enabled = true
	cfg.GRPC.Port = config.DefaultGRPCPort
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_DefaultsOnlyIsValid(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"grpc port", func(c *config.Config) { c.GRPC.Port = 70000 }, "grpc.port"},
		{"grpc port clash", func(c *config.Config) { c.GRPC.Port = c.Server.Port }, "must differ from server.port"},
		{"negative budget", func(c *config.Config) { c.Matcher.StepBudget = -1 }, "matcher.step_budget"},
		{"nesting", func(c *config.Config) { c.Matcher.MaxNestingDepth = -3 }, "matcher.max_nesting_depth"},
		{"workers", func(c *config.Config) { c.Matcher.Workers = -1 }, "matcher.workers"},
		{"max patterns", func(c *config.Config) { c.Matcher.MaxPatterns = -1 }, "matcher.max_patterns"},
		{"cache ttl", func(c *config.Config) { c.Cache.TTL = -1 }, "cache.ttl"},
		{"cache without redis", func(c *config.Config) { c.Redis.Enabled = false }, "requires redis.enabled"},
		{"log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"db host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"db user", func(c *config.Config) { c.Database.User = "" }, "database.user"},
		{"db name", func(c *config.Config) { c.Database.DBName = "" }, "database.db_name"},
		{"db port", func(c *config.Config) { c.Database.Port = -1 }, "database.port"},
		{"db max conns", func(c *config.Config) { c.Database.MaxConns = -1 }, "database.max_conns"},
		{"redis addr", func(c *config.Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"kafka brokers", func(c *config.Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"kafka group", func(c *config.Config) { c.Kafka.GroupID = "" }, "kafka.group_id"},
		{"kafka same topic", func(c *config.Config) { c.Kafka.ResultTopic = c.Kafka.JobTopic }, "must differ"},
		{"minio bucket", func(c *config.Config) { c.MinIO.Bucket = "" }, "minio.bucket"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Validate_DisabledSectionsSkipped(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Database.Enabled = false
	cfg.Database.User = ""
	cfg.Kafka.Enabled = false
	cfg.Kafka.Brokers = nil
	cfg.MinIO.Enabled = false
	cfg.MinIO.Endpoint = ""
	cfg.GRPC.Enabled = false
	cfg.GRPC.Port = -1
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_GRPCPortZeroAllowed(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.GRPC.Port = 0
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()
	d := config.DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "chem", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5433/chem?sslmode=disable", d.DSN())
}

//Personal.AI order the ending
