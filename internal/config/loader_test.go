package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
  mode: debug
  read_timeout: 5s
matcher:
  step_budget: 50000
  max_nesting_depth: 32
  match_timeout: 2s
  workers: 4
  max_patterns: 100
cache:
  enabled: true
  ttl: 1m
log:
  level: debug
  format: console
database:
  enabled: true
  host: db.internal
  port: 5432
  user: keyip
  password: secret
  db_name: chem
redis:
  enabled: true
  addr: redis.internal:6379
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  group_id: screeners
minio:
  enabled: false
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultServerWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, int64(50000), cfg.Matcher.StepBudget)
	assert.Equal(t, 32, cfg.Matcher.MaxNestingDepth)
	assert.Equal(t, 2*time.Second, cfg.Matcher.MatchTimeout)
	assert.Equal(t, 4, cfg.Matcher.Workers)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "chem", cfg.Database.DBName)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "screeners", cfg.Kafka.GroupID)
	assert.Equal(t, DefaultKafkaJobTopic, cfg.Kafka.JobTopic)
}

func TestLoad_ShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.EqualValues(t, DefaultMatcherStepBudget, cfg.Matcher.StepBudget)
	assert.Equal(t, DefaultMatcherWorkers(), cfg.Matcher.Workers)
	assert.Equal(t, DefaultDBMigrationPath, cfg.Database.MigrationPath)
	assert.Equal(t, DefaultRedisKeyPrefix, cfg.Redis.KeyPrefix)
	assert.Equal(t, DefaultKafkaJobTopic, cfg.Kafka.JobTopic)
	assert.False(t, cfg.Kafka.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.GRPC.Enabled)
	assert.Equal(t, DefaultGRPCHost, cfg.GRPC.Host)
	assert.Equal(t, DefaultGRPCPort, cfg.GRPC.Port)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server:\n  mode: prod\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "server.mode")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("KEYIP_SERVER_PORT", "7070")
	t.Setenv("KEYIP_MATCHER_STEP_BUDGET", "1234")
	t.Setenv("KEYIP_DATABASE_PASSWORD", "from-env")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, int64(1234), cfg.Matcher.StepBudget)
	assert.Equal(t, "from-env", cfg.Database.Password)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("KEYIP_REDIS_ENABLED", "true")
	t.Setenv("KEYIP_REDIS_ADDR", "cache:6380")
	t.Setenv("KEYIP_MATCHER_MATCH_TIMEOUT", "750ms")
	t.Setenv("KEYIP_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 750*time.Millisecond, cfg.Matcher.MatchTimeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int64(DefaultMatcherStepBudget), cfg.Matcher.StepBudget)
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)

	cfg, err = LoadOptional(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestMustLoad_Success(t *testing.T) {
	assert.NotPanics(t, func() {
		cfg := MustLoad(createTempConfigFile(t, validConfigYAML))
		assert.NotNil(t, cfg)
	})
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() { MustLoad("/nonexistent/config.yaml") })
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, "log:\n  level: info\n")

	levels := make(chan string, 16)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case levels <- c.Log.Level:
		default:
		}
	}, nil))

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	// A truncate can surface as its own write event, so wait for the final
	// content rather than the first notification.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case lvl := <-levels:
			if lvl == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

//Personal.AI order the ending
