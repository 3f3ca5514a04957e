package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscope/internal/config"
	"github.com/turtacn/ligandscope/internal/engine"
)

const validConfigYAML = `
server:
  port: 9090
  mode: "debug"
database:
  host: "db.internal"
  user: "ligandscope"
  password: "secret"
redis:
  addr: "cache.internal:6379"
kafka:
  brokers: ["broker-1:9092", "broker-2:9092"]
  group_id: "analysis-workers"
minio:
  endpoint: "storage.internal:9000"
  access_key: "key"
  secret_key: "secret"
log:
  level: "debug"
engine:
  cutoffs:
    hbond_max_dist: 3.2
  water_bridge_enabled: false
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeTempConfig(t, validConfigYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "analysis-workers", cfg.Kafka.GroupID)
	assert.Equal(t, "storage.internal:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Engine.WaterBridgeEnabled)

	// One cutoff overridden, the rest defaulted.
	assert.Equal(t, 3.2, cfg.Engine.Cutoffs.HBondMaxDist)
	assert.Equal(t, engine.DefaultBindingSiteDist, cfg.Engine.Cutoffs.BindingSiteDist)

	// Untouched sections come back fully defaulted.
	assert.Equal(t, config.DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, config.DefaultWorkerConcurrency, cfg.Worker.Concurrency)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [not a map")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTempConfig(t, `
database:
  user: "ligandscope"
log:
  level: "shouty"
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LIGANDSCOPE_DATABASE_USER", "envuser")
	t.Setenv("LIGANDSCOPE_REDIS_ADDR", "env-redis:6379")
	t.Setenv("LIGANDSCOPE_LOG_LEVEL", "warn")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "envuser", cfg.Database.User)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, config.DefaultServerPort, cfg.Server.Port)
}

func TestLoadFromEnv_WaterBridgeDefaultOn(t *testing.T) {
	t.Setenv("LIGANDSCOPE_DATABASE_USER", "envuser")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Engine.WaterBridgeEnabled)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	})
}
