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
  port: 8080
  mode: "release"
  grpc:
    port: 9090
database:
  host: "localhost"
  port: 5432
  user: "complisense"
  password: "secret"
  db_name: "complisense"
redis:
  addr: "localhost:6379"
kafka:
  brokers: ["localhost:9092"]
  group_id: "complisense-workers"
milvus:
  addr: "localhost:19530"
log:
  level: "info"
  format: "json"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 9090, cfg.Server.GRPC.Port)
	assert.Equal(t, "complisense", cfg.Database.User)
}

func TestLoad_FromFile_FillsDefaults(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	// Fields absent from the file come back defaulted, not zero.
	assert.Equal(t, DefaultRedisKeyPrefix, cfg.Redis.KeyPrefix)
	assert.Equal(t, DefaultMilvusEmbeddingDim, cfg.Milvus.EmbeddingDim)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultViolationReviewThreshold, cfg.Engine.ViolationReviewThreshold)
	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load("non_existent_config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	bad := `
server:
  mode: "production"
database:
  user: "complisense"
`
	path := createTempConfigFile(t, bad)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "server.mode")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("COMPLISENSE_SERVER_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_EnvOverride_NestedKey(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("COMPLISENSE_DATABASE_HOST", "db-host")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db-host", cfg.Database.Host)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	// Only the credentials have no default; everything else falls back.
	t.Setenv("COMPLISENSE_DATABASE_USER", "complisense")
	t.Setenv("COMPLISENSE_DATABASE_PASSWORD", "secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "complisense", cfg.Database.User)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
}

func TestLoadFromEnv_SectionOverrides(t *testing.T) {
	t.Setenv("COMPLISENSE_DATABASE_USER", "complisense")
	t.Setenv("COMPLISENSE_DATABASE_PASSWORD", "secret")
	t.Setenv("COMPLISENSE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("COMPLISENSE_ENGINE_MIN_TREND_RECORDS", "5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Engine.MinTrendRecords)
}

func TestLoadFromEnv_MissingCredentialsFails(t *testing.T) {
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.user")
}

func TestMustLoad_Success(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		cfg := MustLoad(path)
		assert.NotNil(t, cfg)
	})
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad("non_existent.yaml")
	})
}

func TestWatch_InvokesCallbackOnChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	// Rewrite the file with a different port; viper's watcher should fire.
	updated := []byte(`
server:
  port: 8081
  mode: "release"
  grpc:
    port: 9090
database:
  host: "localhost"
  port: 5432
  user: "complisense"
  password: "secret"
  db_name: "complisense"
redis:
  addr: "localhost:6379"
kafka:
  brokers: ["localhost:9092"]
  group_id: "complisense-workers"
milvus:
  addr: "localhost:19530"
log:
  level: "info"
  format: "json"
`)
	require.NoError(t, os.WriteFile(path, updated, 0644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 8081, cfg.Server.Port)
	case <-time.After(3 * time.Second):
		t.Skip("filesystem watcher did not fire; inotify may be unavailable in this environment")
	}
}
