package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "env: dev\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "storage/microblog.db", cfg.Storage.Path)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Addr)
	assert.Equal(t, UpdatePresent, cfg.UpdatePolicy)
	assert.Empty(t, cfg.ManifestPath)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
env: prod
storage:
  driver: redis
  redis_addr: cache:6379
  redis_prefix: blog
http_server:
  address: 0.0.0.0:9000
update_policy: truthy
manifest_path: resources.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, "blog", cfg.Storage.RedisPrefix)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, UpdateTruthy, cfg.UpdatePolicy)
	assert.Equal(t, "resources.yaml", cfg.ManifestPath)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "env: dev\n")
	t.Setenv("HTTP_SERVER_ADDR", "127.0.0.1:7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", cfg.Addr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "storage:\n  driver: sqlite\n"))
	assert.Error(t, err, "env is required")

	_, err = Load(writeConfig(t, "env: dev\nstorage:\n  driver: mongo\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "env: dev\nupdate_policy: sometimes\n"))
	assert.Error(t, err)
}
