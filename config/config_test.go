package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.DSN)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		assert.Equal(t, 20, cfg.HTTP.DefaultPageSize)
		assert.Equal(t, 100, cfg.HTTP.MaxPageSize)
		assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
		assert.Equal(t, BackendNone, cfg.Events.Backend)
		assert.Equal(t, "crud.", cfg.Events.SubjectPrefix)
		assert.Equal(t, "info", cfg.Log.Level)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: file:books.db
  max_open_conns: 4
  conn_max_lifetime: 5m
http:
  addr: ":9000"
  max_page_size: 50
events:
  backend: redis
  redis:
    addr: redis:6379
    max_len: 1000
ids:
  worker_id: 3
log:
  level: debug
`)
	t.Setenv("CRUDKIT_HTTP_ADDR", ":9443")
	t.Setenv("CRUDKIT_EVENTS_SUBJECT_PREFIX", "library.")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file:books.db", cfg.Database.DSN)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, ":9443", cfg.HTTP.Addr, "environment overrides file")
	assert.Equal(t, 50, cfg.HTTP.MaxPageSize)
	assert.Equal(t, 20, cfg.HTTP.DefaultPageSize)
	assert.Equal(t, BackendRedis, cfg.Events.Backend)
	assert.Equal(t, "redis:6379", cfg.Events.Redis.Addr)
	assert.Equal(t, int64(1000), cfg.Events.Redis.MaxLen)
	assert.Equal(t, "crudkit:", cfg.Events.Redis.StreamPrefix)
	assert.Equal(t, "library.", cfg.Events.SubjectPrefix)
	assert.Equal(t, int64(3), cfg.IDs.WorkerID)

	db := cfg.Database.DBConfig()
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, 4, db.MaxOpenConns)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "未知的事件后端", content: "events:\n  backend: kafka\n"},
		{name: "redis后端缺少地址", content: "events:\n  backend: redis\n  redis:\n    addr: \"\"\n"},
		{name: "nats后端缺少地址", content: "events:\n  backend: nats\n  nats:\n    url: \"\"\n"},
		{name: "默认每页大小超过上限", content: "http:\n  default_page_size: 200\n  max_page_size: 100\n"},
		{name: "默认每页大小非正数", content: "http:\n  default_page_size: 0\n"},
		{name: "未知的日志级别", content: "log:\n  level: verbose\n"},
		{name: "空的数据源", content: "database:\n  dsn: \"\"\n"},
		{name: "YAML格式错误", content: "http: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetErrorCode(err))
		})
	}
}

func TestConfig_Logger(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg.Logger())
}
