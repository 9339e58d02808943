package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracksync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/tracksync/tracks.db
remote:
  addr: localhost:6379
  db: 2
  timeout: 3s
sync:
  user: alice
  device: phone
log:
  level: debug
output:
  locale: es
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tracksync/tracks.db", cfg.Database.Path)
	assert.Equal(t, "localhost:6379", cfg.Remote.Addr)
	assert.Equal(t, 2, cfg.Remote.DB)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "tracksync", cfg.Remote.Prefix, "unset fields keep defaults")
	assert.Equal(t, "alice", cfg.Sync.User)
	assert.Equal(t, "phone", cfg.Sync.Device)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "es", cfg.Output.Locale)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "remote:\n  adress: typo:6379\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adress")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "sync:\n  user: alice\nremote:\n  timeout: 3s\n")
	t.Setenv("TRACKSYNC_USER", "bob")
	t.Setenv("TRACKSYNC_REMOTE_TIMEOUT", "750ms")
	t.Setenv("TRACKSYNC_DB_PATH", "/tmp/env.db")
	t.Setenv("TRACKSYNC_REDIS_DB", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Sync.User)
	assert.Equal(t, 750*time.Millisecond, cfg.Remote.Timeout)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Remote.DB)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad level", yaml: "log:\n  level: loud\n"},
		{name: "bad addr", yaml: "remote:\n  addr: not-an-address\n"},
		{name: "db out of range", yaml: "remote:\n  db: 99\n"},
		{name: "zero timeout", yaml: "remote:\n  timeout: 0s\n"},
		{name: "empty db path", yaml: "database:\n  path: \"\"\n"},
		{name: "bad env duration", env: map[string]string{"TRACKSYNC_REMOTE_TIMEOUT": "soon"}},
		{name: "bad locale", yaml: "output:\n  locale: \"not a tag\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
