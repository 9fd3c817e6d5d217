package config_test

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodeflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[engine]
default = "forward"

[store]
backend = "redis"

[store.redis]
addr = "redis:6379"
ttl = "1h"

[server]
addr = ":9090"
rate_limit = 5.5
burst = 10
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "forward", cfg.Engine.Default)
	assert.Equal(t, 10000, cfg.Engine.MaxSteps)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "nodeflow:graph:", cfg.Store.Redis.Prefix)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5.5, cfg.Server.RateLimit)
	assert.Equal(t, 10, cfg.Server.Burst)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":  `log_level = `,
		"backend": "[store]\nbackend = \"s3\"",
		"format":  `log_format = "xml"`,
		"rate":    "[server]\nrate_limit = -1",
		"key":     "[store]\nencryption_key = \"not base64\"",
		"short":   "[store]\nencryption_key = \"c2hvcnQ=\"",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestStore_Keys(t *testing.T) {
	active := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))
	old := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, 32))

	cfg, err := config.Load(writeConfig(t, "[store]\nencryption_key = \""+active+"\"\nfallback_keys = [\""+old+"\"]\nredact = [\"token\"]"))
	require.NoError(t, err)
	key, fallback, err := cfg.Store.Keys()
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{1}, 32), key)
	assert.Equal(t, [][]byte{bytes.Repeat([]byte{2}, 32)}, fallback)
	assert.Equal(t, []string{"token"}, cfg.Store.Redact)

	key, _, err = config.Default().Store.Keys()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoad_EncryptionKeyFromEnv(t *testing.T) {
	active := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	t.Setenv(config.EnvEncryptionKey, active)

	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, active, cfg.Store.EncryptionKey)
}
