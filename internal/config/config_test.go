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

const testSecretKey = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

// allConfigKeys lists every DILIGENCIAS_ env var that Load() reads.
var allConfigKeys = []string{
	"DILIGENCIAS_CONFIG",
	"DILIGENCIAS_API_URL",
	"DILIGENCIAS_STORE_PATH",
	"DILIGENCIAS_SECRET_KEY",
	"DILIGENCIAS_INCLUDE_CREDENTIALS",
	"DILIGENCIAS_HTTP_CACHE",
	"DILIGENCIAS_PROXY_URL",
	"DILIGENCIAS_SLACK_WEBHOOK_URL",
	"DILIGENCIAS_EXTRA_HEADERS",
	"DILIGENCIAS_LOG_LEVEL",
	"DILIGENCIAS_REQUEST_TIMEOUT",
	"DILIGENCIAS_NOTIFY_TIMEOUT",
}

// isolateConfigEnv saves and unsets all DILIGENCIAS_ env vars so tests don't
// inherit values from the host environment.
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.False(t, cfg.HasPersistentStore())
	assert.Nil(t, cfg.SecretKey)
	assert.False(t, cfg.IncludeCredentials)
	assert.False(t, cfg.HTTPCache)
	assert.Empty(t, cfg.ProxyURL)
	assert.Empty(t, cfg.SlackWebhookURL)
	assert.Empty(t, cfg.ExtraHeaders)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DILIGENCIAS_API_URL", "https://api.example.test/v1/")
	t.Setenv("DILIGENCIAS_STORE_PATH", "/tmp/diligencias.db")
	t.Setenv("DILIGENCIAS_SECRET_KEY", testSecretKey)
	t.Setenv("DILIGENCIAS_INCLUDE_CREDENTIALS", "true")
	t.Setenv("DILIGENCIAS_HTTP_CACHE", "1")
	t.Setenv("DILIGENCIAS_PROXY_URL", "http://proxy.internal:3128")
	t.Setenv("DILIGENCIAS_SLACK_WEBHOOK_URL", "https://hooks.slack.test/services/T/B/X")
	t.Setenv("DILIGENCIAS_EXTRA_HEADERS", "Ngrok-Skip-Browser-Warning=true, X-Requested-With=XMLHttpRequest")
	t.Setenv("DILIGENCIAS_LOG_LEVEL", "debug")
	t.Setenv("DILIGENCIAS_REQUEST_TIMEOUT", "5s")
	t.Setenv("DILIGENCIAS_NOTIFY_TIMEOUT", "2s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.test/v1", cfg.APIURL, "trailing slash trimmed")
	assert.True(t, cfg.HasPersistentStore())
	assert.Len(t, cfg.SecretKey, 32)
	assert.True(t, cfg.IncludeCredentials)
	assert.True(t, cfg.HTTPCache)
	assert.Equal(t, "http://proxy.internal:3128", cfg.ProxyURL)
	assert.Equal(t, "https://hooks.slack.test/services/T/B/X", cfg.SlackWebhookURL)
	assert.Equal(t, "true", cfg.ExtraHeaders.Get("Ngrok-Skip-Browser-Warning"))
	assert.Equal(t, "XMLHttpRequest", cfg.ExtraHeaders.Get("X-Requested-With"))
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.NotifyTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "diligencias.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"api_url: https://file.example.test\nhttp_cache: true\nnotify_timeout: 3s\n"), 0o600))
	t.Setenv("DILIGENCIAS_CONFIG", path)
	t.Setenv("DILIGENCIAS_NOTIFY_TIMEOUT", "4s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://file.example.test", cfg.APIURL)
	assert.True(t, cfg.HTTPCache)
	assert.Equal(t, 4*time.Second, cfg.NotifyTimeout, "environment overrides the file")
}

func TestLoad_ConfigFileMissing(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DILIGENCIAS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantVar string
	}{
		{name: "relative api url", env: map[string]string{"DILIGENCIAS_API_URL": "api/v1"}, wantVar: "DILIGENCIAS_API_URL"},
		{name: "bad proxy", env: map[string]string{"DILIGENCIAS_PROXY_URL": "proxy:3128"}, wantVar: "DILIGENCIAS_PROXY_URL"},
		{name: "bad webhook", env: map[string]string{"DILIGENCIAS_SLACK_WEBHOOK_URL": "hooks"}, wantVar: "DILIGENCIAS_SLACK_WEBHOOK_URL"},
		{name: "bad bool", env: map[string]string{"DILIGENCIAS_INCLUDE_CREDENTIALS": "sometimes"}, wantVar: "DILIGENCIAS_INCLUDE_CREDENTIALS"},
		{name: "bad cache bool", env: map[string]string{"DILIGENCIAS_HTTP_CACHE": "yes please"}, wantVar: "DILIGENCIAS_HTTP_CACHE"},
		{name: "bad duration", env: map[string]string{"DILIGENCIAS_NOTIFY_TIMEOUT": "soon"}, wantVar: "DILIGENCIAS_NOTIFY_TIMEOUT"},
		{name: "zero duration", env: map[string]string{"DILIGENCIAS_REQUEST_TIMEOUT": "0s"}, wantVar: "DILIGENCIAS_REQUEST_TIMEOUT"},
		{name: "bad level", env: map[string]string{"DILIGENCIAS_LOG_LEVEL": "loud"}, wantVar: "DILIGENCIAS_LOG_LEVEL"},
		{name: "bad header", env: map[string]string{"DILIGENCIAS_EXTRA_HEADERS": "X-Ok=1,broken"}, wantVar: "DILIGENCIAS_EXTRA_HEADERS"},
		{name: "short key", env: map[string]string{"DILIGENCIAS_SECRET_KEY": "deadbeef"}, wantVar: "DILIGENCIAS_SECRET_KEY"},
		{
			name:    "non-hex key",
			env:     map[string]string{"DILIGENCIAS_SECRET_KEY": "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
			wantVar: "DILIGENCIAS_SECRET_KEY",
		},
		{name: "store without key", env: map[string]string{"DILIGENCIAS_STORE_PATH": "/tmp/x.db"}, wantVar: "DILIGENCIAS_SECRET_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantVar)
		})
	}
}

func TestParseHeaders_RepeatedName(t *testing.T) {
	header, err := parseHeaders("X-Tag=a,,X-Tag=b")

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header.Values("X-Tag"))
}
