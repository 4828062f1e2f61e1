// Package config loads application configuration from environment variables
// and an optional config file.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "DILIGENCIAS"

// Config holds the application configuration.
type Config struct {
	APIURL             string
	StorePath          string // Empty keeps credentials in memory only.
	SecretKey          []byte // AES-256 key for the persisted store.
	IncludeCredentials bool
	HTTPCache          bool
	ProxyURL           string
	SlackWebhookURL    string
	ExtraHeaders       http.Header
	LogLevel           slog.Level
	RequestTimeout     time.Duration
	NotifyTimeout      time.Duration
}

// HasPersistentStore reports whether credentials survive the process.
func (c *Config) HasPersistentStore() bool {
	return c.StorePath != ""
}

// Load reads configuration and returns a validated Config. Environment
// variables (DILIGENCIAS_*) take precedence over the file named by
// DILIGENCIAS_CONFIG, which takes precedence over defaults:
// DILIGENCIAS_API_URL (http://localhost:8000), DILIGENCIAS_LOG_LEVEL (info),
// DILIGENCIAS_REQUEST_TIMEOUT (30s), DILIGENCIAS_NOTIFY_TIMEOUT (10s).
// DILIGENCIAS_SECRET_KEY (64 hex characters) is required when
// DILIGENCIAS_STORE_PATH is set.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("notify_timeout", "10s")
	v.SetDefault("include_credentials", "false")
	v.SetDefault("http_cache", "false")

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		APIURL:          strings.TrimRight(strings.TrimSpace(v.GetString("api_url")), "/"),
		StorePath:       strings.TrimSpace(v.GetString("store_path")),
		ProxyURL:        strings.TrimSpace(v.GetString("proxy_url")),
		SlackWebhookURL: strings.TrimSpace(v.GetString("slack_webhook_url")),
	}

	if err := requireAbsoluteURL("API_URL", cfg.APIURL); err != nil {
		return nil, err
	}
	if cfg.ProxyURL != "" {
		if err := requireAbsoluteURL("PROXY_URL", cfg.ProxyURL); err != nil {
			return nil, err
		}
	}
	if cfg.SlackWebhookURL != "" {
		if err := requireAbsoluteURL("SLACK_WEBHOOK_URL", cfg.SlackWebhookURL); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.IncludeCredentials, err = parseBool(v, "include_credentials"); err != nil {
		return nil, err
	}
	if cfg.HTTPCache, err = parseBool(v, "http_cache"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseDuration(v, "request_timeout"); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = parseDuration(v, "notify_timeout"); err != nil {
		return nil, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("%s_LOG_LEVEL has invalid level %q: %w", EnvPrefix, v.GetString("log_level"), err)
	}

	if cfg.ExtraHeaders, err = parseHeaders(v.GetString("extra_headers")); err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(v.GetString("secret_key")); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("%s_SECRET_KEY must be 64 hex characters (32 bytes)", EnvPrefix)
		}
		cfg.SecretKey = key
	}
	if cfg.HasPersistentStore() && cfg.SecretKey == nil {
		return nil, fmt.Errorf("%s_SECRET_KEY is required when %s_STORE_PATH is set", EnvPrefix, EnvPrefix)
	}

	return cfg, nil
}

func requireAbsoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s_%s must be an absolute URL, got %q", EnvPrefix, name, raw)
	}
	return nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := v.GetString(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s_%s has invalid boolean %q: %w", EnvPrefix, strings.ToUpper(key), raw, err)
	}
	return b, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s_%s has invalid duration %q: %w", EnvPrefix, strings.ToUpper(key), raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s_%s must be positive, got %s", EnvPrefix, strings.ToUpper(key), d)
	}
	return d, nil
}

// parseHeaders reads "Name=value,Name=value". Blank entries are skipped.
func parseHeaders(raw string) (http.Header, error) {
	header := make(http.Header)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%s_EXTRA_HEADERS entry %q must be Name=value", EnvPrefix, pair)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}
