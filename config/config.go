// Package config loads process configuration from the environment,
// optionally overlaid with a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RateLimits configures the per-IP token buckets of the REST facade.
type RateLimits struct {
	// GlobalRPS and GlobalBurst apply to every request.
	GlobalRPS   float64 `yaml:"global_rps"`
	GlobalBurst int     `yaml:"global_burst"`

	// MessageRPS and MessageBurst apply to message-sending endpoints
	// on top of the global bucket.
	MessageRPS   float64 `yaml:"message_rps"`
	MessageBurst int     `yaml:"message_burst"`
}

// Config is the full process configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":3000".
	ListenAddr string `yaml:"listen_addr"`

	// APIKey guards the REST facade. Empty disables authentication;
	// the facade logs a warning in that case.
	APIKey string `yaml:"api_key"`

	// WebhookURL is the event sink. Empty disables dispatch.
	WebhookURL string `yaml:"webhook_url"`

	// WebhookSecret, when set, signs webhook deliveries.
	WebhookSecret string `yaml:"webhook_secret"`

	// SessionsDir is the credential store root.
	SessionsDir string `yaml:"sessions_dir"`

	// StorePassphrase, when set, seals credential blobs at rest.
	StorePassphrase string `yaml:"store_passphrase"`

	// BulkDelayMS is the default inter-message delay for bulk sends.
	BulkDelayMS int `yaml:"bulk_delay_ms"`

	// LogLevel is a logrus level name; LogJSON selects the JSON
	// formatter.
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ListenAddr:  ":3000",
		SessionsDir: "./sessions",
		BulkDelayMS: 1000,
		LogLevel:    "info",
		RateLimits: RateLimits{
			GlobalRPS:    100.0 / (15 * 60), // 100 requests per 15 minutes
			GlobalBurst:  100,
			MessageRPS:   30.0 / 60, // 30 message requests per minute
			MessageBurst: 30,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (or $WABRIDGE_CONFIG when path is empty, skipped when neither
// exists), then environment variables, which always win.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("WABRIDGE_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}
	if v := os.Getenv("WABRIDGE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("SESSIONS_DIR"); v != "" {
		cfg.SessionsDir = v
	}
	if v := os.Getenv("WABRIDGE_STORE_PASSPHRASE"); v != "" {
		cfg.StorePassphrase = v
	}
	if v := os.Getenv("WABRIDGE_BULK_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BulkDelayMS = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
}
