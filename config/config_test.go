package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "./sessions", cfg.SessionsDir)
	assert.Equal(t, 1000, cfg.BulkDelayMS)
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.WebhookURL)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wabridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":8080"
api_key: filekey
sessions_dir: /var/lib/wabridge
rate_limits:
  message_rps: 2
  message_burst: 10
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "filekey", cfg.APIKey)
	assert.Equal(t, "/var/lib/wabridge", cfg.SessionsDir)
	assert.Equal(t, 2.0, cfg.RateLimits.MessageRPS)
	assert.Equal(t, 10, cfg.RateLimits.MessageBurst)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 1000, cfg.BulkDelayMS)
}

func TestLoadEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wabridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`api_key: filekey`), 0o600))

	t.Setenv("API_KEY", "envkey")
	t.Setenv("PORT", "9000")
	t.Setenv("WEBHOOK_URL", "https://sink.example/hook")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "envkey", cfg.APIKey)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "https://sink.example/hook", cfg.WebhookURL)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadNoFileNoEnv(t *testing.T) {
	t.Setenv("WABRIDGE_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().ListenAddr, cfg.ListenAddr)
}
