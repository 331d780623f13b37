package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every CHECKPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"CHECKPANEL_GITHUB_TOKEN",
	"CHECKPANEL_GITHUB_API_URL",
	"CHECKPANEL_POLL_INTERVAL",
	"CHECKPANEL_LISTEN_ADDR",
	"CHECKPANEL_DB_PATH",
	"CHECKPANEL_LOG_LEVEL",
}

// isolateConfigEnv saves and unsets all CHECKPANEL_ env vars so tests don't
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

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CHECKPANEL_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("CHECKPANEL_GITHUB_API_URL", "https://ghe.example.com/api/v3/")
	t.Setenv("CHECKPANEL_POLL_INTERVAL", "30s")
	t.Setenv("CHECKPANEL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("CHECKPANEL_DB_PATH", "/tmp/test.db")
	t.Setenv("CHECKPANEL_LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.True(t, cfg.HasGitHubToken())
	assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.GitHubAPIURL)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.HasGitHubToken())
	assert.Empty(t, cfg.GitHubAPIURL)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "checkpanel.db", cfg.DBPath)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		msg   string
	}{
		{"bad duration", "CHECKPANEL_POLL_INTERVAL", "soon", "CHECKPANEL_POLL_INTERVAL"},
		{"zero duration", "CHECKPANEL_POLL_INTERVAL", "0s", "must be positive"},
		{"bad level", "CHECKPANEL_LOG_LEVEL", "chatty", "CHECKPANEL_LOG_LEVEL"},
		{"relative api url", "CHECKPANEL_GITHUB_API_URL", "/api/v3", "CHECKPANEL_GITHUB_API_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
