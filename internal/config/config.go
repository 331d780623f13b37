// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken  string
	GitHubAPIURL string
	PollInterval time.Duration
	ListenAddr   string
	DBPath       string
	LogLevel     slog.Level
}

// HasGitHubToken reports whether API calls will be authenticated. Without a
// token only public repositories can be watched, at a much lower rate limit.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: CHECKPANEL_GITHUB_TOKEN, CHECKPANEL_GITHUB_API_URL
// (GitHub Enterprise Server API root), CHECKPANEL_POLL_INTERVAL (15s),
// CHECKPANEL_LISTEN_ADDR (127.0.0.1:8080), CHECKPANEL_DB_PATH (checkpanel.db)
// and CHECKPANEL_LOG_LEVEL (info).
func Load() (*Config, error) {
	token := os.Getenv("CHECKPANEL_GITHUB_TOKEN")

	apiURL := os.Getenv("CHECKPANEL_GITHUB_API_URL")
	if apiURL != "" {
		u, err := url.Parse(apiURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("CHECKPANEL_GITHUB_API_URL must be an absolute http(s) URL, got %q", apiURL)
		}
	}

	pollInterval := 15 * time.Second
	if v, ok := os.LookupEnv("CHECKPANEL_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHECKPANEL_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("CHECKPANEL_POLL_INTERVAL must be positive, got %s", parsed)
		}
		pollInterval = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CHECKPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "checkpanel.db"
	if v, ok := os.LookupEnv("CHECKPANEL_DB_PATH"); ok {
		dbPath = v
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("CHECKPANEL_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return nil, fmt.Errorf("CHECKPANEL_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		GitHubToken:  token,
		GitHubAPIURL: apiURL,
		PollInterval: pollInterval,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		LogLevel:     logLevel,
	}, nil
}
