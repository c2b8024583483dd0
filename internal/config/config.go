package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Tunables shared with the server contract. The reconnection and typing
// values mirror what the web client ships with, so both clients behave the
// same against one server.
const (
	MessagesPerPage  = 50
	MaxMessageLength = 5000

	RequestTimeout    = 30 * time.Second
	ReconnectAttempts = 5
	ReconnectDelay    = 2 * time.Second

	// TypingStopDelay is the trailing debounce before typing:stop is sent.
	// TypingExpiry is how long a remote typing indicator stays visible
	// without a refresh.
	TypingStopDelay = 2 * time.Second
	TypingExpiry    = 3 * time.Second
)

type Config struct {
	APIURL  string
	WSURL   string
	DataDir string
	Debug   bool
}

// Load reads configuration from the environment, with defaults that work
// against a local server. The data directory (~/.parley) is created if
// missing.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	cfg := &Config{
		APIURL:  getEnv("PARLEY_API_URL", "http://localhost:5000"),
		WSURL:   getEnv("PARLEY_WS_URL", "ws://localhost:5000/ws"),
		DataDir: getEnv("PARLEY_DATA_DIR", filepath.Join(homeDir, ".parley")),
		Debug:   getEnvAsBool("PARLEY_DEBUG", false),
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	return cfg, nil
}

// LogPath is where the client writes its log; stdout belongs to the TUI.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "parley.log")
}

func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
