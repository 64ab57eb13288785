package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the client configuration. Values resolve in three layers:
// built-in defaults, then the optional TOML config file, then environment
// variables.
type Config struct {
	ServerURL string `toml:"server_url"` // Base URL of the CryptoLearn auth service (default: http://localhost:5000)

	DatabaseFile string `toml:"database_file"` // Path to the SQLite session store (default: ~/.cryptolearn/session.db)
	Ephemeral    bool   `toml:"ephemeral"`     // Keep the session in memory only; nothing survives the process

	Env       string `toml:"env"`        // Environment label for logs (default: dev)
	LogLevel  string `toml:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat string `toml:"log_format"` // json, text (default: json)
	LogFile   string `toml:"log_file"`   // Log sink; the terminal is owned by the UI (default: ~/.cryptolearn/client.log)

	RequestTimeout time.Duration `toml:"-"` // Per-request timeout (default: 10s)
}

// DefaultConfigPath is where LoadConfig looks when CRYPTOLEARN_CONFIG is
// unset.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cryptolearn.toml"
	}
	return filepath.Join(home, ".cryptolearn", "config.toml")
}

func defaultDataPath(file string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return file
	}
	return filepath.Join(home, ".cryptolearn", file)
}

// LoadConfig resolves the configuration. A missing config file is fine;
// a malformed one is an error.
func LoadConfig() (Config, error) {
	cfg := Config{
		ServerURL:      "http://localhost:5000",
		DatabaseFile:   defaultDataPath("session.db"),
		Env:            "dev",
		LogLevel:       "info",
		LogFormat:      "json",
		LogFile:        defaultDataPath("client.log"),
		RequestTimeout: 10 * time.Second,
	}

	// Durations arrive as TOML strings ("10s"), so the file decodes into a
	// shadow struct and the parsed value lands on Config.
	file := struct {
		Config
		RequestTimeout string `toml:"request_timeout"`
	}{Config: cfg}

	path := getEnvOrDefault("CRYPTOLEARN_CONFIG", DefaultConfigPath())
	if _, err := toml.DecodeFile(path, &file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg = file.Config
	if file.RequestTimeout != "" {
		d, err := time.ParseDuration(file.RequestTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: request_timeout: %w", path, err)
		}
		cfg.RequestTimeout = d
	}

	cfg.ServerURL = getEnvOrDefault("CRYPTOLEARN_SERVER_URL", cfg.ServerURL)
	cfg.DatabaseFile = getEnvOrDefault("CRYPTOLEARN_DATABASE_FILE", cfg.DatabaseFile)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = getEnvOrDefault("CRYPTOLEARN_LOG_FILE", cfg.LogFile)
	cfg.RequestTimeout = getEnvDurationOrDefault("CRYPTOLEARN_REQUEST_TIMEOUT", cfg.RequestTimeout)
	if getEnvOrDefault("CRYPTOLEARN_EPHEMERAL", "") != "" {
		cfg.Ephemeral = true
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
