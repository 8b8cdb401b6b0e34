// Package config loads application configuration from a JSON file with
// environment-variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/codefionn/werkbote/internal/securemem"
)

// Config represents application configuration.
type Config struct {
	WorkspaceRoot    string `json:"workspace_root"`
	DatabasePath     string `json:"database_path"`
	AuditPath        string `json:"audit_path"`
	LogLevel         string `json:"log_level"` // debug, info, warn, error, none
	LogPath          string `json:"log_path"`
	ListenAddr       string `json:"listen_addr"`
	PidPath          string `json:"pid_path"`
	Model            string `json:"model"`
	MaxReadBytes     int64  `json:"max_read_bytes"`
	CacheTTLSeconds  int    `json:"cache_ttl_seconds"`
	MaxCacheEntries  int    `json:"max_cache_entries"`
	SchedulerSeconds int    `json:"scheduler_interval_seconds"`

	apiKey *securemem.String
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "werkbote")
		}
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Application Support", "werkbote")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "werkbote")
}

// Default returns a configuration with sensible defaults. The workspace
// root defaults to the current working directory.
func Default() *Config {
	cwd, _ := os.Getwd()
	dir := defaultConfigDir()

	return &Config{
		WorkspaceRoot:    cwd,
		DatabasePath:     filepath.Join(dir, "werkbote.db"),
		AuditPath:        filepath.Join(dir, "audit.jsonl"),
		LogLevel:         "info",
		LogPath:          filepath.Join(dir, "werkbote.log"),
		ListenAddr:       "127.0.0.1:8791",
		PidPath:          filepath.Join(dir, "werkbote.pid"),
		MaxReadBytes:     512 * 1024,
		CacheTTLSeconds:  5,
		MaxCacheEntries:  128,
		SchedulerSeconds: 30,
	}
}

// Load reads the configuration file at path (or the default location when
// path is empty), applies environment overrides and captures the provider
// API key into protected memory.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(defaultConfigDir(), "config.json")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No config file is fine; defaults plus environment apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		cfg.apiKey = securemem.NewString(key)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WERKBOTE_WORKSPACE"); v != "" {
		c.WorkspaceRoot = v
	}
	if v := os.Getenv("WERKBOTE_LISTEN"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("WERKBOTE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("WERKBOTE_MODEL"); v != "" {
		c.Model = v
	}
}

// APIKey returns the protected provider API key, or nil when none is
// configured.
func (c *Config) APIKey() *securemem.String {
	return c.apiKey
}

// Save writes the configuration (without secrets) back to path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(defaultConfigDir(), "config.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
