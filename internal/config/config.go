// Package config provides configuration loading and structs for the ridewise server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	APIKey    string          `yaml:"api_key"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Data      DataConfig      `yaml:"data"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Chat      ChatConfig      `yaml:"chat"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	UploadField    string        `yaml:"upload_field"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AuthConfig holds the bearer token check. When both fields are empty the
// protected routes are open.
type AuthConfig struct {
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Enabled reports whether any authentication is configured.
func (a *AuthConfig) Enabled() bool {
	return a.Token != "" || a.JWTSecret != ""
}

// DataConfig holds workbook ingestion settings.
type DataConfig struct {
	DefaultPath string       `yaml:"default_path"`
	Watch       bool         `yaml:"watch"`
	Sheets      SheetsConfig `yaml:"sheets"`
	DateField   string       `yaml:"date_field"`
	// TimeZone is an IANA zone name used for calendar fields; empty means the process local zone.
	TimeZone string `yaml:"time_zone"`
}

// SheetsConfig names the three logical sheets. Matching is case-insensitive.
type SheetsConfig struct {
	Trips        string `yaml:"trips"`
	CheckIns     string `yaml:"checkins"`
	Demographics string `yaml:"demographics"`
}

// Location resolves TimeZone.
func (d *DataConfig) Location() (*time.Location, error) {
	if d.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(d.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", d.TimeZone, err)
	}
	return loc, nil
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // openai, ollama, hash
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai, ollama
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature *float64      `yaml:"temperature"` // unset leaves the provider default
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ChatConfig holds retrieval and conversation memory settings.
type ChatConfig struct {
	TopK int `yaml:"top_k"`
	// MemoryWindow is the number of past exchanges replayed to the model; 0 replays everything.
	MemoryWindow *int `yaml:"memory_window"`
	// HistoryLimit caps stored messages per user; 0 keeps everything.
	HistoryLimit *int `yaml:"history_limit"`
	// HistoryTTL expires idle histories; 0 keeps them for the process lifetime.
	HistoryTTL time.Duration `yaml:"history_ttl"`
}

// MemoryWindowOrDefault returns MemoryWindow, defaulting to 10 when unset.
func (c *ChatConfig) MemoryWindowOrDefault() int {
	if c.MemoryWindow != nil {
		return *c.MemoryWindow
	}
	return 10
}

// HistoryLimitOrDefault returns HistoryLimit, defaulting to 200 when unset.
func (c *ChatConfig) HistoryLimitOrDefault() int {
	if c.HistoryLimit != nil {
		return *c.HistoryLimit
	}
	return 200
}

// LogConfig holds optional file logging.
type LogConfig struct {
	File string `yaml:"file"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Data.DefaultPath = expandPath(cfg.Data.DefaultPath, configDir)
	cfg.Log.File = expandPath(cfg.Log.File, configDir)

	return &cfg, nil
}

// ApplyEnv overrides cfg with process environment values. getenv is usually os.Getenv.
// PORT, BASE_URL and OPENAI_API_KEY are honored for compatibility with existing deployments.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Server.Port = port
	}
	if v := getenv("BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
		if cfg.Embedding.Provider == ProviderOpenAI {
			cfg.Embedding.BaseURL = v
		}
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("RIDEWISE_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := getenv("RIDEWISE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := getenv("RIDEWISE_DATA_PATH"); v != "" {
		cfg.Data.DefaultPath = v
	}
	return nil
}

// expandPath converts a relative path to one under configDir. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
