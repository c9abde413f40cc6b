package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
  request_timeout: 45s
data:
  default_path: "./rides.xlsx"
  time_zone: "UTC"
chat:
  top_k: 5
  memory_window: 0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("request_timeout = %v, want 45s", cfg.Server.RequestTimeout)
	}
	if want := filepath.Join(dir, "rides.xlsx"); cfg.Data.DefaultPath != want {
		t.Errorf("default_path = %s, want %s", cfg.Data.DefaultPath, want)
	}
	if cfg.Chat.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.Chat.TopK)
	}
	if got := cfg.Chat.MemoryWindowOrDefault(); got != 0 {
		t.Errorf("explicit memory_window 0 should be kept, got %d", got)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 3000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.UploadField != "file" {
		t.Errorf("default upload field: got %q", cfg.Server.UploadField)
	}
	if cfg.Data.Sheets.Trips != "Trip Data" ||
		cfg.Data.Sheets.CheckIns != "Checked in User ID's" ||
		cfg.Data.Sheets.Demographics != "Customer Demographics" {
		t.Errorf("default sheet names: got %+v", cfg.Data.Sheets)
	}
	if cfg.Chat.TopK != 20 {
		t.Errorf("default top_k: got %d", cfg.Chat.TopK)
	}
	if cfg.Chat.MemoryWindowOrDefault() != 10 {
		t.Errorf("default memory window: got %d", cfg.Chat.MemoryWindowOrDefault())
	}
	if cfg.Chat.HistoryLimitOrDefault() != 200 {
		t.Errorf("default history limit: got %d", cfg.Chat.HistoryLimitOrDefault())
	}
	if cfg.Embedding.Provider != ProviderOpenAI || cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("default providers: embedding=%s llm=%s", cfg.Embedding.Provider, cfg.LLM.Provider)
	}
	if cfg.Auth.Enabled() {
		t.Error("auth should be disabled by default")
	}
}

func TestApplyDefaults_OllamaURLs(t *testing.T) {
	cfg := &Config{
		Embedding: EmbeddingConfig{Provider: ProviderOllama},
		LLM:       LLMConfig{Provider: ProviderOllama},
	}
	ApplyDefaults(cfg)
	if cfg.Embedding.BaseURL != "http://localhost:11434" || cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("ollama base urls: embedding=%s llm=%s", cfg.Embedding.BaseURL, cfg.LLM.BaseURL)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("ollama embedding model: %s", cfg.Embedding.Model)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                "8081",
		"BASE_URL":            "https://proxy.example.com/v1",
		"OPENAI_API_KEY":      "sk-test",
		"RIDEWISE_AUTH_TOKEN": "secret",
		"RIDEWISE_DATA_PATH":  "/data/rides.xlsx",
	}
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.LLM.BaseURL != env["BASE_URL"] || cfg.Embedding.BaseURL != env["BASE_URL"] {
		t.Errorf("base url not applied: llm=%s embedding=%s", cfg.LLM.BaseURL, cfg.Embedding.BaseURL)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.APIKey)
	}
	if !cfg.Auth.Enabled() || cfg.Auth.Token != "secret" {
		t.Errorf("auth token = %q", cfg.Auth.Token)
	}
	if cfg.Data.DefaultPath != "/data/rides.xlsx" {
		t.Errorf("data path = %s", cfg.Data.DefaultPath)
	}
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	cfg := &Config{}
	err := ApplyEnv(cfg, func(k string) string {
		if k == "PORT" {
			return "not-a-port"
		}
		return ""
	})
	if err == nil {
		t.Error("expected error for invalid PORT")
	}
}

func TestDataConfig_Location(t *testing.T) {
	d := &DataConfig{}
	loc, err := d.Location()
	if err != nil || loc != time.Local {
		t.Errorf("empty time_zone should resolve to Local, got %v %v", loc, err)
	}
	d.TimeZone = "UTC"
	loc, err = d.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("UTC: got %v %v", loc, err)
	}
	d.TimeZone = "Not/AZone"
	if _, err := d.Location(); err == nil {
		t.Error("expected error for invalid zone")
	}
}
