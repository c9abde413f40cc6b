package config

import "time"

// Provider names shared by the embedding and llm settings.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.UploadField == "" {
		cfg.Server.UploadField = "file"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Data.DefaultPath == "" {
		cfg.Data.DefaultPath = "./data/rides.xlsx"
	}
	if cfg.Data.Sheets.Trips == "" {
		cfg.Data.Sheets.Trips = "Trip Data"
	}
	if cfg.Data.Sheets.CheckIns == "" {
		cfg.Data.Sheets.CheckIns = "Checked in User ID's"
	}
	if cfg.Data.Sheets.Demographics == "" {
		cfg.Data.Sheets.Demographics = "Customer Demographics"
	}
	if cfg.Data.DateField == "" {
		cfg.Data.DateField = "Trip_Date_and_Time"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderOllama:
			cfg.Embedding.Model = "nomic-embed-text"
		default:
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	}
	if cfg.Embedding.BaseURL == "" {
		switch cfg.Embedding.Provider {
		case ProviderOllama:
			cfg.Embedding.BaseURL = "http://localhost:11434"
		default:
			cfg.Embedding.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.Embedding.Dimensions == 0 && cfg.Embedding.Provider == ProviderHash {
		cfg.Embedding.Dimensions = 256
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 60 * time.Second
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderOllama:
			cfg.LLM.Model = "llama3"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.BaseURL == "" {
		switch cfg.LLM.Provider {
		case ProviderOllama:
			cfg.LLM.BaseURL = "http://localhost:11434"
		default:
			cfg.LLM.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = 20
	}
}
