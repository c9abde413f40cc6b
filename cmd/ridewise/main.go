// Package main is the ridewise CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/ridewise/internal/chat"
	"github.com/hyperjump/ridewise/internal/cli"
	"github.com/hyperjump/ridewise/internal/config"
	"github.com/hyperjump/ridewise/internal/conversation"
	"github.com/hyperjump/ridewise/internal/embedding"
	"github.com/hyperjump/ridewise/internal/enrich"
	"github.com/hyperjump/ridewise/internal/indexer"
	"github.com/hyperjump/ridewise/internal/ingest"
	"github.com/hyperjump/ridewise/internal/llm"
	"github.com/hyperjump/ridewise/internal/models"
	"github.com/hyperjump/ridewise/internal/server"
	"github.com/hyperjump/ridewise/internal/storage"
	"github.com/hyperjump/ridewise/internal/watcher"
	"github.com/hyperjump/ridewise/internal/workbook"
	"github.com/hyperjump/ridewise/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/ridewise/config.yaml"
	defaultServerURL  = "http://localhost:3000"
)

// loadConfig loads config from path and applies environment overrides. When
// path is the default, config.yaml in the current directory wins if present,
// and a missing default file means built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	var cfg *config.Config
	loaded := path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
		loaded = ""
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, "", err
		}
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, "", err
	}
	return cfg, loaded, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "inspect":
		runInspect()
	case "ask":
		runAsk()
	case "upload":
		runUpload()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("ridewise version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewFileLogger(debugMode, cfg.Log.File)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := components.Ingest.LoadDefault(ctx, cfg.Data.DefaultPath); err != nil {
		logger.Warn("default workbook ingest failed", zap.String("path", cfg.Data.DefaultPath), zap.Error(err))
	}

	if cfg.Data.Watch && cfg.Data.DefaultPath != "" {
		watchSvc := watcher.NewWatcher(cfg.Data.DefaultPath, func(path string) {
			if _, err := components.Ingest.ReloadFile(ctx, path); err != nil {
				logger.Warn("watch reload failed", zap.String("path", path), zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err := watchSvc.Start(ctx); err != nil {
			logger.Warn("Failed to start watcher", zap.String("path", cfg.Data.DefaultPath), zap.Error(err))
		} else {
			defer watchSvc.Stop()
		}
	}

	srv := server.NewServer(
		components.Ingest,
		components.Orchestrator,
		components.Storage,
		&cfg.Server,
		cfg.Auth,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runInspect() {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	limit := fs.Int("limit", 10, "records to list in text output (0 = all)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: ridewise inspect [flags] <workbook.xlsx>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	inspection, err := inspectWorkbook(cfg, fs.Arg(0), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inspect failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteInspection(os.Stdout, inspection, format, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// inspectWorkbook parses and enriches path without embedding it.
func inspectWorkbook(cfg *config.Config, path string, logger *zap.Logger) (*cli.Inspection, error) {
	parser, enricher, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	wb, err := parser.Parse(f)
	if err != nil {
		return nil, err
	}
	records, stats := enricher.Enrich(wb)
	return &cli.Inspection{Source: path, Stats: stats, Missing: wb.Missing, Records: records}, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	userID := fs.String("user", "cli", "user ID whose conversation memory is used")
	token := fs.String("token", os.Getenv("RIDEWISE_AUTH_TOKEN"), "bearer token (default from RIDEWISE_AUTH_TOKEN)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: ridewise ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	answer, err := askViaHTTP(*serverURL, *token, &models.ChatRequest{Question: question, UserID: *userID})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, token string, req *models.ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequest(http.MethodPost, strings.TrimRight(serverURL, "/")+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	var out models.ChatResponse
	if err := doJSON(httpReq, token, &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	token := fs.String("token", os.Getenv("RIDEWISE_AUTH_TOKEN"), "bearer token (default from RIDEWISE_AUTH_TOKEN)")
	field := fs.String("field", "file", "multipart field name")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: ridewise upload [flags] <workbook.xlsx>")
		os.Exit(1)
	}
	res, err := uploadViaHTTP(*serverURL, *token, *field, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s (%d rows)\n", res.Message, res.Rows)
}

func uploadViaHTTP(serverURL, token, field, path string) (*models.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(serverURL, "/")+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out models.UploadResponse
	if err := doJSON(req, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	if !status.Ready {
		fmt.Println("No data loaded.")
		return
	}
	fmt.Printf("Rows:       %d\n", status.Rows)
	fmt.Printf("Source:     %s\n", status.Source)
	fmt.Printf("Generation: %s\n", status.Generation)
	fmt.Printf("Digest:     %s\n", status.Digest)
	if status.LoadedAt != nil {
		fmt.Printf("Loaded at:  %s\n", status.LoadedAt.Format(time.RFC3339))
	}
}

func statusViaHTTP(serverURL string) (*models.StatusResponse, error) {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(serverURL, "/")+"/status", nil)
	if err != nil {
		return nil, err
	}
	var out models.StatusResponse
	if err := doJSON(req, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON sends req and decodes a 200 JSON body into out. Other statuses
// become errors carrying the server's error message.
func doJSON(req *http.Request, token string, out interface{}) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	Histories    *conversation.Store
	Provider     llm.Provider
	Ingest       *ingest.Service
	Orchestrator *chat.Orchestrator
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func newPipeline(cfg *config.Config, logger *zap.Logger) (*workbook.Parser, *enrich.Enricher, error) {
	loc, err := cfg.Data.Location()
	if err != nil {
		return nil, nil, err
	}
	parser := workbook.NewParser(workbook.SheetNames{
		Trips:        cfg.Data.Sheets.Trips,
		CheckIns:     cfg.Data.Sheets.CheckIns,
		Demographics: cfg.Data.Sheets.Demographics,
	}, logger)
	enricher := enrich.NewEnricher(cfg.Data.DateField, enrich.WithLocation(loc), enrich.WithLogger(logger))
	return parser, enricher, nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	parser, enricher, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enrichment: %w", err)
	}

	embedder, err := embedding.New(cfg.Embedding, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	provider, err := llm.New(cfg.LLM, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	if cfg.APIKey == "" && (cfg.Embedding.Provider == config.ProviderOpenAI || cfg.LLM.Provider == config.ProviderOpenAI) {
		logger.Warn("no API key configured for the openai provider; requests may be rejected")
	}

	store := storage.NewMemoryStorage()
	builder := indexer.NewBuilder(embedder, indexer.WithBatchSize(cfg.Embedding.BatchSize), indexer.WithLogger(logger))
	ingestSvc := ingest.NewService(parser, enricher, builder, store, logger)

	histories := conversation.NewStore(cfg.Chat.HistoryTTL, cfg.Chat.HistoryLimitOrDefault())
	llmOpts := []llm.Option{}
	if cfg.LLM.Temperature != nil {
		llmOpts = append(llmOpts, llm.WithTemperature(*cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens > 0 {
		llmOpts = append(llmOpts, llm.WithMaxTokens(cfg.LLM.MaxTokens))
	}
	orchestrator := chat.NewOrchestrator(store, histories, provider,
		chat.WithTopK(cfg.Chat.TopK),
		chat.WithMemoryWindow(cfg.Chat.MemoryWindowOrDefault()),
		chat.WithLLMOptions(llmOpts...),
		chat.WithLogger(logger),
	)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		Histories:    histories,
		Provider:     provider,
		Ingest:       ingestSvc,
		Orchestrator: orchestrator,
	}, nil
}

func printUsage() {
	fmt.Println(`ridewise - Ask questions about ride-sharing trip data

Usage:
  ridewise server [flags]               Start the HTTP server
  ridewise inspect [flags] <workbook>   Parse and enrich a workbook locally
  ridewise upload [flags] <workbook>    Upload a workbook to a running server
  ridewise ask [flags] <question>       Ask a running server a question
  ridewise status [flags]               Show what data the server has loaded
  ridewise version                      Show version
  ridewise help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ridewise/config.yaml)
  --debug            Enable debug logging

Inspect Flags:
  --config string    Config file path (sheet names, date field, time zone)
  --output string    Output format: text or json (default: text)
  --limit int        Records listed in text output (default: 10, 0 = all)

Upload/Ask Flags:
  --server string    Server URL (default: http://localhost:3000)
  --token string     Bearer token (default: $RIDEWISE_AUTH_TOKEN)
  --user string      User ID for conversation memory (ask only, default: cli)
  --output string    Output format: text or json (ask only)

Examples:
  ridewise server
  ridewise inspect rides.xlsx
  ridewise upload rides.xlsx
  ridewise ask "How many trips started at the airport?"
  ridewise ask --user alice "And how many of those had more than 3 passengers?"
  ridewise status --output json`)
}
