// Package chat answers questions over the active snapshot with per-user memory.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/ridewise/internal/conversation"
	"github.com/hyperjump/ridewise/internal/indexer"
	"github.com/hyperjump/ridewise/internal/llm"
	"github.com/hyperjump/ridewise/internal/metrics"
	"github.com/hyperjump/ridewise/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrNotReady is returned when no workbook has been ingested yet.
	ErrNotReady = errors.New("no data uploaded yet")
	// ErrBadRequest is returned when the question or user ID is blank.
	ErrBadRequest = errors.New("question and userId are required")
)

const (
	defaultTopK         = 20
	defaultMemoryWindow = 10

	systemPrompt = "You are a data assistant for a ride-sharing service. " +
		"You answer questions about trip records using only the data provided in each message."
)

// Orchestrator runs one chat turn: retrieve, prompt, call the model, remember.
type Orchestrator struct {
	storage      storage.Storage
	histories    *conversation.Store
	provider     llm.Provider
	topK         int
	memoryWindow int
	llmOpts      []llm.Option
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTopK sets how many records are retrieved per question.
func WithTopK(k int) Option {
	return func(o *Orchestrator) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithMemoryWindow sets how many past exchanges are replayed; 0 replays all.
func WithMemoryWindow(turns int) Option {
	return func(o *Orchestrator) {
		if turns >= 0 {
			o.memoryWindow = turns
		}
	}
}

// WithLLMOptions sets per-call model options such as temperature.
func WithLLMOptions(opts ...llm.Option) Option {
	return func(o *Orchestrator) {
		o.llmOpts = append(o.llmOpts, opts...)
	}
}

// WithClock sets the clock used for the prompt timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an orchestrator over store, histories and provider.
func NewOrchestrator(store storage.Storage, histories *conversation.Store, provider llm.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		storage:      store,
		histories:    histories,
		provider:     provider,
		topK:         defaultTopK,
		memoryWindow: defaultMemoryWindow,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Answer answers question for userID. It returns ErrNotReady before any
// ingest and ErrBadRequest for blank input; other errors come from retrieval
// or the model. The user's history only changes when a turn succeeds.
func (o *Orchestrator) Answer(ctx context.Context, question, userID string) (string, error) {
	start := time.Now()
	answer, err := o.answer(ctx, question, userID)
	metrics.ChatLatency.Observe(time.Since(start).Seconds())
	metrics.ChatRequests.WithLabelValues(outcome(err)).Inc()
	return answer, err
}

func (o *Orchestrator) answer(ctx context.Context, question, userID string) (string, error) {
	snap, ok := o.storage.Current()
	if !ok {
		return "", ErrNotReady
	}
	if strings.TrimSpace(question) == "" || strings.TrimSpace(userID) == "" {
		return "", ErrBadRequest
	}

	history, end := o.histories.BeginTurn(userID)
	defer end()

	retrieveStart := time.Now()
	matches, err := snap.Index.Query(ctx, question, o.topK)
	metrics.RetrievalLatency.Observe(time.Since(retrieveStart).Seconds())
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	contextBlock, err := BuildContext(matches)
	if err != nil {
		return "", fmt.Errorf("build context: %w", err)
	}
	o.logger.Debug("retrieved context",
		zap.String("user_id", userID),
		zap.Int("matches", len(matches)),
		zap.String("generation", snap.Generation))

	past := history.Window(o.memoryWindow)
	messages := make([]llm.Message, 0, len(past)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range past {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: BuildPrompt(o.now(), contextBlock, question)})

	answer, err := o.provider.Chat(ctx, messages, o.llmOpts...)
	if err != nil {
		return "", fmt.Errorf("language model: %w", err)
	}

	now := o.now()
	history.Append(
		conversation.Message{Role: conversation.RoleUser, Content: question, At: now},
		conversation.Message{Role: conversation.RoleAssistant, Content: answer, At: now},
	)
	return answer, nil
}

// BuildContext serializes each match's record as JSON, or its text when the
// record is absent, one per line in rank order.
func BuildContext(matches []*indexer.Match) (string, error) {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Document.Record == nil {
			lines = append(lines, m.Document.Text)
			continue
		}
		b, err := json.Marshal(m.Document.Record)
		if err != nil {
			return "", err
		}
		lines = append(lines, string(b))
	}
	return strings.Join(lines, "\n"), nil
}

// BuildPrompt assembles the grounding prompt for one question.
func BuildPrompt(now time.Time, contextBlock, question string) string {
	var sb strings.Builder
	sb.WriteString("Current time: ")
	sb.WriteString(now.Format(time.RFC3339))
	sb.WriteString("\n\nTrip records:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\nAnswer the question using only the trip records above. ")
	sb.WriteString("If they do not contain the answer, say that the data does not show it.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}
