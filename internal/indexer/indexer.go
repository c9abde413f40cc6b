// Package indexer builds the in-memory semantic index over enriched trip records.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/ridewise/internal/embedding"
	"github.com/hyperjump/ridewise/internal/models"
	"github.com/hyperjump/ridewise/internal/vector"
	"go.uber.org/zap"
)

const defaultBatchSize = 64

// Document is one indexed record with the text that was embedded for it.
type Document struct {
	ID     string
	Text   string
	Record *models.Record
}

// Match is a single retrieval result. Rank is 1-based.
type Match struct {
	Document *Document
	Score    float64
	Rank     int
}

// Builder embeds records and assembles them into a fresh Index.
type Builder struct {
	embedder  embedding.Embedder
	batchSize int
	logger    *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBatchSize sets how many texts are sent to the embedder per call.
func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder that embeds with embedder.
func NewBuilder(embedder embedding.Embedder, opts ...BuilderOption) *Builder {
	b := &Builder{
		embedder:  embedder,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every record and returns a new index holding them in input
// order. Nothing is shared with previously built indexes.
func (b *Builder) Build(ctx context.Context, records []*models.Record) (*Index, error) {
	docs := make([]*Document, len(records))
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = FlattenRecord(rec)
		docs[i] = &Document{
			ID:     fmt.Sprintf("trip-%06d", i),
			Text:   texts[i],
			Record: rec,
		}
	}
	idx := &Index{embedder: b.embedder, docs: docs}
	if len(docs) == 0 {
		return idx, nil
	}

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := b.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
		}
		if idx.vectors == nil {
			if len(vecs[0]) == 0 {
				return nil, errors.New("embedder returned an empty vector")
			}
			if idx.vectors, err = vector.NewMemoryIndex(len(vecs[0])); err != nil {
				return nil, err
			}
		}
		ids := make([]string, end-start)
		for i := range ids {
			ids[i] = docs[start+i].ID
		}
		if err := idx.vectors.Add(ctx, ids, vecs); err != nil {
			return nil, fmt.Errorf("failed to index vectors: %w", err)
		}
		b.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(texts)))
	}
	return idx, nil
}

// Index is an immutable nearest-neighbor index over documents.
type Index struct {
	embedder embedding.Embedder
	vectors  *vector.MemoryIndex
	docs     []*Document
}

// Size returns the number of documents.
func (idx *Index) Size() int {
	if idx == nil {
		return 0
	}
	return len(idx.docs)
}

// Documents returns the indexed documents in insertion order.
func (idx *Index) Documents() []*Document {
	if idx == nil {
		return nil
	}
	return idx.docs
}

// Query embeds text and returns up to k documents by descending similarity.
// An empty index returns no matches without calling the embedder.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]*Match, error) {
	if idx.Size() == 0 || k <= 0 {
		return nil, nil
	}
	q, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := idx.vectors.Search(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	matches := make([]*Match, len(hits))
	for i, h := range hits {
		matches[i] = &Match{Document: idx.docs[h.Position], Score: h.Score, Rank: i + 1}
	}
	return matches, nil
}

// FlattenRecord renders rec as "key: value" pairs joined by "; ", skipping nulls.
func FlattenRecord(rec *models.Record) string {
	var sb strings.Builder
	for _, f := range rec.Fields() {
		if f.Value == nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(f.Key)
		sb.WriteString(": ")
		sb.WriteString(FormatValue(f.Value))
	}
	return sb.String()
}

// FormatValue renders a cell value: integral floats without a decimal point,
// other floats in shortest form, bools as true/false.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
