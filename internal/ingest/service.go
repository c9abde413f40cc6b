// Package ingest turns an uploaded workbook into a published knowledge snapshot.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/ridewise/internal/enrich"
	"github.com/hyperjump/ridewise/internal/fileid"
	"github.com/hyperjump/ridewise/internal/indexer"
	"github.com/hyperjump/ridewise/internal/metrics"
	"github.com/hyperjump/ridewise/internal/storage"
	"github.com/hyperjump/ridewise/internal/workbook"
	"go.uber.org/zap"
)

// Result describes a successful ingest.
type Result struct {
	Rows       int
	Generation string
	Digest     string
	Stats      enrich.Stats
	Missing    []string
}

// Service parses, enriches and indexes workbooks, then publishes the result.
// A failed ingest leaves the previous snapshot active.
type Service struct {
	parser   *workbook.Parser
	enricher *enrich.Enricher
	builder  *indexer.Builder
	store    storage.Storage
	now      func() time.Time
	logger   *zap.Logger
}

// NewService wires the ingest pipeline. logger may be nil.
func NewService(parser *workbook.Parser, enricher *enrich.Enricher, builder *indexer.Builder, store storage.Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		parser:   parser,
		enricher: enricher,
		builder:  builder,
		store:    store,
		now:      time.Now,
		logger:   logger,
	}
}

// Ingest reads a workbook from r. source names it in logs and status output.
func (s *Service) Ingest(ctx context.Context, r io.Reader, source string) (*Result, error) {
	start := time.Now()
	res, err := s.ingest(ctx, r, source)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IngestTotal.WithLabelValues(status).Inc()
	metrics.IngestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("ingest failed", zap.String("source", source), zap.Error(err))
		return nil, err
	}
	s.logger.Info("workbook ingested",
		zap.String("source", source),
		zap.Int("rows", res.Rows),
		zap.String("generation", res.Generation),
		zap.String("digest", res.Digest),
		zap.Strings("missing_sheets", res.Missing),
		zap.Any("stats", res.Stats),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (s *Service) ingest(ctx context.Context, r io.Reader, source string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return s.ingestBytes(ctx, data, fileid.Digest(data), source)
}

func (s *Service) ingestBytes(ctx context.Context, data []byte, digest, source string) (*Result, error) {
	wb, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	records, stats := s.enricher.Enrich(wb)
	idx, err := s.builder.Build(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	snap := &storage.Snapshot{
		Generation: uuid.NewString(),
		Source:     source,
		Digest:     digest,
		LoadedAt:   s.now(),
		Records:    records,
		Index:      idx,
	}
	s.store.Publish(snap)
	metrics.IndexedRows.Set(float64(len(records)))

	return &Result{
		Rows:       len(records),
		Generation: snap.Generation,
		Digest:     digest,
		Stats:      stats,
		Missing:    wb.Missing,
	}, nil
}

// IngestFile ingests the workbook at path.
func (s *Service) IngestFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return s.Ingest(ctx, f, path)
}

// ReloadFile ingests the workbook at path unless its content matches the
// active snapshot, in which case it returns a nil result without error.
func (s *Service) ReloadFile(ctx context.Context, path string) (*Result, error) {
	data, digest, err := fileid.DigestFile(path)
	if err != nil {
		return nil, err
	}
	if snap, ok := s.store.Current(); ok && snap.Digest == digest {
		s.logger.Debug("workbook unchanged; skipping reload", zap.String("path", path), zap.String("digest", digest))
		return nil, nil
	}
	return s.Ingest(ctx, bytes.NewReader(data), path)
}

// LoadDefault ingests path if it exists. A missing file is logged and
// reported as a nil result without error.
func (s *Service) LoadDefault(ctx context.Context, path string) (*Result, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("default workbook not found; waiting for upload", zap.String("path", path))
		return nil, nil
	}
	return s.IngestFile(ctx, path)
}
