// Package storage holds the active knowledge snapshot: the enriched records and
// the semantic index built from one workbook.
package storage

import (
	"sync/atomic"
	"time"

	"github.com/hyperjump/ridewise/internal/indexer"
	"github.com/hyperjump/ridewise/internal/models"
)

// Snapshot is one complete, immutable ingest result.
type Snapshot struct {
	Generation string
	Source     string
	Digest     string
	LoadedAt   time.Time
	Records    []*models.Record
	Index      *indexer.Index
}

// Rows returns the number of records in the snapshot.
func (s *Snapshot) Rows() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Storage publishes and serves knowledge snapshots.
type Storage interface {
	// Publish makes snap the current snapshot and returns the one it replaced (nil if none).
	Publish(snap *Snapshot) *Snapshot
	// Current returns the active snapshot and whether one has been published.
	Current() (*Snapshot, bool)
	// Ready reports whether a snapshot has been published.
	Ready() bool
}

// MemoryStorage keeps the current snapshot in memory. Readers always observe a
// whole snapshot, either the previous one or the new one.
type MemoryStorage struct {
	current atomic.Pointer[Snapshot]
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Publish swaps in snap.
func (m *MemoryStorage) Publish(snap *Snapshot) *Snapshot {
	return m.current.Swap(snap)
}

// Current returns the active snapshot.
func (m *MemoryStorage) Current() (*Snapshot, bool) {
	snap := m.current.Load()
	return snap, snap != nil
}

// Ready reports whether any snapshot is active.
func (m *MemoryStorage) Ready() bool {
	return m.current.Load() != nil
}
