// Package vector provides vector index and similarity search.
package vector

import "context"

// VectorIndex defines vector storage and nearest-neighbor search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit. Position is the insertion order
// of the vector in the index.
type VectorResult struct {
	ID       string
	Position int
	Score    float64 // inner product; cosine similarity for normalized vectors
}
