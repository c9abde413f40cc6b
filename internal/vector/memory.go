package vector

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force inner product index. Vectors live in one
// contiguous slab; position i owns slab[i*dim : (i+1)*dim].
type MemoryIndex struct {
	dim  int
	ids  []string
	slab []float32
	mu   sync.RWMutex
}

var _ VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dim: dimensions}, nil
}

// Add appends vectors with the given IDs. Either all vectors are added or none.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i, v := range vectors {
		if len(v) != m.dim {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), m.dim)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, ids...)
	for _, v := range vectors {
		m.slab = append(m.slab, v...)
	}
	return nil
}

// Search returns up to k vectors ordered by descending inner product. Equal
// scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dim)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.ids)
	if k <= 0 || n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	top := make(minHeap, 0, k)
	for pos := 0; pos < n; pos++ {
		if pos%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score := InnerProduct(query, m.slab[pos*m.dim:(pos+1)*m.dim])
		if len(top) < k {
			heap.Push(&top, candidate{pos: pos, score: score})
			continue
		}
		// Later positions never displace an equal score.
		if score > top[0].score {
			top[0] = candidate{pos: pos, score: score}
			heap.Fix(&top, 0)
		}
	}

	sort.Slice(top, func(i, j int) bool { return top[i].better(top[j]) })
	out := make([]*VectorResult, len(top))
	for i, c := range top {
		out[i] = &VectorResult{ID: m.ids[c.pos], Position: c.pos, Score: c.score}
	}
	return out, nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dim
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

type candidate struct {
	pos   int
	score float64
}

// better orders by score, then by earlier position.
func (c candidate) better(o candidate) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	return c.pos < o.pos
}

// minHeap keeps the worst retained candidate at the root.
type minHeap []candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[j].better(h[i]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
