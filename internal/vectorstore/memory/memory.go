package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

type record struct {
	id     string
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	records   []record
}

func NewStorage() *Storage { return &Storage{} }

// Add stores one record per chunk. The first vector ever added fixes the
// dimension of the store.
func (s *Storage) Add(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrStore, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrStore)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrStore, i, len(v), dim)
		}
	}

	batch := make([]record, len(chunks))
	for i := range chunks {
		v := make([]float32, dim)
		copy(v, vectors[i])
		batch[i] = record{id: uuid.NewString(), chunk: chunks[i], vector: v, norm: norm(v)}
	}
	s.dimension = dim
	s.records = append(s.records, batch...)
	return nil
}

// Query returns at most topK records ordered by descending cosine
// similarity; equal scores keep insertion order.
func (s *Storage) Query(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.records) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, store dimension %d", domain.ErrStore, len(vector), s.dimension)
	}

	qn := norm(vector)
	scores := make([]float64, len(s.records))
	for i := range s.records {
		scores[i] = cosine(s.records[i].vector, s.records[i].norm, vector, qn)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		r := s.records[j]
		results = append(results, domain.SearchResult{ID: r.id, Chunk: r.chunk, Score: scores[j]})
	}
	return results, nil
}

// Count returns the number of stored records.
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine is 0 when either vector has zero length.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
