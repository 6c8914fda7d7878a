package chromem

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

const (
	metaSeq        = "seq"
	metaChunkID    = "chunk_id"
	metaDocumentID = "document_id"
	metaPath       = "path"
	metaIndex      = "index"
	metaStart      = "start"
	metaPage       = "page"
)

// Storage keeps vectors in a chromem-go collection that lives only in memory.
type Storage struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	seq        int
}

// NewStorage creates the named collection in a fresh in-memory database.
func NewStorage(name string) (*Storage, error) {
	if name == "" {
		name = "rag_demo"
	}
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(name, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create collection %q: %w", domain.ErrStore, name, err)
	}
	return &Storage{db: db, collection: collection}, nil
}

// Add stores one document per chunk with the chunk fields kept as metadata.
func (s *Storage) Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
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

	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrStore, i, len(vectors[i]), dim)
		}
		ids[i] = uuid.NewString()
		embeddings[i] = vectors[i]
		metadatas[i] = map[string]string{
			metaSeq:        strconv.Itoa(s.seq + i),
			metaChunkID:    c.ID,
			metaDocumentID: c.DocumentID,
			metaPath:       c.Path,
			metaIndex:      strconv.Itoa(c.Index),
			metaStart:      strconv.Itoa(c.Start),
			metaPage:       strconv.Itoa(c.Page),
		}
		contents[i] = c.Text
	}
	if err := s.collection.Add(ctx, ids, embeddings, metadatas, contents); err != nil {
		return fmt.Errorf("%w: add %d documents: %w", domain.ErrStore, len(ids), err)
	}
	s.dimension = dim
	s.seq += len(chunks)
	return nil
}

// Query ranks the whole collection and returns the topK best matches.
// chromem does not order equal similarities, so results are re-sorted by
// (similarity, insertion sequence).
func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.collection.Count()
	if topK <= 0 || n == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, store dimension %d", domain.ErrStore, len(vector), s.dimension)
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrStore, err)
	}

	type ranked struct {
		res domain.SearchResult
		seq int
	}
	all := make([]ranked, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		// zero vectors normalize to NaN
		if math.IsNaN(score) {
			score = 0
		}
		all = append(all, ranked{
			res: domain.SearchResult{ID: r.ID, Chunk: chunkFromResult(r), Score: score},
			seq: atoi(r.Metadata[metaSeq]),
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].res.Score != all[j].res.Score {
			return all[i].res.Score > all[j].res.Score
		}
		return all[i].seq < all[j].seq
	})

	if topK > len(all) {
		topK = len(all)
	}
	out := make([]domain.SearchResult, topK)
	for i := range out {
		out[i] = all[i].res
	}
	return out, nil
}

// Count returns the number of documents in the collection.
func (s *Storage) Count() int {
	return s.collection.Count()
}

func chunkFromResult(r chromem.Result) domain.Chunk {
	return domain.Chunk{
		ID:         r.Metadata[metaChunkID],
		DocumentID: r.Metadata[metaDocumentID],
		Path:       r.Metadata[metaPath],
		Index:      atoi(r.Metadata[metaIndex]),
		Start:      atoi(r.Metadata[metaStart]),
		Page:       atoi(r.Metadata[metaPage]),
		Text:       r.Content,
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
