package qdrant

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

// Storage is a Qdrant-backed vector store reached over gRPC.
// The collection is dropped when the store is opened, so every run starts
// empty, and it is created with cosine distance on the first Add.
type Storage struct {
	mu         sync.RWMutex
	client     *qdrant.Client
	collection string
	dimension  int
	count      int
}

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

func NewStorage(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "rag_demo"
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant client: %w", domain.ErrStore, err)
	}
	s := &Storage{client: client, collection: cfg.Collection}
	if err := s.reset(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) reset(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection %q: %w", domain.ErrStore, s.collection, err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("%w: drop collection %q: %w", domain.ErrStore, s.collection, err)
		}
	}
	return nil
}

func (s *Storage) createCollection(ctx context.Context, dimension int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %q: %w", domain.ErrStore, s.collection, err)
	}
	return nil
}

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

	pts := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrStore, i, len(vectors[i]), dim)
		}
		pts[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payloadFor(c, s.count+i)),
		}
	}

	if s.dimension == 0 {
		if err := s.createCollection(ctx, dim); err != nil {
			return err
		}
		s.dimension = dim
	}
	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         pts,
	}); err != nil {
		return fmt.Errorf("%w: upsert %d points: %w", domain.ErrStore, len(pts), err)
	}
	s.count += len(pts)
	return nil
}

// Query asks Qdrant for every stored point and re-ranks them by
// (score, insertion sequence) so equal scores come back in insertion order.
func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || s.count == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, store dimension %d", domain.ErrStore, len(vector), s.dimension)
	}

	limit := uint64(s.count)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrStore, err)
	}
	return rank(resp, topK), nil
}

func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func payloadFor(c domain.Chunk, seq int) map[string]any {
	return map[string]any{
		"seq":         seq,
		"chunk_id":    c.ID,
		"document_id": c.DocumentID,
		"path":        c.Path,
		"index":       c.Index,
		"start":       c.Start,
		"page":        c.Page,
		"text":        c.Text,
	}
}

func rank(points []*qdrant.ScoredPoint, topK int) []domain.SearchResult {
	type ranked struct {
		res domain.SearchResult
		seq int64
	}
	all := make([]ranked, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		all = append(all, ranked{
			res: domain.SearchResult{
				ID:    pointID(p.GetId()),
				Chunk: chunkFromPayload(payload),
				Score: float64(p.GetScore()),
			},
			seq: payload["seq"].GetIntegerValue(),
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
	return out
}

func chunkFromPayload(p map[string]*qdrant.Value) domain.Chunk {
	return domain.Chunk{
		ID:         p["chunk_id"].GetStringValue(),
		DocumentID: p["document_id"].GetStringValue(),
		Path:       p["path"].GetStringValue(),
		Index:      int(p["index"].GetIntegerValue()),
		Start:      int(p["start"].GetIntegerValue()),
		Page:       int(p["page"].GetIntegerValue()),
		Text:       p["text"].GetStringValue(),
	}
}

func pointID(id *qdrant.PointId) string {
	switch x := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return x.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", x.Num)
	}
	return ""
}
