package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

// maxBatch is the largest batch the embedding API accepts in one call.
const maxBatch = 100

type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Embedder uses a Gemini embedding model.
type Embedder struct {
	client    *genai.Client
	model     string
	embed     batchFunc
	dimension int
}

// NewEmbedder creates a Gemini embedder. Every text is embedded with the
// semantic-similarity task type so documents and queries share one space.
func NewEmbedder(ctx context.Context, apiKey, model string) (*Embedder, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", domain.ErrEmbed, err)
	}
	em := client.EmbeddingModel(model)
	em.TaskType = genai.TaskTypeSemanticSimilarity

	e := newEmbedder(model, func(ctx context.Context, texts []string) ([][]float32, error) {
		b := em.NewBatch()
		for _, t := range texts {
			b.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, err
		}
		out := make([][]float32, len(resp.Embeddings))
		for i, ce := range resp.Embeddings {
			if ce != nil {
				out[i] = ce.Values
			}
		}
		return out, nil
	})
	e.client = client
	return e, nil
}

func newEmbedder(model string, fn batchFunc) *Embedder {
	return &Embedder{model: model, embed: fn}
}

// Name returns the model identifier.
func (e *Embedder) Name() string { return "gemini/" + e.model }

// Prepare is not required for remote embedding.
func (e *Embedder) Prepare([]string) error { return nil }

// Dimension is known after the first successful call.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed splits texts into API-sized batches and keeps the input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty input batch", domain.ErrEmbed)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: gemini embeddings: %w", domain.ErrEmbed, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs", domain.ErrEmbed, len(vecs), end-start)
		}
		for i, v := range vecs {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: empty embedding at index %d", domain.ErrEmbed, start+i)
			}
		}
		out = append(out, vecs...)
	}
	if e.dimension == 0 {
		e.dimension = len(out[0])
	}
	return out, nil
}

// Close releases the underlying client.
func (e *Embedder) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
