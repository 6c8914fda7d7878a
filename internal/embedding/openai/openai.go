package openai

import (
	"context"
	"fmt"
	"math"
	"sort"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	client    *goopenai.Client
	model     string
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", domain.ErrEmbed)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: goopenai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}, nil
}

// Name returns the model identifier.
func (c *Client) Name() string { return "openai/" + c.model }

// Prepare is not required for remote embedding.
func (c *Client) Prepare([]string) error { return nil }

// Dimension is known after the first successful call.
func (c *Client) Dimension() int { return c.dimension }

// Embed sends the whole batch in one request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty input batch", domain.ErrEmbed)
	}
	resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %w", domain.ErrEmbed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", domain.ErrEmbed, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", domain.ErrEmbed, i)
		}
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		l2normalize(v)
		out[i] = v
	}
	if c.dimension == 0 {
		c.dimension = len(out[0])
	}
	return out, nil
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
