package domain

import "context"

// Document is one page of a loaded source file.
type Document struct {
	Path    string
	Page    int
	Content string
}

// Chunk is a contiguous slice of a document's concatenated page text.
type Chunk struct {
	ID         string
	DocumentID string
	Path       string
	Index      int
	// Start is the rune offset of Text inside the concatenated document.
	Start int
	// Page is the index of the page that contains Start.
	Page int
	Text string
}

// SearchResult is a stored chunk with its similarity to a query vector.
type SearchResult struct {
	ID    string
	Chunk Chunk
	Score float64
}

// RetrievalResult holds search results ordered by descending similarity.
type RetrievalResult []SearchResult

// Texts returns the chunk texts in rank order.
func (r RetrievalResult) Texts() []string {
	out := make([]string, len(r))
	for i, res := range r {
		out[i] = res.Chunk.Text
	}
	return out
}

// Embedder converts free text into numeric vectors.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits the pages of a document into overlapping chunks.
type Chunker interface {
	Chunk(docs []Document) []Chunk
}

// VectorStore keeps chunk vectors for the lifetime of the process and
// answers nearest-neighbour queries.
type VectorStore interface {
	Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Count() int
}

// Generator turns a prompt into a model answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
