package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/osaetin-tails/rag-demo/internal/domain"
	"github.com/osaetin-tails/rag-demo/internal/loader"
)

// Stage names an ingestion phase reported to a Reporter.
type Stage string

const (
	StageLoad  Stage = "Loading documents"
	StageEmbed Stage = "Embedding documents"
	StageSave  Stage = "Saving embeddings"
)

// Reporter receives ingestion progress.
type Reporter interface {
	Begin(stage Stage)
	End(stage Stage, detail string)
}

type nopReporter struct{}

func (nopReporter) Begin(Stage) {}
func (nopReporter) End(Stage, string) {}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Pages      int
	Chunks     int
	Embeddings int
	Stored     int
	Summary    string
}

type Options struct {
	// BatchSize caps the number of texts sent to the embedder per call.
	BatchSize           int
	SummaryMaxSentences int
	Reporter            Reporter
}

type RAGService struct {
	chunker             domain.Chunker
	embedder            domain.Embedder
	store               domain.VectorStore
	summarizer          domain.Summarizer
	summaryMaxSentences int
	batchSize           int
	reporter            Reporter
}

// NewRAGService wires the pipeline components. summarizer may be nil.
func NewRAGService(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, opts Options) *RAGService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	return &RAGService{
		chunker:             chunker,
		embedder:            embedder,
		store:               store,
		summarizer:          summarizer,
		summaryMaxSentences: opts.SummaryMaxSentences,
		batchSize:           opts.BatchSize,
		reporter:            opts.Reporter,
	}
}

// Ingest loads the document at path, chunks it, embeds every chunk and adds
// the whole set to the store in one call. Any failure aborts ingestion.
func (s *RAGService) Ingest(ctx context.Context, path string) (*IngestReport, error) {
	s.reporter.Begin(StageLoad)
	docs, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	chunks := s.chunker.Chunk(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", domain.ErrChunk, path)
	}
	s.reporter.End(StageLoad, fmt.Sprintf("loaded %d chunks", len(chunks)))

	s.reporter.Begin(StageEmbed)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := s.embedder.Prepare(texts); err != nil {
		return nil, err
	}
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	s.reporter.End(StageEmbed, fmt.Sprintf("embedded %d documents", len(vectors)))

	s.reporter.Begin(StageSave)
	if err := s.store.Add(ctx, chunks, vectors); err != nil {
		return nil, err
	}
	s.reporter.End(StageSave, "")

	report := &IngestReport{
		Pages:      len(docs),
		Chunks:     len(chunks),
		Embeddings: len(vectors),
		Stored:     s.store.Count(),
	}
	if s.summarizer != nil && s.summaryMaxSentences > 0 {
		var full strings.Builder
		for _, d := range docs {
			full.WriteString(d.Content)
		}
		summary, err := s.summarizer.Summarize(full.String(), s.summaryMaxSentences)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", path, err)
		}
		report.Summary = summary
	}
	return report, nil
}

func (s *RAGService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		vecs, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts", domain.ErrEmbed, s.embedder.Name(), len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Retrieve embeds the query and returns up to k stored chunks ordered by
// descending similarity. An empty store yields an empty result without
// touching the embedder.
func (s *RAGService) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if s.store.Count() == 0 {
		return domain.RetrievalResult{}, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d vectors for one query", domain.ErrEmbed, s.embedder.Name(), len(vecs))
	}
	res, err := s.store.Query(ctx, vecs[0], k)
	if err != nil {
		return nil, err
	}
	return domain.RetrievalResult(res), nil
}
