package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/osaetin-tails/rag-demo/internal/chunker"
	"github.com/osaetin-tails/rag-demo/internal/config"
	"github.com/osaetin-tails/rag-demo/internal/console"
	"github.com/osaetin-tails/rag-demo/internal/domain"
	"github.com/osaetin-tails/rag-demo/internal/embedding/gemini"
	"github.com/osaetin-tails/rag-demo/internal/embedding/openai"
	"github.com/osaetin-tails/rag-demo/internal/embedding/tfidf"
	geminigen "github.com/osaetin-tails/rag-demo/internal/generator/gemini"
	openaigen "github.com/osaetin-tails/rag-demo/internal/generator/openai"
	"github.com/osaetin-tails/rag-demo/internal/service"
	"github.com/osaetin-tails/rag-demo/internal/session"
	"github.com/osaetin-tails/rag-demo/internal/summarizer"
	"github.com/osaetin-tails/rag-demo/internal/vectorstore/chromem"
	"github.com/osaetin-tails/rag-demo/internal/vectorstore/memory"
	"github.com/osaetin-tails/rag-demo/internal/vectorstore/qdrant"
)

// errUsage reports a command line the flag set rejected; the flag package has
// already printed the problem and the usage text.
var errUsage = errors.New("invalid usage")

func main() {
	_ = godotenv.Load()

	err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	case errors.Is(err, domain.ErrConfig):
		fmt.Println(err)
		os.Exit(1)
	default:
		log.Fatal(err)
	}
}

// run wires the pipeline, ingests the document and serves queries from stdin
// until the session ends. Clients opened along the way are closed on return.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("rag", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config file (optional; built-in defaults are used if not provided)")
	verbose := fs.Bool("verbose", false, "Log retrieved chunks and scores for every query")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: rag [-config=config.yaml] [-verbose] [document.pdf]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	out := console.NewPrinter(stdout)
	out.Banner("CONFIGURING APPLICATION")

	cfg, err := config.Load(*cfgPath)
	if err == nil {
		err = cfg.Resolve(fs.Arg(0))
	}
	if err != nil {
		return err
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("close: %v", err)
			}
		}
	}()

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf":
		emb = tfidf.NewEmbedder()
	case "gemini":
		e, err := gemini.NewEmbedder(ctx, cfg.EmbedderAPIKey, cfg.Embedder.Model)
		if err != nil {
			return fmt.Errorf("gemini embedder init failed: %w", err)
		}
		closers = append(closers, e)
		emb = e
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL: cfg.Embedder.BaseURL,
			APIKey:  cfg.EmbedderAPIKey,
			Model:   cfg.Embedder.Model,
		})
		if err != nil {
			return fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	ch, err := chunker.NewRecursive(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunker init failed: %w", err)
	}

	out.Step(fmt.Sprintf("Creating %s collection %q", cfg.VectorStore.Type, cfg.VectorStore.Collection))
	var st domain.VectorStore
	switch cfg.VectorStore.Type {
	case "memory":
		st = memory.NewStorage()
	case "chromem":
		st, err = chromem.NewStorage(cfg.VectorStore.Collection)
		if err != nil {
			return fmt.Errorf("chromem store init failed: %w", err)
		}
	case "qdrant":
		q, err := qdrant.NewStorage(ctx, qdrant.Config{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			UseTLS:     cfg.VectorStore.Qdrant.UseTLS,
			Collection: cfg.VectorStore.Collection,
		})
		if err != nil {
			return fmt.Errorf("qdrant store init failed: %w", err)
		}
		closers = append(closers, q)
		st = q
	default:
		return fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	out.Done("")

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "gemini":
		g, err := geminigen.NewGenerator(ctx, cfg.GeneratorAPIKey, cfg.Generator.Model, cfg.Generator.SystemInstruction)
		if err != nil {
			return fmt.Errorf("gemini generator init failed: %w", err)
		}
		closers = append(closers, g)
		gen = g
	case "openai":
		g, err := openaigen.NewClient(openaigen.Config{
			BaseURL:           cfg.Generator.BaseURL,
			APIKey:            cfg.GeneratorAPIKey,
			Model:             cfg.Generator.Model,
			SystemInstruction: cfg.Generator.SystemInstruction,
		})
		if err != nil {
			return fmt.Errorf("openai generator init failed: %w", err)
		}
		gen = g
	default:
		return fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}

	svc := service.NewRAGService(ch, emb, st, summarizer.NewFrequencySummarizer(), service.Options{
		BatchSize:           cfg.Embedder.BatchSize,
		SummaryMaxSentences: cfg.Summary.MaxSentences,
		Reporter:            out,
	})
	report, err := svc.Ingest(ctx, cfg.DocumentPath)
	if err != nil {
		fmt.Fprintln(stdout)
		return fmt.Errorf("ingest failed: %w", err)
	}
	out.Summary(report.Summary)
	out.Banner("APPLICATION READY FOR INPUT")
	fmt.Fprintln(stdout)

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	sess := session.New(svc, gen, out, cfg.Retrieval.TopK, logger)
	if err := sess.Run(ctx, stdin); err != nil {
		log.Printf("session ended: %v", err)
	}
	return nil
}
