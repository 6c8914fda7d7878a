package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

// DocumentConfig tells where the source document path comes from.
type DocumentConfig struct {
	PathEnv string `yaml:"path_env" validate:"required"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type         string `yaml:"type" validate:"oneof=recursive"`
	ChunkSize    int    `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int    `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string `yaml:"type" validate:"oneof=tfidf gemini openai"`
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BatchSize int    `yaml:"batch_size" validate:"gt=0"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host   string `yaml:"host" validate:"required"`
	Port   int    `yaml:"port" validate:"gt=0,lte=65535"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string       `yaml:"type" validate:"oneof=memory chromem qdrant"`
	Collection string       `yaml:"collection" validate:"required"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// RetrievalConfig controls how many chunks are handed to the generator.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" validate:"gt=0"`
}

// GeneratorConfig selects and configures the generative model.
type GeneratorConfig struct {
	Type              string `yaml:"type" validate:"oneof=gemini openai"`
	Model             string `yaml:"model" validate:"required"`
	BaseURL           string `yaml:"base_url,omitempty"`
	APIKeyEnv         string `yaml:"api_key_env" validate:"required"`
	SystemInstruction string `yaml:"system_instruction" validate:"required"`
}

// SummaryConfig configures the document overview printed after ingestion.
type SummaryConfig struct {
	MaxSentences int `yaml:"max_sentences" validate:"gte=0"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Document    DocumentConfig    `yaml:"document"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Summary     SummaryConfig     `yaml:"summary"`

	// Filled by Resolve from the environment, never from the file.
	DocumentPath    string `yaml:"-"`
	GeneratorAPIKey string `yaml:"-"`
	EmbedderAPIKey  string `yaml:"-"`
}

const defaultSystemInstruction = "You are a reviewing a document and answering queries based off the reviewed document"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads a config from path. An empty path or a missing file yields the
// defaults. ${VAR} references in the file are expanded from the environment.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfig, path, err)
		default:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrConfig, path, err)
			}
		}
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	return nil
}

// Resolve reads the required secrets and the document path from the
// environment. A non-empty documentArg takes precedence over the env var.
func (c *AppConfig) Resolve(documentArg string) error {
	c.GeneratorAPIKey = os.Getenv(c.Generator.APIKeyEnv)
	if c.GeneratorAPIKey == "" {
		return fmt.Errorf("%w: %s environment variable not set", domain.ErrConfig, c.Generator.APIKeyEnv)
	}

	c.DocumentPath = documentArg
	if c.DocumentPath == "" {
		c.DocumentPath = os.Getenv(c.Document.PathEnv)
	}
	if c.DocumentPath == "" {
		return fmt.Errorf("%w: %s environment variable not set", domain.ErrConfig, c.Document.PathEnv)
	}

	if c.Embedder.APIKeyEnv != "" {
		c.EmbedderAPIKey = os.Getenv(c.Embedder.APIKeyEnv)
		if c.EmbedderAPIKey == "" {
			return fmt.Errorf("%w: %s environment variable not set", domain.ErrConfig, c.Embedder.APIKeyEnv)
		}
	}
	return nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Document:    DocumentConfig{PathEnv: "DOCUMENT_PATH"},
		Chunker:     ChunkerConfig{Type: "recursive", ChunkSize: 3000, ChunkOverlap: 200},
		Embedder:    EmbedderConfig{Type: "tfidf", BatchSize: 32},
		VectorStore: VectorStoreConfig{Type: "memory", Collection: "rag_demo", Qdrant: QdrantConfig{Host: "localhost", Port: 6334}},
		Retrieval:   RetrievalConfig{TopK: 10},
		Generator:   GeneratorConfig{Type: "gemini", SystemInstruction: defaultSystemInstruction},
		Summary:     SummaryConfig{MaxSentences: 3},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	switch cfg.Embedder.Type {
	case "gemini":
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-004"
		}
		if cfg.Embedder.APIKeyEnv == "" {
			cfg.Embedder.APIKeyEnv = "GOOGLE_API_KEY"
		}
	case "openai":
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.APIKeyEnv == "" {
			cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.BaseURL == "" {
			cfg.Embedder.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}

	switch cfg.Generator.Type {
	case "gemini":
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "gemini-2.0-flash"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "GOOGLE_API_KEY"
		}
	case "openai":
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "gpt-4o-mini"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Generator.BaseURL == "" {
			cfg.Generator.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.Generator.SystemInstruction == "" {
		cfg.Generator.SystemInstruction = defaultSystemInstruction
	}
}
