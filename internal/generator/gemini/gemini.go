package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Generator answers prompts with a Gemini model. One request per call,
// no retries.
type Generator struct {
	client *genai.Client
	model  contentGenerator
}

func NewGenerator(ctx context.Context, apiKey, model, systemInstruction string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrGeneration)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", domain.ErrGeneration, err)
	}
	m := client.GenerativeModel(model)
	if systemInstruction != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))
	}
	return &Generator{client: client, model: m}, nil
}

// Generate returns the text of the first candidate.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", domain.ErrGeneration, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", domain.ErrGeneration)
	}
	cand := resp.Candidates[0]
	var parts []string
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				parts = append(parts, string(text))
			}
		}
	}
	answer := strings.Join(parts, "")
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: gemini returned an empty answer (finish reason %s)", domain.ErrGeneration, cand.FinishReason)
	}
	return answer, nil
}

func (g *Generator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
