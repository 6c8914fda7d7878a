package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

// Config configures an OpenAI-compatible chat completion client.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	SystemInstruction string
}

// Client sends each prompt as a single chat completion with a fixed system
// message.
type Client struct {
	client *goopenai.Client
	model  string
	system string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", domain.ErrGeneration)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: goopenai.NewClientWithConfig(oc),
		model:  cfg.Model,
		system: cfg.SystemInstruction,
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var messages []goopenai.ChatCompletionMessage
	if c.system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: c.system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", domain.ErrGeneration)
	}
	answer := resp.Choices[0].Message.Content
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: openai returned an empty answer (finish reason %s)", domain.ErrGeneration, resp.Choices[0].FinishReason)
	}
	return answer, nil
}
