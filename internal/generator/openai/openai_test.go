package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, system string, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c, err := NewClient(Config{BaseURL: ts.URL + "/v1", APIKey: "test-key", Model: "gpt-4o-mini", SystemInstruction: system})
	require.NoError(t, err)
	return c
}

func TestGenerateSendsSystemAndUserMessages(t *testing.T) {
	c := newTestClient(t, "be brief", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "Question:\nwhy?", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[
			{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Because."}}
		]}`))
	})

	got, err := c.Generate(context.Background(), "Question:\nwhy?")
	require.NoError(t, err)
	assert.Equal(t, "Because.", got)
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"rate_limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_error"}}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`},
		{"no_choices", http.StatusOK, `{"id":"c1","choices":[]}`},
		{"empty_answer", http.StatusOK, `{"id":"c1","choices":[{"index":0,"finish_reason":"content_filter","message":{"role":"assistant","content":""}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Generate(context.Background(), "p")
			assert.ErrorIs(t, err, domain.ErrGeneration)
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
