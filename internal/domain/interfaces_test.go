package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalResultTexts(t *testing.T) {
	r := RetrievalResult{
		{Chunk: Chunk{Text: "first"}, Score: 0.9},
		{Chunk: Chunk{Text: "second"}, Score: 0.4},
	}
	assert.Equal(t, []string{"first", "second"}, r.Texts())
	assert.Empty(t, RetrievalResult(nil).Texts())
}
