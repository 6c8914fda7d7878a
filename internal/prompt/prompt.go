package prompt

import (
	"strings"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

const instruction = "Using the context provided, answer the question as accurately as possible."

// Build renders the generation prompt for query grounded in the retrieved
// chunks. Chunk texts are joined with a single space in rank order; an empty
// result yields an empty context section.
func Build(query string, result domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\nContext:\n")
	b.WriteString(strings.Join(result.Texts(), " "))
	b.WriteString("\n\n")
	b.WriteString(instruction)
	return b.String()
}
