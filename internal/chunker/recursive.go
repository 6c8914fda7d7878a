package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

// boundaries lists the preferred cut points, strongest first. A cut is made
// right after the separator.
var boundaries = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// Recursive splits text into windows of at most size runes that overlap by
// overlap runes, cutting at the strongest structural boundary available.
type Recursive struct {
	size    int
	overlap int
}

// NewRecursive validates the window parameters.
func NewRecursive(size, overlap int) (*Recursive, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrChunk, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrChunk, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrChunk, overlap, size)
	}
	return &Recursive{size: size, overlap: overlap}, nil
}

// Chunk concatenates the pages of one document and splits the result.
func (c *Recursive) Chunk(docs []domain.Document) []domain.Chunk {
	if len(docs) == 0 {
		return nil
	}
	var text []rune
	pageStarts := make([]int, len(docs))
	for i, d := range docs {
		pageStarts[i] = len(text)
		text = append(text, []rune(d.Content)...)
	}
	n := len(text)
	if n == 0 {
		return nil
	}

	path := docs[0].Path
	docID := hashString(path)
	var chunks []domain.Chunk
	start := 0
	for idx := 0; ; idx++ {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.cut(text, start, end)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         docID + ":" + strconv.Itoa(idx),
			DocumentID: docID,
			Path:       path,
			Index:      idx,
			Start:      start,
			Page:       pageAt(pageStarts, start),
			Text:       string(text[start:end]),
		})
		if end == n {
			break
		}
		// end-start > overlap always holds, so the window moves forward.
		start = end - c.overlap
	}
	return chunks
}

// cut returns the end of the window [start, end). Boundaries that would
// leave a chunk no longer than max(overlap, size/2) are ignored.
func (c *Recursive) cut(text []rune, start, end int) int {
	minLen := max(c.overlap, c.size/2)
	for _, level := range boundaries {
		for i := end; i > start+minLen; i-- {
			for _, sep := range level {
				if endsWith(text[:i], sep) {
					return i
				}
			}
		}
	}
	return end
}

func endsWith(text []rune, sep string) bool {
	s := []rune(sep)
	if len(text) < len(s) {
		return false
	}
	tail := text[len(text)-len(s):]
	for i := range s {
		if tail[i] != s[i] {
			return false
		}
	}
	return true
}

func pageAt(pageStarts []int, offset int) int {
	return sort.Search(len(pageStarts), func(i int) bool { return pageStarts[i] > offset }) - 1
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
