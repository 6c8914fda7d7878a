package chromem

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage("")
	require.NoError(t, err)
	return s
}

func chunks(n int) []domain.Chunk {
	out := make([]domain.Chunk, n)
	for i := range out {
		out[i] = domain.Chunk{
			ID:         fmt.Sprintf("abcd:%d", i),
			DocumentID: "abcd",
			Path:       "doc.txt",
			Index:      i,
			Start:      i * 100,
			Page:       i / 2,
			Text:       fmt.Sprintf("chunk %d", i),
		}
	}
	return out
}

func TestQueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)
	require.NoError(t, s.Add(ctx, chunks(3), [][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
	}))
	assert.Equal(t, 3, s.Count())

	res, err := s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 1, res[0].Chunk.Index)
	assert.Equal(t, 2, res[1].Chunk.Index)
	assert.InDelta(t, 1.0, res[0].Score, 1e-5)
	assert.InDelta(t, 0.7071, res[1].Score, 1e-3)
	assert.NotEmpty(t, res[0].ID)
}

func TestQueryRestoresChunk(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)
	in := chunks(4)
	require.NoError(t, s.Add(ctx, in, [][]float32{{1, 0}, {0, 1}, {1, 1}, {1, 2}}))

	res, err := s.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, in[1], res[0].Chunk)
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)
	vecs := make([][]float32, 8)
	for i := range vecs {
		vecs[i] = []float32{3, 4}
	}
	require.NoError(t, s.Add(ctx, chunks(4), vecs[:4]))
	require.NoError(t, s.Add(ctx, chunks(8)[4:], vecs[4:]))

	res, err := s.Query(ctx, []float32{3, 4}, 5)
	require.NoError(t, err)
	require.Len(t, res, 5)
	for i, r := range res {
		assert.Equal(t, i, r.Chunk.Index)
	}
}

func TestQueryLimits(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	res, err := s.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err, "empty store")
	assert.Empty(t, res)

	require.NoError(t, s.Add(ctx, chunks(2), [][]float32{{1, 0}, {0, 1}}))

	res, err = s.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err, "k above count")
	assert.Len(t, res, 2)

	res, err = s.Query(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = s.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestAddRejectsBadBatches(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	assert.ErrorIs(t, s.Add(ctx, chunks(2), [][]float32{{1, 0}}), domain.ErrStore)
	assert.ErrorIs(t, s.Add(ctx, chunks(2), [][]float32{{1, 0}, {1}}), domain.ErrStore)
	assert.Zero(t, s.Count())

	require.NoError(t, s.Add(ctx, chunks(1), [][]float32{{1, 0}}))
	assert.ErrorIs(t, s.Add(ctx, chunks(1), [][]float32{{1, 0, 1}}), domain.ErrStore)
	assert.Equal(t, 1, s.Count())
}
