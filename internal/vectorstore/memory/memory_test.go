package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tamil-assistant/internal/domain"
)

func TestStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	assert.ErrorIs(t, s.Open(ctx), domain.ErrIndexMissing)

	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Open(ctx))
	chunks := []domain.Chunk{{ID: "a", Text: "ஒன்று"}, {ID: "b", Text: "இரண்டு"}}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float32{{1, 0}, {0, 1}}))

	hits, err := s.Search(ctx, []float32{0.2, 0.98}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Chunk.ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Drop(ctx))
	assert.ErrorIs(t, s.Open(ctx), domain.ErrIndexMissing)
}

func TestStorage_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Reset(ctx, 2))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{ID: "a"}}, nil))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{ID: "a"}}, [][]float32{{1, 2, 3}}))
	assert.Error(t, s.Reset(ctx, 0))
}
