package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbed_RequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestPrepare_EmptyCorpus(t *testing.T) {
	assert.Error(t, NewEmbedder().Prepare(context.Background(), nil))
}

func TestEmbed_NormalizedAndRanksRelevantDocument(t *testing.T) {
	ctx := context.Background()
	corpus := []string{
		"சனிக்கிழமை சந்தைக்கு செல்ல வேண்டும்",
		"ஞாயிற்றுக்கிழமை கோவிலுக்கு போக வேண்டும்",
	}
	e := NewEmbedder()
	require.NoError(t, e.Prepare(ctx, corpus))

	d0, err := e.Embed(ctx, corpus[0])
	require.NoError(t, err)
	d1, err := e.Embed(ctx, corpus[1])
	require.NoError(t, err)
	q, err := e.Embed(ctx, "கோவிலுக்கு எப்போது")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, math.Sqrt(dot(d0, d0)), 1e-6)
	assert.Greater(t, dot(q, d1), dot(q, d0))
	assert.Equal(t, e.Dimension(), len(q))
}

func TestEmbed_UnknownTokensGiveZeroVector(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	require.NoError(t, e.Prepare(ctx, []string{"வணக்கம்"}))
	v, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Zero(t, dot(v, v))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	require.NoError(t, e.Prepare(ctx, []string{"ஒன்று இரண்டு", "இரண்டு மூன்று"}))
	data, err := e.Snapshot()
	require.NoError(t, err)

	restored := NewEmbedder()
	require.NoError(t, restored.Restore(data))
	want, _ := e.Embed(ctx, "இரண்டு மூன்று")
	got, err := restored.Embed(ctx, "இரண்டு மூன்று")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRestore_Invalid(t *testing.T) {
	assert.Error(t, NewEmbedder().Restore([]byte(`{"terms":["a"],"idf":[]}`)))
	assert.Error(t, NewEmbedder().Restore([]byte(`not json`)))
}
