package vectorstore

import (
	"context"
	"sort"

	"tamil-assistant/internal/domain"
)

// Storage persists chunk vectors and supports similarity search.
type Storage interface {
	// Open attaches to a previously written index. It returns
	// domain.ErrIndexMissing when there is nothing to attach to.
	Open(ctx context.Context) error
	// Reset discards any existing vectors and prepares an empty index.
	Reset(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]domain.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	// Drop removes the index entirely, including any remote collection.
	Drop(ctx context.Context) error
	Close() error
}

// FileBacked is implemented by stores that keep their index in a single file
// inside the persistence directory.
type FileBacked interface {
	IndexFile() string
}

// Dot returns the dot product of a and b over their common length.
// Vectors are L2-normalized, so this is their cosine similarity.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// TopK returns the indexes of the k highest scores, best first.
// Ties keep insertion order.
func TopK(scores []float64, k int) []int {
	idxs := make([]int, len(scores))
	for i := range scores {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k < len(idxs) {
		idxs = idxs[:k]
	}
	return idxs
}
