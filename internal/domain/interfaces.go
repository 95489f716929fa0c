package domain

import (
	"context"
	"time"
)

// LanguageTamil is the language tag attached to every indexed chunk.
const LanguageTamil = "ta"

// DocumentRecord describes a source file discovered by a directory scan.
type DocumentRecord struct {
	Name       string
	Path       string
	Size       int64
	ModifiedAt time.Time
	Extension  string
}

// Chunk is a contiguous slice of normalized document text used for indexing.
type Chunk struct {
	ID         string
	Text       string
	Source     string
	SourcePath string
	Index      int
	Total      int
	Language   string
	CreatedAt  time.Time
}

// ScoredChunk is a chunk returned by a vector index together with its similarity.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// SearchResult is a retrieval hit with provenance, as presented to callers.
type SearchResult struct {
	Content     string  `json:"content"`
	Source      string  `json:"source"`
	ChunkNumber int     `json:"chunk"`
	Score       float64 `json:"score"`
	Language    string  `json:"language"`
}

// DocumentEntry is the per-document line of the corpus metadata.
type DocumentEntry struct {
	Name    string    `json:"name"`
	Chunks  int       `json:"chunks"`
	AddedAt time.Time `json:"added_at"`
}

// CorpusMetadata is the persisted summary of the knowledge base.
type CorpusMetadata struct {
	CreatedAt     time.Time       `json:"created_at"`
	LastUpdated   *time.Time      `json:"last_updated"`
	DocumentCount int             `json:"document_count"`
	ChunkCount    int             `json:"chunk_count"`
	Documents     []DocumentEntry `json:"documents"`
}

// NewCorpusMetadata returns the empty metadata of a fresh knowledge base.
func NewCorpusMetadata(now time.Time) CorpusMetadata {
	return CorpusMetadata{CreatedAt: now, Documents: []DocumentEntry{}}
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chunker splits normalized text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// Extractor turns a supported file into raw text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
	List(dir string) ([]DocumentRecord, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Snapshotter is implemented by embedders whose prepared state must be
// persisted next to the index to make it reloadable.
type Snapshotter interface {
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
