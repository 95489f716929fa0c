package knowledge

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"tamil-assistant/internal/domain"
)

const (
	metadataFile = "metadata.json"
	manifestFile = "index.json"
	embedderFile = "embedder.json"
)

// manifest records how the on-disk index was produced.
type manifest struct {
	Embedder   string    `json:"embedder"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	BuiltAt    time.Time `json:"built_at"`
}

// readMetadata returns the persisted metadata. A missing or corrupt file is
// reported as an error and the caller starts from an empty store.
func readMetadata(path string) (domain.CorpusMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CorpusMetadata{}, err
	}
	var md domain.CorpusMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return domain.CorpusMetadata{}, err
	}
	if md.Documents == nil {
		md.Documents = []domain.DocumentEntry{}
	}
	return md, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// metadataFromChunks recomputes the corpus summary from the chunks just indexed.
// Only the first chunk of each document contributes a per-document entry.
func metadataFromChunks(prev domain.CorpusMetadata, chunks []domain.Chunk, now time.Time) domain.CorpusMetadata {
	md := domain.CorpusMetadata{
		CreatedAt:  prev.CreatedAt,
		ChunkCount: len(chunks),
		Documents:  []domain.DocumentEntry{},
	}
	if md.CreatedAt.IsZero() {
		md.CreatedAt = now
	}
	sources := make(map[string]struct{})
	for _, c := range chunks {
		sources[c.Source] = struct{}{}
		if c.Index == 0 {
			md.Documents = append(md.Documents, domain.DocumentEntry{Name: c.Source, Chunks: c.Total, AddedAt: now})
		}
	}
	md.DocumentCount = len(sources)
	updated := now
	md.LastUpdated = &updated
	return md
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
