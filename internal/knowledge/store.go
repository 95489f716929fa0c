// Package knowledge builds, persists, loads and queries the retrieval index
// over the document corpus. A Store is not safe for concurrent use.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tamil-assistant/internal/chunker"
	"tamil-assistant/internal/domain"
	"tamil-assistant/internal/normalizer"
	"tamil-assistant/internal/vectorstore"
)

// QueryPrefix is prepended to every query before it is embedded.
const QueryPrefix = "தமிழ் ஆவணங்கள்: "

// DefaultTopK is the number of neighbours requested by callers that do not care.
const DefaultTopK = 3

// Options wires a Store to its collaborators.
type Options struct {
	DocumentsDir string
	PersistDir   string
	Extractor    domain.Extractor
	Chunker      domain.Chunker
	Embedder     domain.Embedder
	Storage      vectorstore.Storage
	Summarizer   domain.Summarizer
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Stats is the metadata plus the live index size, when it can be read.
type Stats struct {
	domain.CorpusMetadata
	CollectionSize *int `json:"collection_size"`
}

type Store struct {
	docsDir    string
	persistDir string
	extractor  domain.Extractor
	chunker    domain.Chunker
	embedder   domain.Embedder
	storage    vectorstore.Storage
	summarizer domain.Summarizer
	log        zerolog.Logger
	now        func() time.Time

	metadata domain.CorpusMetadata
	loaded   bool
}

// New creates a store and reads any persisted metadata. Nothing is loaded
// into the index until Build or Load is called.
func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Store{
		docsDir:    opts.DocumentsDir,
		persistDir: opts.PersistDir,
		extractor:  opts.Extractor,
		chunker:    opts.Chunker,
		embedder:   opts.Embedder,
		storage:    opts.Storage,
		summarizer: opts.Summarizer,
		log:        opts.Logger.With().Str("component", "knowledge").Logger(),
		now:        opts.Now,
	}
	md, err := readMetadata(s.metadataPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Msg("metadata unreadable, starting empty")
		}
		md = domain.NewCorpusMetadata(s.now())
	}
	s.metadata = md
	return s
}

func (s *Store) metadataPath() string { return filepath.Join(s.persistDir, metadataFile) }

// Metadata returns the current corpus metadata.
func (s *Store) Metadata() domain.CorpusMetadata { return s.metadata }

// Loaded reports whether an index is attached and searchable.
func (s *Store) Loaded() bool { return s.loaded }

// Exists reports whether a recognized index file is present on disk.
func (s *Store) Exists() bool {
	if fb, ok := s.storage.(vectorstore.FileBacked); ok && fileExists(fb.IndexFile()) {
		return true
	}
	return fileExists(filepath.Join(s.persistDir, manifestFile))
}

// Build indexes the corpus. When an index already exists and force is false
// the existing index is loaded instead.
func (s *Store) Build(ctx context.Context, force bool) error {
	if s.Exists() && !force {
		s.log.Info().Msg("index exists, loading")
		return s.Load(ctx)
	}

	chunks, corpus, err := s.collect(ctx)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		s.log.Warn().Str("dir", s.docsDir).Msg("no document produced any text, keeping previous index")
		return domain.E(domain.KindInput, "build", domain.ErrNoDocuments)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	if err := s.embedder.Prepare(ctx, texts); err != nil {
		return domain.E(domain.KindExternal, "build", fmt.Errorf("prepare embedder: %w", err))
	}
	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vec, err := s.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return domain.E(domain.KindExternal, "build", fmt.Errorf("embed %s: %w", chunks[i].ID, err))
		}
		vectors[i] = vec
	}
	dim := s.embedder.Dimension()
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}

	s.loaded = false
	// Until the new index is complete nothing on disk may describe it as loadable.
	if err := s.discardIndexState(); err != nil {
		return domain.E(domain.KindIO, "build", err)
	}
	if err := s.storage.Reset(ctx, dim); err != nil {
		return domain.E(domain.KindExternal, "build", fmt.Errorf("reset index: %w", err))
	}
	if err := s.storage.Upsert(ctx, chunks, vectors); err != nil {
		return domain.E(domain.KindExternal, "build", fmt.Errorf("write index: %w", err))
	}
	if err := s.persistIndexState(dim, len(chunks)); err != nil {
		return domain.E(domain.KindIO, "build", err)
	}
	s.loaded = true

	s.metadata = metadataFromChunks(s.metadata, chunks, s.now())
	if err := writeJSON(s.metadataPath(), s.metadata); err != nil {
		return domain.E(domain.KindIO, "build", fmt.Errorf("write metadata: %w", err))
	}

	ev := s.log.Info().
		Int("documents", s.metadata.DocumentCount).
		Int("chunks", s.metadata.ChunkCount).
		Str("embedder", s.embedder.Name())
	if s.summarizer != nil {
		if summary, err := s.summarizer.Summarize(corpus, 2); err == nil && summary != "" {
			ev = ev.Str("summary", summary)
		}
	}
	ev.Msg("knowledge base built")
	return nil
}

// collect extracts, normalizes and chunks every supported document.
// Documents that yield no text are skipped with a warning.
func (s *Store) collect(ctx context.Context) ([]domain.Chunk, string, error) {
	docs, err := s.extractor.List(s.docsDir)
	if err != nil {
		return nil, "", domain.E(domain.KindIO, "build", err)
	}
	now := s.now()
	var (
		chunks []domain.Chunk
		corpus strings.Builder
	)
	for _, doc := range docs {
		raw, err := s.extractor.Extract(ctx, doc.Path)
		if err != nil {
			s.log.Warn().Err(err).Str("file", doc.Name).Msg("extraction failed")
		}
		text := normalizer.Normalize(raw)
		if text == "" {
			s.log.Warn().Str("file", doc.Name).Msg("no text extracted, skipping")
			continue
		}
		pieces := s.chunker.Split(text)
		tagged := chunker.Tag(doc, pieces, now)
		for i := range tagged {
			tagged[i].ID = fmt.Sprintf("%s_%d", doc.Name, tagged[i].Index)
		}
		chunks = append(chunks, tagged...)
		corpus.WriteString(text)
		corpus.WriteString("\n")
		s.log.Debug().Str("file", doc.Name).Int("chunks", len(tagged)).Msg("document chunked")
	}
	return chunks, corpus.String(), nil
}

func (s *Store) persistIndexState(dim, count int) error {
	if snap, ok := s.embedder.(domain.Snapshotter); ok {
		data, err := snap.Snapshot()
		if err != nil {
			return fmt.Errorf("snapshot embedder: %w", err)
		}
		if err := os.MkdirAll(s.persistDir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(s.persistDir, embedderFile), data, 0o644); err != nil {
			return fmt.Errorf("write embedder state: %w", err)
		}
	}
	m := manifest{Embedder: s.embedder.Name(), Dimension: dim, ChunkCount: count, BuiltAt: s.now()}
	if err := writeJSON(filepath.Join(s.persistDir, manifestFile), m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (s *Store) discardIndexState() error {
	for _, name := range []string{manifestFile, embedderFile} {
		if err := os.Remove(filepath.Join(s.persistDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("discard %s: %w", name, err)
		}
	}
	return nil
}

// Load attaches to the persisted index. Any failure falls back to a full rebuild.
func (s *Store) Load(ctx context.Context) error {
	if err := s.open(ctx); err != nil {
		s.log.Warn().Err(err).Msg("loading index failed, rebuilding")
		return s.Build(ctx, true)
	}
	s.loaded = true
	s.log.Info().Int("chunks", s.metadata.ChunkCount).Msg("knowledge base loaded")
	return nil
}

func (s *Store) open(ctx context.Context) error {
	var m manifest
	if err := readJSON(filepath.Join(s.persistDir, manifestFile), &m); err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if m.Embedder != s.embedder.Name() {
		return fmt.Errorf("index built with embedder %q, configured %q", m.Embedder, s.embedder.Name())
	}
	if snap, ok := s.embedder.(domain.Snapshotter); ok {
		data, err := os.ReadFile(filepath.Join(s.persistDir, embedderFile))
		if err != nil {
			return fmt.Errorf("read embedder state: %w", err)
		}
		if err := snap.Restore(data); err != nil {
			return fmt.Errorf("restore embedder state: %w", err)
		}
	}
	return s.storage.Open(ctx)
}

// Search returns the k nearest chunks for query. An unloaded store yields an
// empty result, as does a query that shares no terms with the indexed corpus.
// Failures are logged and returned with an empty result.
func (s *Store) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if !s.loaded {
		s.log.Info().Msg("knowledge base not loaded, search skipped")
		return []domain.SearchResult{}, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}
	vec, err := s.embedder.Embed(ctx, QueryPrefix+query)
	if err != nil {
		s.log.Error().Err(err).Msg("embedding query failed")
		return []domain.SearchResult{}, domain.E(domain.KindExternal, "search", err)
	}
	if isZero(vec) {
		s.log.Debug().Str("query", query).Msg("query shares no terms with the corpus")
		return []domain.SearchResult{}, nil
	}
	hits, err := s.storage.Search(ctx, vec, k)
	if err != nil {
		s.log.Error().Err(err).Msg("index search failed")
		return []domain.SearchResult{}, domain.E(domain.KindExternal, "search", err)
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		source := h.Chunk.Source
		if source == "" {
			source = "Unknown"
		}
		lang := h.Chunk.Language
		if lang == "" {
			lang = domain.LanguageTamil
		}
		results = append(results, domain.SearchResult{
			Content:     h.Chunk.Text,
			Source:      source,
			ChunkNumber: h.Chunk.Index + 1,
			Score:       h.Score,
			Language:    lang,
		})
	}
	return results, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Stats returns the metadata and, when an index is loaded, its live size.
func (s *Store) Stats(ctx context.Context) Stats {
	st := Stats{CorpusMetadata: s.metadata}
	if !s.loaded {
		return st
	}
	n, err := s.storage.Count(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("collection size unavailable")
		return st
	}
	st.CollectionSize = &n
	return st
}

// Clear wipes the persistence directory and resets the metadata. When the
// directory cannot be removed the metadata is left as it was.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Drop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("dropping index failed")
	}
	if err := s.storage.Close(); err != nil {
		s.log.Debug().Err(err).Msg("closing index failed")
	}
	s.loaded = false
	if err := os.RemoveAll(s.persistDir); err != nil {
		s.log.Error().Err(err).Str("dir", s.persistDir).Msg("clearing index directory failed")
		return domain.E(domain.KindIO, "clear", err)
	}
	if err := os.MkdirAll(s.persistDir, 0o755); err != nil {
		return domain.E(domain.KindIO, "clear", err)
	}
	s.metadata = domain.NewCorpusMetadata(s.now())
	if err := writeJSON(s.metadataPath(), s.metadata); err != nil {
		return domain.E(domain.KindIO, "clear", err)
	}
	s.log.Info().Msg("knowledge base cleared")
	return nil
}

// Close releases the index handle.
func (s *Store) Close() error {
	s.loaded = false
	return s.storage.Close()
}
