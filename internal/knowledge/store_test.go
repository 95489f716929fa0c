package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tamil-assistant/internal/chunker"
	"tamil-assistant/internal/domain"
	"tamil-assistant/internal/embedding/tfidf"
	"tamil-assistant/internal/extractor"
	"tamil-assistant/internal/summarizer"
	"tamil-assistant/internal/vectorstore"
	"tamil-assistant/internal/vectorstore/memory"
	"tamil-assistant/internal/vectorstore/sqlite"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// 200 runes without sentence or line boundaries: three 100/20 windows.
var schoolText = strings.Repeat("பள்ளி ", 33) + "பள"

// 349 runes after normalization: five 100/20 windows.
var templeText = strings.Repeat("கோவில் ", 50)

type fixture struct {
	docs    string
	persist string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{docs: filepath.Join(root, "documents"), persist: filepath.Join(root, "index")}
	require.NoError(t, os.MkdirAll(f.docs, 0o755))
	return f
}

func (f fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.docs, name), []byte(content), 0o644))
}

func (f fixture) store(storage vectorstore.Storage) *Store {
	return New(Options{
		DocumentsDir: f.docs,
		PersistDir:   f.persist,
		Extractor:    extractor.New(zerolog.Nop()),
		Chunker:      chunker.NewBoundaryChunker(100, 20),
		Embedder:     tfidf.NewEmbedder(),
		Storage:      storage,
		Summarizer:   summarizer.NewFrequencySummarizer(),
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return fixedNow },
	})
}

func (f fixture) sqliteStore(t *testing.T) *Store {
	s := f.store(sqlite.NewStorage(f.persist))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBuild_CountsDocumentsAndChunks(t *testing.T) {
	f := newFixture(t)
	f.write(t, "school.txt", schoolText)
	f.write(t, "temple.txt", templeText)
	s := f.sqliteStore(t)

	require.NoError(t, s.Build(context.Background(), true))

	md := s.Metadata()
	assert.Equal(t, 2, md.DocumentCount)
	assert.Equal(t, 8, md.ChunkCount)
	require.Len(t, md.Documents, 2)
	got := map[string]int{}
	for _, d := range md.Documents {
		got[d.Name] = d.Chunks
		assert.Equal(t, fixedNow, d.AddedAt)
	}
	assert.Equal(t, map[string]int{"school.txt": 3, "temple.txt": 5}, got)
	require.NotNil(t, md.LastUpdated)
	assert.True(t, s.Exists())

	persisted, err := readMetadata(filepath.Join(f.persist, metadataFile))
	require.NoError(t, err)
	assert.Equal(t, 8, persisted.ChunkCount)
}

func TestBuild_SkipsDocumentsWithoutText(t *testing.T) {
	f := newFixture(t)
	f.write(t, "english.txt", "only latin letters here")
	f.write(t, "temple.txt", templeText)
	s := f.sqliteStore(t)

	require.NoError(t, s.Build(context.Background(), true))
	assert.Equal(t, 1, s.Metadata().DocumentCount)
	assert.Equal(t, 5, s.Metadata().ChunkCount)
}

func TestBuild_NoChunksKeepsPriorIndex(t *testing.T) {
	f := newFixture(t)
	f.write(t, "temple.txt", templeText)
	s := f.sqliteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, true))

	require.NoError(t, os.Remove(filepath.Join(f.docs, "temple.txt")))
	err := s.Build(ctx, true)
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
	assert.Equal(t, domain.KindInput, domain.KindOf(err))
	assert.True(t, s.Exists())
	assert.Equal(t, 5, s.Metadata().ChunkCount)
}

func TestSearch_FindsRelevantDocument(t *testing.T) {
	f := newFixture(t)
	f.write(t, "school.txt", schoolText)
	f.write(t, "temple.txt", templeText)
	s := f.sqliteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, true))

	results, err := s.Search(ctx, "கோவில்", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)
	assert.Equal(t, "temple.txt", results[0].Source)
	assert.GreaterOrEqual(t, results[0].ChunkNumber, 1)
	assert.Equal(t, domain.LanguageTamil, results[0].Language)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearch_UnknownTermsReturnEmpty(t *testing.T) {
	f := newFixture(t)
	f.write(t, "temple.txt", templeText)
	s := f.sqliteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, true))

	results, err := s.Search(ctx, "hello", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_UnbuiltStoreIsEmpty(t *testing.T) {
	f := newFixture(t)
	s := f.sqliteStore(t)
	results, err := s.Search(context.Background(), "கோவில்", 3)
	assert.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

type failingStorage struct{ *memory.Storage }

func (failingStorage) Search(context.Context, []float32, int) ([]domain.ScoredChunk, error) {
	return nil, errors.New("index corrupted")
}

func (failingStorage) Count(context.Context) (int, error) {
	return 0, errors.New("count unsupported")
}

func TestSearch_StorageFailureIsClassified(t *testing.T) {
	f := newFixture(t)
	f.write(t, "temple.txt", templeText)
	s := f.store(failingStorage{memory.NewStorage()})
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, true))

	results, err := s.Search(ctx, "கோவில்", 3)
	require.Error(t, err)
	assert.Equal(t, domain.KindExternal, domain.KindOf(err))
	assert.Empty(t, results)

	assert.Nil(t, s.Stats(ctx).CollectionSize)
}

type failingUpsertStorage struct{ *sqlite.Storage }

func (failingUpsertStorage) Upsert(context.Context, []domain.Chunk, [][]float32) error {
	return context.Canceled
}

func TestBuild_FailedRebuildIsNotLoadable(t *testing.T) {
	f := newFixture(t)
	f.write(t, "temple.txt", templeText)
	ctx := context.Background()
	first := f.sqliteStore(t)
	require.NoError(t, first.Build(ctx, true))
	require.NoError(t, first.Close())

	broken := f.store(failingUpsertStorage{sqlite.NewStorage(f.persist)})
	err := broken.Build(ctx, true)
	require.Error(t, err)
	assert.Equal(t, domain.KindExternal, domain.KindOf(err))
	assert.False(t, broken.Loaded())
	assert.NoFileExists(t, filepath.Join(f.persist, manifestFile))
	assert.NoFileExists(t, filepath.Join(f.persist, embedderFile))
	require.NoError(t, broken.Close())

	next := f.sqliteStore(t)
	require.NoError(t, next.Build(ctx, false))
	assert.True(t, next.Loaded())
	st := next.Stats(ctx)
	assert.Equal(t, 5, st.ChunkCount)
	require.NotNil(t, st.CollectionSize)
	assert.Equal(t, 5, *st.CollectionSize)

	results, err := next.Search(ctx, "கோவில்", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestBuild_ExistingIndexIsLoadedWithoutRescan(t *testing.T) {
	f := newFixture(t)
	f.write(t, "temple.txt", templeText)
	ctx := context.Background()
	first := f.sqliteStore(t)
	require.NoError(t, first.Build(ctx, true))
	require.NoError(t, first.Close())

	require.NoError(t, os.RemoveAll(f.docs))
	second := f.sqliteStore(t)
	require.NoError(t, second.Build(ctx, false))
	assert.True(t, second.Loaded())
	assert.Equal(t, 5, second.Metadata().ChunkCount)

	results, err := second.Search(ctx, "கோவில்", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestLoad_FallsBackToRebuild(t *testing.T) {
	f := newFixture(t)
	f.write(t, "temple.txt", templeText)
	ctx := context.Background()
	first := f.sqliteStore(t)
	require.NoError(t, first.Build(ctx, true))
	require.NoError(t, first.Close())
	require.NoError(t, os.WriteFile(filepath.Join(f.persist, embedderFile), []byte("garbage"), 0o644))

	second := f.sqliteStore(t)
	require.NoError(t, second.Load(ctx))
	assert.True(t, second.Loaded())
	results, err := second.Search(ctx, "கோவில்", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.write(t, "school.txt", schoolText)
	s := f.sqliteStore(t)
	ctx := context.Background()
	assert.Nil(t, s.Stats(ctx).CollectionSize)

	require.NoError(t, s.Build(ctx, true))
	st := s.Stats(ctx)
	require.NotNil(t, st.CollectionSize)
	assert.Equal(t, 3, *st.CollectionSize)
	assert.Equal(t, 1, st.DocumentCount)
}

func TestClear_ResetsState(t *testing.T) {
	f := newFixture(t)
	f.write(t, "temple.txt", templeText)
	s := f.sqliteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, true))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.Exists())
	assert.False(t, s.Loaded())
	assert.Zero(t, s.Metadata().ChunkCount)
	assert.Nil(t, s.Metadata().LastUpdated)

	md, err := readMetadata(filepath.Join(f.persist, metadataFile))
	require.NoError(t, err)
	assert.Zero(t, md.DocumentCount)
	assert.Empty(t, md.Documents)
}

func TestNew_CorruptMetadataStartsEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.persist, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.persist, metadataFile), []byte("{broken"), 0o644))
	s := f.sqliteStore(t)
	assert.Zero(t, s.Metadata().DocumentCount)
	assert.Equal(t, fixedNow, s.Metadata().CreatedAt)
}

func TestMetadataFromChunks_OnlyFirstChunksListed(t *testing.T) {
	chunks := []domain.Chunk{
		{Source: "a.txt", Index: 0, Total: 2},
		{Source: "a.txt", Index: 1, Total: 2},
		{Source: "b.txt", Index: 0, Total: 1},
	}
	md := metadataFromChunks(domain.CorpusMetadata{}, chunks, fixedNow)
	assert.Equal(t, 2, md.DocumentCount)
	assert.Equal(t, 3, md.ChunkCount)
	assert.Equal(t, []domain.DocumentEntry{
		{Name: "a.txt", Chunks: 2, AddedAt: fixedNow},
		{Name: "b.txt", Chunks: 1, AddedAt: fixedNow},
	}, md.Documents)
	assert.Equal(t, fixedNow, md.CreatedAt)
}
