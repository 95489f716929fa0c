package chunker

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tamil-assistant/internal/domain"
)

func TestSplit_Empty(t *testing.T) {
	c := NewBoundaryChunker(DefaultChunkSize, DefaultOverlap)
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   "))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := NewBoundaryChunker(DefaultChunkSize, DefaultOverlap)
	assert.Equal(t, []string{"வணக்கம் உலகம்."}, c.Split("வணக்கம் உலகம்."))
}

func TestSplit_FixedWindowsWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("அ", 200)
	c := NewBoundaryChunker(100, 20)
	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, 40, utf8.RuneCountInString(chunks[2]))
}

func TestSplit_CutsAfterPeriodNearWindowEnd(t *testing.T) {
	first := strings.Repeat("க", 59) + "."
	text := first + strings.Repeat("ம", 100)
	c := NewBoundaryChunker(100, 0)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, first, chunks[0])
}

func TestSplit_IgnoresPeriodFarFromWindowEnd(t *testing.T) {
	text := "க." + strings.Repeat("ம", 300)
	c := NewBoundaryChunker(150, 0)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 150, utf8.RuneCountInString(chunks[0]))
}

func TestSplit_FallsBackToNewline(t *testing.T) {
	first := strings.Repeat("க", 79) + "\n"
	text := first + strings.Repeat("ம", 100)
	c := NewBoundaryChunker(100, 0)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.TrimSpace(first), chunks[0])
}

func TestSplit_OverlapLargerThanChunkTerminates(t *testing.T) {
	text := strings.Repeat("அ", 50)
	c := NewBoundaryChunker(10, 30)
	chunks := c.Split(text)
	assert.Len(t, chunks, 5)
}

func TestSplit_CoversTextInOrder(t *testing.T) {
	text := strings.Repeat("இது ஒரு வாக்கியம். ", 120)
	text = strings.TrimSpace(text)
	c := NewBoundaryChunker(DefaultChunkSize, DefaultOverlap)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	pos := 0
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), DefaultChunkSize)
		idx := strings.Index(text[pos:], ch)
		require.GreaterOrEqual(t, idx, 0, "chunk not found in order")
		pos += idx + 1
	}
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
	assert.True(t, strings.HasPrefix(text, chunks[0]))
}

func TestSplit_Idempotent(t *testing.T) {
	text := strings.Repeat("ஒன்று. இரண்டு\n", 300)
	c := NewBoundaryChunker(DefaultChunkSize, DefaultOverlap)
	assert.Equal(t, c.Split(text), c.Split(text))
}

func TestTag(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := domain.DocumentRecord{Name: "plans.txt", Path: "/docs/plans.txt"}
	chunks := Tag(doc, []string{"a", "b", "c"}, now)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 3, ch.Total)
		assert.Equal(t, "plans.txt", ch.Source)
		assert.Equal(t, "/docs/plans.txt", ch.SourcePath)
		assert.Equal(t, domain.LanguageTamil, ch.Language)
		assert.Equal(t, now, ch.CreatedAt)
	}
}
