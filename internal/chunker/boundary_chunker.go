package chunker

import (
	"strings"
	"time"

	"tamil-assistant/internal/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200

	// A cut may move back to a sentence end at most this far from the window end.
	sentenceReach = 100
	// Same for a line break.
	paragraphReach = 50
)

// BoundaryChunker splits text into fixed-size overlapping windows, preferring
// to cut right after a period or a newline close to the window end.
// Sizes are measured in characters, not bytes.
type BoundaryChunker struct {
	size    int
	overlap int
}

func NewBoundaryChunker(size, overlap int) *BoundaryChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &BoundaryChunker{size: size, overlap: overlap}
}

// Split returns the chunks of text in order. Empty input yields no chunks.
func (c *BoundaryChunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for start < n {
		end := start + c.size
		if end < n {
			if dot := lastIndex(runes, start, end, '.'); dot > start && end-dot < sentenceReach {
				end = dot + 1
			} else if nl := lastIndex(runes, start, end, '\n'); nl > start && end-nl < paragraphReach {
				end = nl + 1
			}
		}
		piece := strings.TrimSpace(string(runes[start:min(end, n)]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		// end is deliberately not clamped to n so the tail window terminates the loop
		if next := end - c.overlap; next > start {
			start = next
		} else {
			start = end
		}
	}
	return chunks
}

func lastIndex(runes []rune, from, to int, target rune) int {
	if to > len(runes) {
		to = len(runes)
	}
	for i := to - 1; i >= from; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// Tag turns the pieces of one document into chunks carrying source metadata.
func Tag(doc domain.DocumentRecord, pieces []string, now time.Time) []domain.Chunk {
	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{
			Text:       p,
			Source:     doc.Name,
			SourcePath: doc.Path,
			Index:      i,
			Total:      len(pieces),
			Language:   domain.LanguageTamil,
			CreatedAt:  now,
		}
	}
	return chunks
}
