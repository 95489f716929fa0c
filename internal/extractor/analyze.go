package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"tamil-assistant/internal/domain"
	"tamil-assistant/internal/normalizer"
)

const sampleRunes = 200

// Analysis reports size and content statistics of a single document.
type Analysis struct {
	FileName       string
	OriginalSize   int
	CleanedSize    int
	ChunkCount     int
	TamilCharCount int
	WordCount      int
	Sample         string
	Summary        string
}

// Analyzer computes document statistics using the indexing pipeline.
type Analyzer struct {
	extractor  domain.Extractor
	chunker    domain.Chunker
	summarizer domain.Summarizer
}

func NewAnalyzer(ex domain.Extractor, ch domain.Chunker, sum domain.Summarizer) *Analyzer {
	return &Analyzer{extractor: ex, chunker: ch, summarizer: sum}
}

// Analyze extracts, normalizes and chunks path and summarizes the result.
func (a *Analyzer) Analyze(ctx context.Context, path string) (Analysis, error) {
	raw, err := a.extractor.Extract(ctx, path)
	if err != nil {
		return Analysis{}, err
	}
	cleaned := normalizer.Normalize(raw)
	res := Analysis{
		FileName:       filepath.Base(path),
		OriginalSize:   len([]rune(raw)),
		CleanedSize:    len([]rune(cleaned)),
		ChunkCount:     len(a.chunker.Split(cleaned)),
		TamilCharCount: normalizer.TamilRuneCount(cleaned),
		WordCount:      len(strings.Fields(cleaned)),
		Sample:         sample(cleaned),
	}
	if a.summarizer != nil {
		if summary, err := a.summarizer.Summarize(cleaned, 3); err == nil {
			res.Summary = summary
		}
	}
	return res, nil
}

func sample(s string) string {
	r := []rune(s)
	if len(r) <= sampleRunes {
		return s
	}
	return string(r[:sampleRunes]) + "..."
}
