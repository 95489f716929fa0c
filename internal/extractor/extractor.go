// Package extractor turns supported document files into raw text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"tamil-assistant/internal/domain"
)

// SupportedExtensions lists the file types the knowledge base indexes.
var SupportedExtensions = []string{".txt", ".pdf", ".docx", ".md"}

// Ensure Extractor implements the interface.
var _ domain.Extractor = (*Extractor)(nil)

// Extractor dispatches on file extension.
type Extractor struct {
	runner CommandRunner
	logger zerolog.Logger
}

// New creates an extractor that shells out to pdftotext for PDFs.
func New(logger zerolog.Logger) *Extractor {
	return NewWithRunner(ExecRunner{}, logger)
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner, logger zerolog.Logger) *Extractor {
	return &Extractor{runner: runner, logger: logger.With().Str("component", "extractor").Logger()}
}

// Supported reports whether path has an indexable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// List returns the supported documents directly inside dir, newest first.
// A missing directory yields an empty list.
func (e *Extractor) List(dir string) ([]domain.DocumentRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.E(domain.KindIO, "list documents", err)
	}
	var docs []domain.DocumentRecord
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			e.logger.Warn().Err(err).Str("file", entry.Name()).Msg("cannot stat document")
			continue
		}
		docs = append(docs, domain.DocumentRecord{
			Name:       entry.Name(),
			Path:       filepath.Join(dir, entry.Name()),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			Extension:  strings.ToLower(filepath.Ext(entry.Name())),
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].ModifiedAt.After(docs[j].ModifiedAt) })
	return docs, nil
}

// Extract returns the raw text of path. On any failure the text is empty
// and the error is classified; callers are expected to log and move on.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch ext {
	case ".txt", ".md":
		text, err = readText(path)
	case ".pdf":
		text, err = e.readPDF(ctx, path)
	case ".docx":
		text, err = readDOCX(path)
	default:
		err = domain.E(domain.KindInput, "extract", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext))
	}
	if err != nil {
		e.logger.Debug().Err(err).Str("file", filepath.Base(path)).Msg("extraction failed")
		return "", err
	}
	return text, nil
}
