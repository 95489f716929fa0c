package extractor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"tamil-assistant/internal/domain"
)

var (
	// ErrToolNotFound is returned by ExecRunner when the program is not installed.
	ErrToolNotFound = errors.New("command not found in PATH")
	// ErrPDFToolNotFound is returned when pdftotext is not installed.
	ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")
)

// CommandRunner runs an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// readPDF extracts text page by page; pdftotext separates pages with form feeds.
func (e *Extractor) readPDF(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if errors.Is(err, ErrToolNotFound) {
		err = ErrPDFToolNotFound
	}
	if err != nil {
		return "", domain.E(domain.KindExternal, "read pdf", err)
	}
	return joinPages(string(out)), nil
}

func joinPages(raw string) string {
	pages := strings.Split(raw, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}
