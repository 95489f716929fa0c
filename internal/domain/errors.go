package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at component boundaries.
type ErrorKind int

const (
	// KindExternal covers model, index and network failures.
	KindExternal ErrorKind = iota
	// KindIO covers missing files, permissions and decode failures.
	KindIO
	// KindInput covers empty queries, unsupported formats and empty corpora.
	KindInput
	// KindConfig covers missing or invalid configuration.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInput:
		return "input"
	case KindConfig:
		return "config"
	default:
		return "external"
	}
}

var (
	ErrNotBuilt          = errors.New("knowledge base not built")
	ErrNoDocuments       = errors.New("no documents produced any text")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrIndexMissing      = errors.New("index not found")
)

// Error is a classified error carrying the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// E wraps err with a kind and operation name. A nil err yields nil.
func E(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost classified error in the chain.
// Unclassified errors are treated as external.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindExternal
}
