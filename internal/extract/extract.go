// Package extract pulls ordered paragraph text out of contract and template files.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Extractor returns the paragraphs of a document in order. An empty document
// yields an empty slice and a nil error; unreadable files yield *ExtractionError.
type Extractor interface {
	Extract(path string) ([]string, error)
}

// ExtractionError reports a corrupt or unsupported file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Causes wrapped by ExtractionError.
var (
	errNotUTF8    = errors.New("file is not valid UTF-8 text")
	errNoDocument = errors.New("word/document.xml not found")
	errNoPages    = errors.New("no readable pages")
)

// Registry dispatches on file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the plain text, DOCX and PDF extractors.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(&PlainText{}, ".txt", ".md", ".text")
	r.Register(&DOCX{}, ".docx")
	r.Register(&PDF{}, ".pdf")
	return r
}

// Register binds an extractor to one or more extensions.
func (r *Registry) Register(e Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Extensions lists the registered extensions.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}

// Extract implements Extractor.
func (r *Registry) Extract(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("unsupported file type %q", ext)}
	}
	return e.Extract(path)
}

// cleanParagraphs trims paragraphs and drops blank ones.
func cleanParagraphs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
