// Package loader turns uploaded files and web pages into plain text.
//
// Every supported format has an Extractor. Unknown file extensions are
// treated as plain text rather than rejected.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies how a document's text is extracted.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ErrEmptyDocument is returned when an extractor finds no text at all in
// a binary format (for example a scanned PDF).
var ErrEmptyDocument = errors.New("no extractable text")

var extensions = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
}

// DetectFormat maps a file name onto a Format by extension. Unrecognized
// extensions fall back to FormatText.
func DetectFormat(name string) Format {
	if f, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}
	return FormatText
}

// IsSupported reports whether name has a recognized extension.
func IsSupported(name string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// File is an in-memory upload.
type File struct {
	Name    string
	Content []byte
}

// Extractor returns the plain text of a document body.
type Extractor interface {
	Extract(ctx context.Context, content []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, content []byte) (string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, content []byte) (string, error) {
	return f(ctx, content)
}

// Registry dispatches extraction by format.
type Registry struct {
	extractors map[Format]Extractor
}

// NewRegistry returns a registry with the default extractor for every format.
func NewRegistry() *Registry {
	plain := PlainTextExtractor{}
	return &Registry{
		extractors: map[Format]Extractor{
			FormatPDF:      NewPDFExtractor(),
			FormatDOCX:     DOCXExtractor{},
			FormatText:     plain,
			FormatMarkdown: plain,
			FormatHTML:     HTMLExtractor{},
		},
	}
}

// Register replaces the extractor used for format.
func (r *Registry) Register(format Format, extractor Extractor) {
	r.extractors[format] = extractor
}

// Extract detects the file's format and returns its text.
func (r *Registry) Extract(ctx context.Context, file File) (string, Format, error) {
	format := DetectFormat(file.Name)
	extractor, ok := r.extractors[format]
	if !ok {
		format = FormatText
		extractor = PlainTextExtractor{}
	}

	text, err := extractor.Extract(ctx, file.Content)
	if err != nil {
		return "", format, fmt.Errorf("extract %s text from %s: %w", format, file.Name, err)
	}
	return text, format, nil
}
