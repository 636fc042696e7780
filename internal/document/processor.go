package document

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/loader"
)

const maxSectionConcepts = 5

// Processor converts files and URLs into ProcessedDocuments. It holds no
// mutable state and is safe for concurrent use.
type Processor struct {
	registry *loader.Registry
	web      *loader.WebLoader
	embedder *embeddings.Embedder
	lexicon  *Lexicon
	newID    func() string
	now      func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithRegistry sets the file extractor registry.
func WithRegistry(r *loader.Registry) Option {
	return func(p *Processor) { p.registry = r }
}

// WithWebLoader sets the URL loader.
func WithWebLoader(l *loader.WebLoader) Option {
	return func(p *Processor) { p.web = l }
}

// WithEmbedder sets the document and section embedder.
func WithEmbedder(e *embeddings.Embedder) Option {
	return func(p *Processor) { p.embedder = e }
}

// WithLexicon replaces the built-in keyword tables.
func WithLexicon(l *Lexicon) Option {
	return func(p *Processor) { p.lexicon = l }
}

// WithIDGenerator replaces the UUID document id generator.
func WithIDGenerator(fn func() string) Option {
	return func(p *Processor) { p.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(p *Processor) { p.now = fn }
}

// NewProcessor creates a processor. Without options it uses the default
// extractors, a web loader without fetch timeout and hash-only embeddings.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		registry: loader.NewRegistry(),
		web:      loader.NewWebLoader(nil, 0),
		embedder: embeddings.NewEmbedder(nil, embeddings.DocumentDimension),
		lexicon:  DefaultLexicon(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lexicon returns the keyword tables in use.
func (p *Processor) Lexicon() *Lexicon {
	return p.lexicon
}

// ProcessFile extracts and analyzes an uploaded file. Extraction failures
// fail the whole file; no partial document is returned.
func (p *Processor) ProcessFile(ctx context.Context, file loader.File) (*ProcessedDocument, error) {
	text, format, err := p.registry.Extract(ctx, file)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(file.Name)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		title = base
	}
	return p.ProcessText(ctx, title, text, format, file.Name), nil
}

// ProcessURL fetches a web page and analyzes its readable text.
func (p *Processor) ProcessURL(ctx context.Context, rawURL string) (*ProcessedDocument, error) {
	page, err := p.web.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return p.ProcessText(ctx, page.Title, page.Text, loader.FormatHTML, rawURL), nil
}

// ProcessText analyzes already extracted text.
func (p *Processor) ProcessText(ctx context.Context, title, text string, format loader.Format, source string) *ProcessedDocument {
	id := p.newID()
	meta := computeMetadata(text, format, source, p.lexicon)

	sections := buildSections(id, text, p.lexicon)
	for i := range sections {
		s := &sections[i]
		s.RelatedConcepts = relatedConcepts(s.Content, meta.KeyTerms)
		s.Embedding = p.embedder.Embed(ctx, s.Content)
	}

	return &ProcessedDocument{
		ID:          id,
		Title:       title,
		Content:     text,
		Metadata:    meta,
		Sections:    sections,
		Embedding:   p.embedder.Embed(ctx, embeddings.DocumentText(title, text)),
		Suggestions: suggestVisualizations(text, p.lexicon),
		CreatedAt:   p.now(),
	}
}

func relatedConcepts(content string, keyTerms []string) []string {
	padded := phraseText(content)
	related := []string{}
	for _, term := range keyTerms {
		if containsPhrase(padded, term) {
			related = append(related, term)
			if len(related) == maxSectionConcepts {
				break
			}
		}
	}
	return related
}
