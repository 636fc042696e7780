package visualization

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/graph"
)

const (
	structureConfidence      = 0.9
	topicConfidence          = 0.8
	knowledgeGraphConfidence = 0.9
)

// Engine generates visualizations from documents. It is safe for
// concurrent use.
type Engine struct {
	templates map[document.SuggestionType]Template

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithTemplate registers or replaces the template for a suggestion type.
func WithTemplate(st document.SuggestionType, t Template) Option {
	return func(e *Engine) { e.templates[st] = t }
}

// WithIDGenerator replaces the ULID generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an engine with the default templates.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		templates: DefaultTemplates(),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) id() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.newID != nil {
		return e.newID()
	}
	return ulid.MustNew(ulid.Now(), e.entropy).String()
}

// GenerateForDocument builds one visualization per suggestion with a
// registered template, then the document structure graph and the topic
// distribution chart. When g is non-nil a knowledge graph visualization
// scoped to the document's nodes is appended.
func (e *Engine) GenerateForDocument(doc *document.ProcessedDocument, g *graph.KnowledgeGraph) []*Visualization {
	var out []*Visualization

	for _, s := range doc.Suggestions {
		tmpl, ok := e.templates[s.Type]
		if !ok {
			continue
		}
		out = append(out, e.finish(tmpl.build(s), doc))
	}

	out = append(out, e.finish(e.structure(doc), doc))
	out = append(out, e.finish(e.topics(doc), doc))

	if g != nil {
		out = append(out, e.finish(e.knowledgeGraph(doc, g), doc))
	}
	return out
}

// GenerateForDocuments concatenates GenerateForDocument over docs.
func (e *Engine) GenerateForDocuments(docs []*document.ProcessedDocument, g *graph.KnowledgeGraph) []*Visualization {
	out := []*Visualization{}
	for _, doc := range docs {
		out = append(out, e.GenerateForDocument(doc, g)...)
	}
	return out
}

func (e *Engine) finish(v *Visualization, doc *document.ProcessedDocument) *Visualization {
	v.ID = e.id()
	v.DocumentID = doc.ID
	return v
}

func (e *Engine) structure(doc *document.ProcessedDocument) *Visualization {
	nodes := []map[string]any{{
		"id":    doc.ID,
		"label": doc.Title,
		"type":  string(graph.NodeDocument),
		"size":  1.0,
	}}
	edges := []map[string]any{}
	for _, s := range doc.Sections {
		nodes = append(nodes, map[string]any{
			"id":          s.ID,
			"label":       s.Title,
			"type":        string(graph.NodeSection),
			"sectionType": string(s.Type),
			"size":        s.Importance,
		})
		edges = append(edges, map[string]any{"source": doc.ID, "target": s.ID})
	}

	return &Visualization{
		Title:         fmt.Sprintf("Document Structure: %s", doc.Title),
		Type:          structureTemplate.Type,
		Data:          map[string]any{"nodes": nodes, "edges": edges},
		Config:        structureTemplate.Config(),
		Interactivity: append([]Interaction(nil), structureTemplate.Interactivity...),
		Explanation:   structureTemplate.Explanation,
		Confidence:    structureConfidence,
	}
}

// TopicCounts returns, for each topic, how often it occurs in the document
// text (case-insensitive), with a floor of 1.
func TopicCounts(doc *document.ProcessedDocument) []int {
	lower := strings.ToLower(doc.Content)
	counts := make([]int, len(doc.Metadata.Topics))
	for i, topic := range doc.Metadata.Topics {
		counts[i] = 1
		if t := strings.ToLower(topic); t != "" {
			counts[i] = max(strings.Count(lower, t), 1)
		}
	}
	return counts
}

func (e *Engine) topics(doc *document.ProcessedDocument) *Visualization {
	labels := append([]string{}, doc.Metadata.Topics...)
	return &Visualization{
		Title:         fmt.Sprintf("Topic Distribution: %s", doc.Title),
		Type:          topicTemplate.Type,
		Data:          map[string]any{"labels": labels, "values": TopicCounts(doc)},
		Config:        topicTemplate.Config(),
		Interactivity: append([]Interaction(nil), topicTemplate.Interactivity...),
		Explanation:   topicTemplate.Explanation,
		Confidence:    topicConfidence,
	}
}

func (e *Engine) knowledgeGraph(doc *document.ProcessedDocument, g *graph.KnowledgeGraph) *Visualization {
	sub := g.Subgraph(g.DocumentNodes(doc.ID))
	return &Visualization{
		Title:         fmt.Sprintf("Knowledge Graph: %s", doc.Title),
		Type:          knowledgeGraphTemplate.Type,
		Data:          map[string]any{"nodes": sub.Nodes, "edges": sub.Edges},
		Config:        knowledgeGraphTemplate.Config(),
		Interactivity: append([]Interaction(nil), knowledgeGraphTemplate.Interactivity...),
		Explanation:   knowledgeGraphTemplate.Explanation,
		Confidence:    knowledgeGraphConfidence,
	}
}
