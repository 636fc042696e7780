// Package ingestion turns processed documents into knowledge graph content:
// concept and entity extraction, relationship inference, graph assembly,
// plus the directory walker and file watcher feeding the pipeline.
package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/graph"
)

const (
	maxConceptMatches = 20
	maxEntityMatches  = 15
)

// pattern is one regex-driven extraction rule.
type pattern struct {
	name       string
	re         *regexp.Regexp
	importance float64
	// keepCase preserves the matched text as the display label.
	keepCase bool
}

var conceptPatterns = []pattern{
	{name: "acronym", re: regexp.MustCompile(`\b[A-Z]{2,}\b`), importance: 0.7, keepCase: true},
	{name: "abstract", re: regexp.MustCompile(`\b[A-Za-z]{3,}(?:tion|sion|ment|ness|ity|ism)\b`), importance: 0.6},
	{name: "method", re: regexp.MustCompile(`\b[a-z]{4,}\s+(?:analysis|method|technique|algorithm|model|approach|framework)\b`), importance: 0.7},
}

var entityPatterns = []pattern{
	{name: "name", re: regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`), importance: 0.7, keepCase: true},
	{name: "organization", re: regexp.MustCompile(`\b(?:[A-Z][A-Za-z&-]*\s+){1,4}(?:Inc|Corp|Corporation|Ltd|LLC|GmbH|AG|University|Institute|Laboratory|Laboratories|Labs)\b`), importance: 0.8, keepCase: true},
	{name: "reference", re: regexp.MustCompile(`\b(?:Figure|Fig\.|Table|Equation|Eq\.)\s*\d+\b`), importance: 0.6, keepCase: true},
}

const keyTermImportance = 0.8

// Extraction is the per-document output of the extractor.
type Extraction struct {
	Concepts []*graph.GraphNode
	Entities []*graph.GraphNode
}

// Items returns concepts followed by entities.
func (e *Extraction) Items() []*graph.GraphNode {
	items := make([]*graph.GraphNode, 0, len(e.Concepts)+len(e.Entities))
	items = append(items, e.Concepts...)
	return append(items, e.Entities...)
}

// Extract pulls concepts and entities out of a processed document. It is
// pure string processing and deterministic for a given document.
func Extract(doc *document.ProcessedDocument) *Extraction {
	out := &Extraction{Concepts: []*graph.GraphNode{}, Entities: []*graph.GraphNode{}}
	seen := make(map[string]bool)

	add := func(label graph.NodeLabel, name string, importance float64) {
		name = strings.TrimSpace(reSpace.ReplaceAllString(name, " "))
		if graph.Slug(name) == "" {
			return
		}
		id := graph.GenerateID(label, name)
		if seen[id] {
			return
		}
		seen[id] = true

		node := &graph.GraphNode{
			ID:    id,
			Label: label,
			Name:  name,
			Properties: graph.NodeProperties{
				Description: fmt.Sprintf("%s extracted from %s", titleCase(string(label)), doc.Title),
				Importance:  importance,
				Frequency:   1,
			},
			Embedding: embeddings.HashEmbedding(name, embeddings.NodeDimension),
		}
		if label == graph.NodeConcept {
			out.Concepts = append(out.Concepts, node)
		} else {
			out.Entities = append(out.Entities, node)
		}
	}

	for _, term := range doc.Metadata.KeyTerms {
		add(graph.NodeConcept, term, keyTermImportance)
	}
	for _, p := range conceptPatterns {
		for _, m := range p.re.FindAllString(doc.Content, maxConceptMatches) {
			if !p.keepCase {
				m = strings.ToLower(m)
			}
			add(graph.NodeConcept, m, p.importance)
		}
	}
	for _, p := range entityPatterns {
		for _, m := range p.re.FindAllString(doc.Content, maxEntityMatches) {
			add(graph.NodeEntity, m, p.importance)
		}
	}

	return out
}

var reSpace = regexp.MustCompile(`\s+`)

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
