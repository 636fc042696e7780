// Package graph provides the knowledge graph data model for docgraph.
//
// It defines the node and relationship types that represent document-level
// knowledge (documents, sections, concepts, entities) and the typed, weighted
// edges inferred between them (mentions, part_of, defines, etc.).
package graph

import (
	"regexp"
	"slices"
	"strings"
)

// NodeLabel represents the type of a graph node.
type NodeLabel string

const (
	NodeConcept  NodeLabel = "concept"
	NodeEntity   NodeLabel = "entity"
	NodeDocument NodeLabel = "document"
	NodeSection  NodeLabel = "section"
)

// AllNodeLabels lists every node label in display order.
var AllNodeLabels = []NodeLabel{NodeDocument, NodeSection, NodeConcept, NodeEntity}

// RelType represents the type of relationship between graph nodes.
type RelType string

const (
	RelRelatedTo   RelType = "related_to"
	RelPartOf      RelType = "part_of"
	RelMentions    RelType = "mentions"
	RelDefines     RelType = "defines"
	RelContradicts RelType = "contradicts"
)

// AllRelTypes lists every relationship type.
var AllRelTypes = []RelType{RelRelatedTo, RelPartOf, RelMentions, RelDefines, RelContradicts}

// NodeProperties is the property bag carried by every node.
type NodeProperties struct {
	Description string  `json:"description"`
	Importance  float64 `json:"importance"`
	Frequency   int     `json:"frequency"`
	Connections int     `json:"connections"`

	// DocumentIDs is the set of documents referencing the node, in the
	// order they were first seen.
	DocumentIDs []string `json:"documentIds"`
}

// HasDocument reports whether documentID references the node.
func (p *NodeProperties) HasDocument(documentID string) bool {
	return slices.Contains(p.DocumentIDs, documentID)
}

// AddDocument records documentID as a referencing document.
// Returns false if it was already present.
func (p *NodeProperties) AddDocument(documentID string) bool {
	if documentID == "" || p.HasDocument(documentID) {
		return false
	}
	p.DocumentIDs = append(p.DocumentIDs, documentID)
	return true
}

// GraphNode represents a node in the knowledge graph.
type GraphNode struct {
	// ID is the unique identifier for the node.
	// Format: {label}_{slug}
	ID string `json:"id"`

	// Label is the type of the node.
	Label NodeLabel `json:"type"`

	// Name is the display label (concept term, entity name, document title).
	Name string `json:"label"`

	Properties NodeProperties `json:"properties"`

	Embedding []float64 `json:"embedding,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *GraphNode) Clone() *GraphNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Properties.DocumentIDs = slices.Clone(n.Properties.DocumentIDs)
	c.Embedding = slices.Clone(n.Embedding)
	return &c
}

// RelProperties holds relationship metadata.
type RelProperties struct {
	Confidence float64 `json:"confidence"`

	// Context is the sentence excerpt the relationship was inferred from.
	Context string `json:"context,omitempty"`

	DocumentID string `json:"documentId,omitempty"`
}

// GraphRelationship represents a directed edge in the knowledge graph.
// Edges carry no identity of their own; the same pair may be connected
// by several edges discovered in different documents.
type GraphRelationship struct {
	Source     string        `json:"source"`
	Target     string        `json:"target"`
	Type       RelType       `json:"type"`
	Weight     float64       `json:"weight"`
	Properties RelProperties `json:"properties"`
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and collapses every run of non-alphanumeric characters
// into a single underscore.
func Slug(s string) string {
	s = slugSeparators.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(s, "_")
}

// GenerateID creates a deterministic node ID from label and name so that
// repeated encounters of the same term merge into one node.
// Format: {label}_{slug(name)}
func GenerateID(label NodeLabel, name string) string {
	return string(label) + "_" + Slug(name)
}
