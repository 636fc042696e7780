package ingestion

import (
	"sort"
	"strings"
	"sync"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/graph"
	"github.com/Benny93/docgraph-go/internal/logger"
)

const (
	defaultSearchLimit  = 10
	defaultRelatedLimit = 5

	labelMatchScore       = 10
	descriptionMatchScore = 5
)

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// IngestResult summarizes what one document contributed to the graph.
type IngestResult struct {
	DocumentID     string
	DocumentNodeID string
	Concepts       int
	Entities       int
	Sections       int
	Relationships  int
	NewNodes       int
}

// Builder owns one knowledge graph and folds processed documents into it.
// Graph mutation is serialized. Queries read detached node copies, so they
// may run while a merge is in progress.
type Builder struct {
	mu    sync.Mutex
	graph *graph.KnowledgeGraph
}

// NewBuilder creates a builder over an empty graph.
func NewBuilder() *Builder {
	return &Builder{graph: graph.NewKnowledgeGraph()}
}

// Graph returns the live graph.
func (b *Builder) Graph() *graph.KnowledgeGraph {
	return b.graph
}

// DocumentNodeID returns the graph node ID of a document.
func DocumentNodeID(documentID string) string {
	return graph.GenerateID(graph.NodeDocument, documentID)
}

// prepared is the extraction output computed outside the builder lock.
type prepared struct {
	doc        *document.ProcessedDocument
	extraction *Extraction
	relations  []*graph.GraphRelationship
}

func prepare(doc *document.ProcessedDocument) *prepared {
	extraction := Extract(doc)
	return &prepared{
		doc:        doc,
		extraction: extraction,
		relations:  AnalyzeRelationships(doc, DocumentNodeID(doc.ID), extraction.Items()),
	}
}

// ProcessDocument extracts concepts and entities from doc and merges them,
// the document's own node, its section nodes and the inferred edges into
// the graph.
func (b *Builder) ProcessDocument(doc *document.ProcessedDocument) *IngestResult {
	return b.merge(prepare(doc))
}

// ProcessDocuments runs extraction for every document concurrently, then
// merges the results into the graph one by one in input order.
func (b *Builder) ProcessDocuments(docs []*document.ProcessedDocument, progress ProgressCallback) []*IngestResult {
	if progress != nil {
		progress("Extracting concepts", 0.0)
	}
	preps := make([]*prepared, len(docs))
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			preps[i] = prepare(doc)
		}()
	}
	wg.Wait()
	if progress != nil {
		progress("Extracting concepts", 1.0)
	}

	results := make([]*IngestResult, 0, len(preps))
	for i, p := range preps {
		if progress != nil {
			progress("Building graph", float64(i)/float64(len(preps)))
		}
		results = append(results, b.merge(p))
	}
	if progress != nil {
		progress("Building graph", 1.0)
	}
	return results
}

func (b *Builder) merge(p *prepared) *IngestResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc := p.doc
	g := b.graph
	result := &IngestResult{
		DocumentID:     doc.ID,
		DocumentNodeID: DocumentNodeID(doc.ID),
		Concepts:       len(p.extraction.Concepts),
		Entities:       len(p.extraction.Entities),
		Sections:       len(doc.Sections),
	}

	mergeNode := func(n *graph.GraphNode) {
		if _, created := g.MergeNode(n, doc.ID); created {
			result.NewNodes++
		}
	}

	// Phase 1: document node
	mergeNode(&graph.GraphNode{
		ID:    result.DocumentNodeID,
		Label: graph.NodeDocument,
		Name:  doc.Title,
		Properties: graph.NodeProperties{
			Description: doc.Metadata.Summary,
			Importance:  1,
			Frequency:   1,
		},
		Embedding: doc.Embedding,
	})

	// Phase 2: concepts and entities
	for _, item := range p.extraction.Items() {
		mergeNode(item.Clone())
	}

	// Phase 3: sections
	for _, s := range doc.Sections {
		sectionID := graph.GenerateID(graph.NodeSection, s.ID)
		mergeNode(&graph.GraphNode{
			ID:    sectionID,
			Label: graph.NodeSection,
			Name:  s.Title,
			Properties: graph.NodeProperties{
				Description: string(s.Type),
				Importance:  s.Importance,
				Frequency:   1,
			},
			Embedding: s.Embedding,
		})
		g.AddRelationship(&graph.GraphRelationship{
			Source: result.DocumentNodeID,
			Target: sectionID,
			Type:   graph.RelPartOf,
			Weight: 1,
			Properties: graph.RelProperties{
				Confidence: 1,
				DocumentID: doc.ID,
			},
		})
		result.Relationships++
	}

	// Phase 4: inferred relationships
	for _, rel := range p.relations {
		relCopy := *rel
		g.AddRelationship(&relCopy)
		result.Relationships++
	}

	// Phase 5: indexes
	for _, topic := range doc.Metadata.Topics {
		g.AddTopic(topic, doc.ID)
	}
	g.RebuildDocumentIndex(doc.ID)

	logger.Debug("Document merged into graph",
		"document", doc.ID,
		"concepts", result.Concepts,
		"entities", result.Entities,
		"relationships", result.Relationships,
	)
	return result
}

// SearchResult is a scored node returned by SearchConcepts.
type SearchResult struct {
	Node  *graph.GraphNode `json:"node"`
	Score float64          `json:"score"`
}

// SearchConcepts scores every node by case-insensitive substring match of
// query in its label (10) and description (5), scaled by importance, and
// returns the best limit results in descending score order. A limit of
// zero or less means 10.
func (b *Builder) SearchConcepts(query string, limit int) []SearchResult {
	return SearchNodes(b.graph, query, limit)
}

// SearchNodes is SearchConcepts over an arbitrary graph.
func SearchNodes(g *graph.KnowledgeGraph, query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))
	results := []SearchResult{}
	if q == "" {
		return results
	}

	for _, n := range g.CloneNodes() {
		score := 0.0
		if strings.Contains(strings.ToLower(n.Name), q) {
			score += labelMatchScore
		}
		if strings.Contains(strings.ToLower(n.Properties.Description), q) {
			score += descriptionMatchScore
		}
		score *= n.Properties.Importance
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{Node: n, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// GetConceptNetwork returns the subgraph induced by every node reachable
// from nodeID within depth hops, following edges in both directions. A
// missing node yields an empty snapshot.
func (b *Builder) GetConceptNetwork(nodeID string, depth int) *graph.Snapshot {
	return ConceptNetwork(b.graph, nodeID, depth)
}

// ConceptNetwork is GetConceptNetwork over an arbitrary graph.
func ConceptNetwork(g *graph.KnowledgeGraph, nodeID string, depth int) *graph.Snapshot {
	if g.GetNode(nodeID) == nil {
		return &graph.Snapshot{Nodes: []*graph.GraphNode{}, Edges: []*graph.GraphRelationship{}}
	}

	visited := map[string]bool{nodeID: true}
	order := []string{nodeID}
	frontier := []string{nodeID}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range g.Neighbors(id) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				order = append(order, nb)
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return g.Subgraph(order)
}

// RelatedDocument is a document node ranked by embedding similarity.
type RelatedDocument struct {
	DocumentID string  `json:"documentId"`
	NodeID     string  `json:"nodeId"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// GetRelatedDocuments ranks the other document nodes by cosine similarity
// of their embeddings to the given document. id may be a document ID or a
// document node ID. A limit of zero or less means 5.
func (b *Builder) GetRelatedDocuments(id string, limit int) []RelatedDocument {
	return RelatedDocuments(b.graph, id, limit)
}

// RelatedDocuments is GetRelatedDocuments over an arbitrary graph.
func RelatedDocuments(g *graph.KnowledgeGraph, id string, limit int) []RelatedDocument {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	results := []RelatedDocument{}

	source := g.CloneNode(id)
	if source == nil || source.Label != graph.NodeDocument {
		source = g.CloneNode(DocumentNodeID(id))
	}
	if source == nil || len(source.Embedding) == 0 {
		return results
	}

	for _, n := range g.CloneNodes(graph.NodeDocument) {
		if n.ID == source.ID || len(n.Embedding) == 0 {
			continue
		}
		docID := ""
		if len(n.Properties.DocumentIDs) > 0 {
			docID = n.Properties.DocumentIDs[0]
		}
		results = append(results, RelatedDocument{
			DocumentID: docID,
			NodeID:     n.ID,
			Title:      n.Name,
			Score:      embeddings.CosineSimilarity(source.Embedding, n.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Export returns a detached snapshot of the graph.
func (b *Builder) Export() *graph.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graph.Snapshot()
}

// Restore replaces the graph contents with snap.
func (b *Builder) Restore(snap *graph.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graph.Restore(snap)
}

// Reset empties the graph.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graph.Reset()
}
