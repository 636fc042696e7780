package storage

import (
	"github.com/Benny93/docgraph-go/internal/graph"
)

// sampleSnapshot builds a small lithography graph.
func sampleSnapshot() *graph.Snapshot {
	g := graph.NewKnowledgeGraph()
	g.MergeNode(&graph.GraphNode{
		ID:         "document_doc_a",
		Label:      graph.NodeDocument,
		Name:       "Resist Notes",
		Properties: graph.NodeProperties{Description: "Photoresist is applied to the wafer.", Importance: 1},
		Embedding:  []float64{1, 0, 0},
	}, "doc-a")
	g.MergeNode(&graph.GraphNode{
		ID:         "concept_photoresist",
		Label:      graph.NodeConcept,
		Name:       "photoresist",
		Properties: graph.NodeProperties{Description: "Concept extracted from Resist Notes", Importance: 0.8, Frequency: 1},
		Embedding:  []float64{0.9, 0.1, 0},
	}, "doc-a")
	g.MergeNode(&graph.GraphNode{
		ID:         "concept_wafer",
		Label:      graph.NodeConcept,
		Name:       "wafer",
		Properties: graph.NodeProperties{Description: "Concept extracted from Resist Notes", Importance: 0.8, Frequency: 1},
		Embedding:  []float64{0, 1, 0},
	}, "doc-a")
	g.MergeNode(&graph.GraphNode{
		ID:         "entity_asml_holding",
		Label:      graph.NodeEntity,
		Name:       "ASML Holding",
		Properties: graph.NodeProperties{Description: "Entity extracted from Resist Notes", Importance: 0.7, Frequency: 1},
		Embedding:  []float64{0, 0, 1},
	}, "doc-a")

	g.AddRelationship(&graph.GraphRelationship{Source: "document_doc_a", Target: "concept_photoresist", Type: graph.RelMentions, Weight: 0.8})
	g.AddRelationship(&graph.GraphRelationship{Source: "document_doc_a", Target: "concept_wafer", Type: graph.RelMentions, Weight: 0.8})
	g.AddRelationship(&graph.GraphRelationship{
		Source:     "concept_photoresist",
		Target:     "concept_wafer",
		Type:       graph.RelRelatedTo,
		Weight:     0.6,
		Properties: graph.RelProperties{Confidence: 0.6, Context: "Photoresist is applied to the wafer", DocumentID: "doc-a"},
	})
	g.AddTopic("photoresist", "doc-a")
	g.RebuildDocumentIndex("doc-a")
	return g.Snapshot()
}
