package ingestion

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/graph"
	"github.com/Benny93/docgraph-go/internal/loader"
)

func processText(t *testing.T, id, title, text string) *document.ProcessedDocument {
	t.Helper()
	p := document.NewProcessor(document.WithIDGenerator(func() string { return id }))
	return p.ProcessText(context.Background(), title, text, loader.FormatText, title+".txt")
}

const (
	resistText = `Overview
Photoresist is applied to the wafer. The photoresist is part of the lithography stack.
`
	maskText = `Masks
The mask carries the pattern. Photoresist reacts to light passing the mask.
`
)

func TestBuilder_SharedConceptAcrossBatch(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	docs := []*document.ProcessedDocument{
		processText(t, "doc-a", "Resist", resistText),
		processText(t, "doc-b", "Mask", maskText),
	}

	results := b.ProcessDocuments(docs, nil)
	require.Len(t, results, 2)

	node := b.Graph().GetNode("concept_photoresist")
	require.NotNil(t, node)
	assert.Equal(t, 2, node.Properties.Frequency)
	assert.ElementsMatch(t, []string{"doc-a", "doc-b"}, node.Properties.DocumentIDs)
}

func TestBuilder_ProcessDocument(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	doc := processText(t, "doc-a", "Resist", resistText)
	result := b.ProcessDocument(doc)
	g := b.Graph()

	t.Run("DocumentNode", func(t *testing.T) {
		docNode := g.GetNode("document_doc_a")
		require.NotNil(t, docNode)
		assert.Equal(t, "document_doc_a", result.DocumentNodeID)
		assert.Equal(t, graph.NodeDocument, docNode.Label)
		assert.Equal(t, "Resist", docNode.Name)
		assert.InDelta(t, 1.0, docNode.Properties.Importance, 1e-9)
		assert.Equal(t, doc.Embedding, docNode.Embedding)
	})

	t.Run("SectionNodes", func(t *testing.T) {
		require.Len(t, doc.Sections, 1)
		section := g.GetNode("section_doc_a_section_0")
		require.NotNil(t, section)
		assert.Equal(t, "Overview", section.Name)

		var partOf []*graph.GraphRelationship
		for _, rel := range g.GetOutgoing("document_doc_a", graph.RelPartOf) {
			partOf = append(partOf, rel)
		}
		require.Len(t, partOf, 1)
		assert.Equal(t, "section_doc_a_section_0", partOf[0].Target)
	})

	t.Run("MentionsEveryItem", func(t *testing.T) {
		mentions := g.GetOutgoing("document_doc_a", graph.RelMentions)
		assert.Len(t, mentions, result.Concepts+result.Entities)
	})

	t.Run("Indexes", func(t *testing.T) {
		for _, topic := range doc.Metadata.Topics {
			assert.Contains(t, g.DocumentsForTopic(topic), "doc-a")
		}
		indexed := g.DocumentNodes("doc-a")
		assert.Contains(t, indexed, "document_doc_a")
		assert.Contains(t, indexed, "concept_photoresist")
		assert.Contains(t, indexed, "section_doc_a_section_0")
	})

	t.Run("ResultCounts", func(t *testing.T) {
		assert.Equal(t, "doc-a", result.DocumentID)
		assert.Equal(t, 1, result.Sections)
		assert.Equal(t, g.NodeCount(), result.NewNodes)
		assert.Equal(t, g.RelationshipCount(), result.Relationships)
	})
}

func TestBuilder_ReprocessingMergesNodes(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	doc := processText(t, "doc-a", "Resist", resistText)

	b.ProcessDocument(doc)
	before := b.Graph().GetNode("concept_photoresist").Properties
	nodes := b.Graph().NodeCount()

	second := b.ProcessDocument(doc)
	after := b.Graph().GetNode("concept_photoresist").Properties

	assert.Equal(t, nodes, b.Graph().NodeCount())
	assert.Zero(t, second.NewNodes)
	assert.Greater(t, after.Frequency, before.Frequency)
	assert.GreaterOrEqual(t, after.Importance, before.Importance)
	assert.Equal(t, []string{"doc-a"}, after.DocumentIDs)
}

func TestBuilder_ProcessDocumentsProgress(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		phases = map[string]float64{}
	)
	progress := func(phase string, p float64) {
		mu.Lock()
		defer mu.Unlock()
		phases[phase] = p
	}

	b := NewBuilder()
	b.ProcessDocuments([]*document.ProcessedDocument{processText(t, "doc-a", "Resist", resistText)}, progress)

	assert.InDelta(t, 1.0, phases["Extracting concepts"], 1e-9)
	assert.InDelta(t, 1.0, phases["Building graph"], 1e-9)
}

func TestBuilder_ConcurrentDocuments(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.ProcessDocument(processText(t, fmt.Sprintf("doc-%d", i), "Resist", resistText))
		}()
	}
	wg.Wait()

	node := b.Graph().GetNode("concept_photoresist")
	require.NotNil(t, node)
	assert.Equal(t, 8, node.Properties.Frequency)
	assert.Len(t, node.Properties.DocumentIDs, 8)
}

func TestBuilder_QueriesDuringMerge(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.ProcessDocument(processText(t, "doc-seed", "Mask", maskText))
	docs := make([]*document.ProcessedDocument, 20)
	for i := range docs {
		docs[i] = processText(t, fmt.Sprintf("doc-%d", i), "Resist", resistText)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, doc := range docs {
			b.ProcessDocument(doc)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			for _, r := range b.SearchConcepts("photoresist", 5) {
				_ = r.Node.Properties.Frequency
			}
			b.GetRelatedDocuments("doc-seed", 5)
			b.GetConceptNetwork("concept_photoresist", 1)
		}
	}()
	wg.Wait()

	results := b.SearchConcepts("photoresist", 1)
	require.Len(t, results, 1)
	assert.Equal(t, 21, results[0].Node.Properties.Frequency)

	// Results are detached from the live graph.
	results[0].Node.Properties.Frequency = 0
	assert.Equal(t, 21, b.Graph().GetNode("concept_photoresist").Properties.Frequency)
}

func TestBuilder_SearchConcepts(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.ProcessDocuments([]*document.ProcessedDocument{
		processText(t, "doc-a", "Resist", resistText),
		processText(t, "doc-b", "Mask", maskText),
	}, nil)

	t.Run("SortedDescending", func(t *testing.T) {
		results := b.SearchConcepts("photo", 0)
		require.NotEmpty(t, results)
		assert.Equal(t, "concept_photoresist", results[0].Node.ID)
		assert.InDelta(t, 8.0, results[0].Score, 1e-9)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("DescriptionMatch", func(t *testing.T) {
		results := b.SearchConcepts("extracted from mask", 0)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.Contains(t, r.Node.Properties.Description, "extracted from Mask")
		}
	})

	t.Run("Limit", func(t *testing.T) {
		assert.Len(t, b.SearchConcepts("extracted", 2), 2)
	})

	t.Run("NoMatch", func(t *testing.T) {
		results := b.SearchConcepts("zzzz", 5)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		assert.Empty(t, b.SearchConcepts("  ", 5))
	})
}

func TestBuilder_GetConceptNetwork(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.ProcessDocuments([]*document.ProcessedDocument{
		processText(t, "doc-a", "Resist", resistText),
		processText(t, "doc-b", "Mask", maskText),
	}, nil)

	t.Run("DepthZero", func(t *testing.T) {
		net := b.GetConceptNetwork("concept_photoresist", 0)
		require.Equal(t, 1, net.NodeCount())
		assert.Equal(t, "concept_photoresist", net.Nodes[0].ID)
		assert.Zero(t, net.EdgeCount())
	})

	t.Run("DepthOneReachesBothDocuments", func(t *testing.T) {
		net := b.GetConceptNetwork("concept_photoresist", 1)
		assert.NotNil(t, net.Node("document_doc_a"))
		assert.NotNil(t, net.Node("document_doc_b"))
		assert.Nil(t, net.Node("section_doc_a_section_0"))
		for _, e := range net.Edges {
			assert.NotNil(t, net.Node(e.Source))
			assert.NotNil(t, net.Node(e.Target))
		}
	})

	t.Run("DepthTwoReachesSections", func(t *testing.T) {
		net := b.GetConceptNetwork("concept_photoresist", 2)
		assert.NotNil(t, net.Node("section_doc_a_section_0"))
	})

	t.Run("MissingNode", func(t *testing.T) {
		net := b.GetConceptNetwork("concept_missing", 3)
		assert.Zero(t, net.NodeCount())
		assert.Zero(t, net.EdgeCount())
	})
}

func TestBuilder_GetRelatedDocuments(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.ProcessDocuments([]*document.ProcessedDocument{
		processText(t, "doc-a", "Resist", resistText),
		processText(t, "doc-b", "Mask", maskText),
		processText(t, "doc-c", "Other", "Completely unrelated cooking recipe."),
	}, nil)

	related := b.GetRelatedDocuments("doc-a", 0)
	require.Len(t, related, 2)
	for _, r := range related {
		assert.NotEqual(t, "doc-a", r.DocumentID)
	}
	assert.GreaterOrEqual(t, related[0].Score, related[1].Score)

	byNode := b.GetRelatedDocuments("document_doc_a", 1)
	require.Len(t, byNode, 1)
	assert.Equal(t, related[0].DocumentID, byNode[0].DocumentID)

	assert.Empty(t, b.GetRelatedDocuments("doc-missing", 5))
}

func TestBuilder_ExportRestoreReset(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.ProcessDocument(processText(t, "doc-a", "Resist", resistText))
	snap := b.Export()

	other := NewBuilder()
	other.Restore(snap)
	assert.Equal(t, b.Graph().NodeCount(), other.Graph().NodeCount())
	assert.Equal(t, b.Graph().RelationshipCount(), other.Graph().RelationshipCount())
	assert.Equal(t, b.Graph().DocumentNodes("doc-a"), other.Graph().DocumentNodes("doc-a"))

	b.Reset()
	assert.Zero(t, b.Graph().NodeCount())
	assert.Equal(t, snap.NodeCount(), other.Graph().NodeCount())
}
