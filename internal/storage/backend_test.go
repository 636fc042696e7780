package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/docgraph-go/internal/graph"
)

// backends returns a fresh, initialized instance of every implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	mem := NewMemoryBackend()
	require.NoError(t, mem.Initialize("", false))

	bdg := NewBadgerBackend()
	require.NoError(t, bdg.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	t.Cleanup(func() { _ = bdg.Close() })

	return map[string]Backend{"Memory": mem, "Badger": bdg}
}

func resultIDs(results []SearchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.NodeID)
	}
	return ids
}

func TestBackend_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			empty, err := store.LoadSnapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, empty.NodeCount())

			snap := sampleSnapshot()
			require.NoError(t, store.SaveSnapshot(ctx, snap))
			assert.Equal(t, 4, store.NodeCount())
			assert.Equal(t, 3, store.RelationshipCount())

			loaded, err := store.LoadSnapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, snap, loaded)

			loaded.Nodes[0].Name = "mutated"
			again, err := store.LoadSnapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, "Resist Notes", again.Nodes[0].Name)
		})
	}
}

func TestBackend_SaveSnapshotReplaces(t *testing.T) {
	t.Parallel()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot()))

			g := graph.NewKnowledgeGraph()
			g.AddNode(&graph.GraphNode{ID: "concept_mask", Label: graph.NodeConcept, Name: "mask"})
			require.NoError(t, store.SaveSnapshot(ctx, g.Snapshot()))

			assert.Equal(t, 1, store.NodeCount())
			assert.Equal(t, 0, store.RelationshipCount())

			_, err := store.GetNode(ctx, "concept_photoresist")
			assert.ErrorIs(t, err, ErrNotFound)

			results, err := store.FTSSearch(ctx, "photoresist", 10)
			require.NoError(t, err)
			assert.Empty(t, results)

			results, err = store.FTSSearch(ctx, "mask", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"concept_mask"}, resultIDs(results))
		})
	}
}

func TestBackend_GetNode(t *testing.T) {
	t.Parallel()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot()))

			node, err := store.GetNode(ctx, "concept_wafer")
			require.NoError(t, err)
			assert.Equal(t, "wafer", node.Name)
			assert.Equal(t, []string{"doc-a"}, node.Properties.DocumentIDs)

			_, err = store.GetNode(ctx, "concept_missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBackend_Documents(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	docs := []DocumentRecord{
		{ID: "doc-b", Title: "b", Source: "notes/b.md", Format: "md", SHA256: "bb", WordCount: 3, Topics: []string{"mask"}, ProcessedAt: at},
		{ID: "doc-a", Title: "a", Source: "notes/a.txt", Format: "txt", SHA256: "aa", WordCount: 5, Topics: []string{"wafer"}, ProcessedAt: at},
	}

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			loaded, err := store.LoadDocuments(ctx)
			require.NoError(t, err)
			assert.Empty(t, loaded)

			require.NoError(t, store.SaveDocuments(ctx, docs))
			loaded, err = store.LoadDocuments(ctx)
			require.NoError(t, err)
			assert.Equal(t, []DocumentRecord{docs[1], docs[0]}, loaded)

			require.NoError(t, store.SaveDocuments(ctx, docs[:1]))
			loaded, err = store.LoadDocuments(ctx)
			require.NoError(t, err)
			assert.Equal(t, []DocumentRecord{docs[0]}, loaded)
		})
	}
}

func TestBackend_FTSSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query    string
		limit    int
		expected []string
	}{
		{"photoresist", 10, []string{"concept_photoresist", "document_doc_a"}},
		{"resist", 10, []string{"document_doc_a", "concept_photoresist", "concept_wafer", "entity_asml_holding"}},
		{"resist", 2, []string{"document_doc_a", "concept_photoresist"}},
		{"ASML", 10, []string{"entity_asml_holding"}},
		{"Photoresist WAFER", 10, []string{"concept_photoresist", "concept_wafer", "document_doc_a"}},
		{"x", 10, []string{}},
		{"lithography", 10, []string{}},
	}

	for name, store := range backends(t) {
		require.NoError(t, store.SaveSnapshot(context.Background(), sampleSnapshot()))
		for _, tt := range tests {
			t.Run(name+"/"+tt.query, func(t *testing.T) {
				results, err := store.FTSSearch(context.Background(), tt.query, tt.limit)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, resultIDs(results))
			})
		}
	}
}

func TestBackend_VectorSearch(t *testing.T) {
	t.Parallel()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot()))

			results, err := store.VectorSearch(ctx, []float64{1, 0, 0}, 10)
			require.NoError(t, err)
			require.Equal(t, []string{"document_doc_a", "concept_photoresist"}, resultIDs(results))
			assert.InDelta(t, 1.0, results[0].Score, 1e-9)
			assert.Equal(t, "Photoresist is applied to the wafer.", results[0].Snippet)

			results, err = store.VectorSearch(ctx, []float64{1, 0}, 10)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestBackend_HybridSearch(t *testing.T) {
	t.Parallel()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot()))

			results, err := store.HybridSearch(ctx, "wafer", []float64{1, 0, 0}, 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"document_doc_a", "concept_wafer", "concept_photoresist"}, resultIDs(results))
			assert.InDelta(t, 1.0/61+1.0/62, results[0].Score, 1e-12)

			textOnly, err := store.HybridSearch(ctx, "wafer", nil, 1)
			require.NoError(t, err)
			assert.Equal(t, []string{"concept_wafer"}, resultIDs(textOnly))
		})
	}
}

func TestMemoryBackend_NotInitialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryBackend()

	_, err := store.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, store.SaveSnapshot(ctx, sampleSnapshot()), ErrNotInitialized)
	_, err = store.GetNode(ctx, "x")
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, store.Initialize("", false))
	require.NoError(t, store.Close())
	_, err = store.FTSSearch(ctx, "x", 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
}
