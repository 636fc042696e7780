package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingVector is a backend whose vector leg always fails.
type failingVector struct {
	*MemoryBackend
}

func (f failingVector) VectorSearch(ctx context.Context, vector []float64, limit int) ([]SearchResult, error) {
	return nil, errors.New("vector index unavailable")
}

func TestHybridSearch(t *testing.T) {
	t.Parallel()

	t.Run("EmptyStore", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryBackend()
		require.NoError(t, store.Initialize("", false))

		results, err := HybridSearch(t.Context(), store, "test", nil, 10, RRFConstant)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("FailingLegIgnored", func(t *testing.T) {
		t.Parallel()
		mem := NewMemoryBackend()
		require.NoError(t, mem.Initialize("", false))
		require.NoError(t, mem.SaveSnapshot(t.Context(), sampleSnapshot()))

		results, err := HybridSearch(t.Context(), failingVector{mem}, "wafer", []float64{1, 0, 0}, 10, RRFConstant)
		require.NoError(t, err)
		assert.Equal(t, []string{"concept_wafer", "document_doc_a"}, resultIDs(results))
		assert.InDelta(t, 1.0/61, results[0].Score, 1e-12)
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		t.Parallel()
		mem := NewMemoryBackend()
		require.NoError(t, mem.Initialize("", false))
		require.NoError(t, mem.SaveSnapshot(t.Context(), sampleSnapshot()))

		results, err := HybridSearch(t.Context(), mem, "resist", nil, 0, RRFConstant)
		require.NoError(t, err)
		assert.Len(t, results, 4)
	})
}
