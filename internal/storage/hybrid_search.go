package storage

import (
	"context"
	"sort"

	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/graph"
)

// HybridSearch combines FTS and vector search using Reciprocal Rank Fusion (RRF).
// k is the RRF constant (typically 60). A failing leg contributes no ranks.
func HybridSearch(ctx context.Context, store Backend, query string, vector []float64, limit, k int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	ftsResults, err := store.FTSSearch(ctx, query, limit*2)
	if err != nil {
		ftsResults = []SearchResult{}
	}

	var vectorResults []SearchResult
	if len(vector) > 0 {
		vectorResults, err = store.VectorSearch(ctx, vector, limit*2)
		if err != nil {
			vectorResults = []SearchResult{}
		}
	}

	rrfScores := make(map[string]float64)
	metadata := make(map[string]SearchResult)

	for _, list := range [][]SearchResult{ftsResults, vectorResults} {
		for i, result := range list {
			rrfScores[result.NodeID] += 1.0 / float64(k+i+1)
			if _, exists := metadata[result.NodeID]; !exists {
				metadata[result.NodeID] = result
			}
		}
	}

	results := make([]SearchResult, 0, len(rrfScores))
	for nodeID, score := range rrfScores {
		r := metadata[nodeID]
		r.Score = score
		results = append(results, r)
	}
	sortResults(results)

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// sortResults orders by descending score, then node ID.
func sortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].NodeID < results[j].NodeID
	})
}

// rankByVector scores nodes against vector.
func rankByVector(nodes []*graph.GraphNode, vector []float64, limit int) []SearchResult {
	if limit <= 0 {
		limit = defaultLimit
	}
	results := []SearchResult{}
	for _, node := range nodes {
		if len(node.Embedding) != len(vector) {
			continue
		}
		sim := embeddings.CosineSimilarity(vector, node.Embedding)
		if sim <= 0 {
			continue
		}
		r := resultFor(node)
		r.Score = sim
		results = append(results, r)
	}
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
