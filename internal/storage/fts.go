package storage

import (
	"strings"
	"unicode"

	"github.com/Benny93/docgraph-go/internal/graph"
)

const (
	defaultLimit   = 10
	snippetLength  = 200
	nameTermWeight = 2
)

// tokenize lowercases text and splits it into letter/digit runs of at least
// two characters. Underscores and hyphens separate tokens, so node IDs and
// slugs tokenize like their labels.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// queryTokens returns the distinct tokens of a query in order.
func queryTokens(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tokenize(query) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// nodeTerms returns the term frequencies indexed for a node. Tokens of the
// label count double.
func nodeTerms(node *graph.GraphNode) map[string]int {
	terms := make(map[string]int)
	for _, t := range tokenize(node.Name) {
		terms[t] += nameTermWeight
	}
	for _, t := range tokenize(node.Properties.Description) {
		terms[t]++
	}
	return terms
}

func snippet(node *graph.GraphNode) string {
	r := []rune(node.Properties.Description)
	if len(r) > snippetLength {
		return string(r[:snippetLength])
	}
	return string(r)
}

func resultFor(node *graph.GraphNode) SearchResult {
	return SearchResult{
		NodeID:  node.ID,
		Name:    node.Name,
		Label:   node.Label,
		Snippet: snippet(node),
	}
}

// invertedIndex is an in-memory token -> node -> frequency index.
type invertedIndex map[string]map[string]int

func newInvertedIndex(nodes []*graph.GraphNode) invertedIndex {
	idx := make(invertedIndex)
	for _, node := range nodes {
		for term, freq := range nodeTerms(node) {
			postings, ok := idx[term]
			if !ok {
				postings = make(map[string]int)
				idx[term] = postings
			}
			postings[node.ID] = freq
		}
	}
	return idx
}

// score sums, per node, the frequencies of every query token.
func (idx invertedIndex) score(query string) map[string]int {
	scores := make(map[string]int)
	for _, t := range queryTokens(query) {
		for nodeID, freq := range idx[t] {
			scores[nodeID] += freq
		}
	}
	return scores
}

// rankScores turns node scores into sorted, limited results.
func rankScores(scores map[string]int, limit int, lookup func(string) *graph.GraphNode) []SearchResult {
	if limit <= 0 {
		limit = defaultLimit
	}
	results := make([]SearchResult, 0, len(scores))
	for nodeID, score := range scores {
		node := lookup(nodeID)
		if node == nil || score <= 0 {
			continue
		}
		r := resultFor(node)
		r.Score = float64(score)
		results = append(results, r)
	}
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
