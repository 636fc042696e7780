package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Benny93/docgraph-go/internal/graph"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Words", "Photoresist coats the Wafer", []string{"photoresist", "coats", "the", "wafer"}},
		{"Slug", "concept_deep_uv", []string{"concept", "deep", "uv"}},
		{"Hyphen", "ArF-immersion", []string{"arf", "immersion"}},
		{"ShortTokensDropped", "a b 193 nm", []string{"193", "nm"}},
		{"Unicode", "Überblick über Lithografie", []string{"überblick", "über", "lithografie"}},
		{"Empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tokenize(tt.input))
		})
	}
}

func TestQueryTokens_Dedupes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"mask", "wafer"}, queryTokens("mask Wafer MASK"))
}

func TestNodeTerms(t *testing.T) {
	t.Parallel()

	node := &graph.GraphNode{
		Name:       "Mask Design",
		Properties: graph.NodeProperties{Description: "The mask carries the pattern."},
	}
	terms := nodeTerms(node)
	assert.Equal(t, 3, terms["mask"])
	assert.Equal(t, 2, terms["design"])
	assert.Equal(t, 1, terms["pattern"])
	assert.Equal(t, 2, terms["the"])
}

func TestSnippet_Truncates(t *testing.T) {
	t.Parallel()

	long := make([]rune, 250)
	for i := range long {
		long[i] = 'ä'
	}
	node := &graph.GraphNode{Properties: graph.NodeProperties{Description: string(long)}}
	assert.Len(t, []rune(snippet(node)), snippetLength)
}
