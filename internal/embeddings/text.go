package embeddings

import (
	"fmt"
	"strings"

	"github.com/Benny93/docgraph-go/internal/graph"
)

// MaxInputChars bounds the text sent to the sentence encoder.
const MaxInputChars = 2000

// DocumentText builds the encoder input for a document: the title followed
// by the start of the body, cut at MaxInputChars runes.
func DocumentText(title, content string) string {
	var parts []string
	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, t)
	}
	if c := strings.TrimSpace(content); c != "" {
		parts = append(parts, c)
	}
	return truncateRunes(strings.Join(parts, "\n\n"), MaxInputChars)
}

// NodeText generates a short text representation of a node, used as the
// embedding input and for search indexing.
func NodeText(node *graph.GraphNode) string {
	if node == nil {
		return ""
	}

	text := fmt.Sprintf("%s %s", node.Label, node.Name)
	if node.Properties.Description != "" {
		text += ". " + node.Properties.Description
	}
	return text
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
