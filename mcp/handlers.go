package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Benny93/docgraph-go/internal/graph"
	"github.com/Benny93/docgraph-go/internal/ingestion"
	"github.com/Benny93/docgraph-go/internal/storage"
)

func (s *Server) handleSearch(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}
	g, err := s.knowledgeGraph(ctx)
	if err != nil {
		return "", err
	}

	results := ingestion.SearchNodes(g, query, limit)
	if len(results) == 0 {
		return fmt.Sprintf("No nodes match %q.\n", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for %q\n\n", query)
	for i, r := range results {
		n := r.Node
		fmt.Fprintf(&sb, "%d. **%s** (%s) `%s` score %.2f\n", i+1, n.Name, n.Label, n.ID, r.Score)
		if n.Properties.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", oneLine(n.Properties.Description, 160))
		}
	}
	return sb.String(), nil
}

func (s *Server) handleQuery(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	vector := s.embedder.Embed(ctx, query)
	results, err := s.storage.HybridSearch(ctx, query, vector, limit)
	if err != nil {
		// Fall back to the term index alone.
		results, err = s.storage.FTSSearch(ctx, query, limit)
		if err != nil {
			return "", fmt.Errorf("search: %w", err)
		}
	}
	return formatSearchResults(results, query), nil
}

func formatSearchResults(results []storage.SearchResult, query string) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q.\n", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Query Results for %q\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s** (%s) `%s` score %.4f\n", i+1, r.Name, r.Label, r.NodeID, r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", oneLine(r.Snippet, 160))
		}
	}
	return sb.String()
}

func (s *Server) handleNetwork(ctx context.Context, nodeID string, depth int) (string, error) {
	if nodeID == "" {
		return "No node_id provided", nil
	}
	if depth > maxDepth {
		depth = maxDepth
	}
	g, err := s.knowledgeGraph(ctx)
	if err != nil {
		return "", err
	}

	network := ingestion.ConceptNetwork(g, nodeID, depth)
	if network.NodeCount() == 0 {
		return fmt.Sprintf("Node %q not found.\n", nodeID), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Network of %s (depth %d)\n\n", nodeID, depth)
	fmt.Fprintf(&sb, "### Nodes (%d)\n\n", network.NodeCount())
	for _, n := range network.Nodes {
		fmt.Fprintf(&sb, "- **%s** (%s) `%s`\n", n.Name, n.Label, n.ID)
	}
	fmt.Fprintf(&sb, "\n### Edges (%d)\n\n", network.EdgeCount())
	for _, e := range network.Edges {
		fmt.Fprintf(&sb, "- `%s` -[%s %.2f]-> `%s`\n", e.Source, e.Type, e.Weight, e.Target)
	}
	return sb.String(), nil
}

func (s *Server) handleRelated(ctx context.Context, documentID string, limit int) (string, error) {
	if documentID == "" {
		return "No document_id provided", nil
	}
	g, err := s.knowledgeGraph(ctx)
	if err != nil {
		return "", err
	}

	related := ingestion.RelatedDocuments(g, documentID, limit)
	if len(related) == 0 {
		return fmt.Sprintf("No documents related to %q.\n", documentID), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Documents related to %s\n\n", documentID)
	for i, r := range related {
		fmt.Fprintf(&sb, "%d. **%s** `%s` similarity %.3f\n", i+1, r.Title, r.DocumentID, r.Score)
	}
	return sb.String(), nil
}

func (s *Server) handleStats(ctx context.Context) (string, error) {
	g, err := s.knowledgeGraph(ctx)
	if err != nil {
		return "", err
	}
	docs, err := s.storage.LoadDocuments(ctx)
	if err != nil {
		return "", fmt.Errorf("load documents: %w", err)
	}

	stats := g.Stats()
	var sb strings.Builder
	sb.WriteString("## Graph Statistics\n\n")
	fmt.Fprintf(&sb, "- Nodes: %d\n", stats["nodes"])
	fmt.Fprintf(&sb, "- Relationships: %d\n", stats["relationships"])
	fmt.Fprintf(&sb, "- Topics: %d\n", stats["topics"])
	for _, label := range graph.AllNodeLabels {
		fmt.Fprintf(&sb, "- %s: %d\n", label, stats[string(label)])
	}
	fmt.Fprintf(&sb, "\n## Documents (%d)\n\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&sb, "- **%s** (%s, %d words) %s\n", d.Title, d.Format, d.WordCount, d.Source)
	}
	return sb.String(), nil
}

func (s *Server) overview(ctx context.Context) (string, error) {
	g, err := s.knowledgeGraph(ctx)
	if err != nil {
		return "", err
	}
	docs, err := s.storage.LoadDocuments(ctx)
	if err != nil {
		return "", fmt.Errorf("load documents: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# docgraph Knowledge Graph Overview\n\n")
	fmt.Fprintf(&sb, "**Nodes:** %d\n", s.storage.NodeCount())
	fmt.Fprintf(&sb, "**Relationships:** %d\n", s.storage.RelationshipCount())
	fmt.Fprintf(&sb, "**Documents:** %d\n", len(docs))

	topics := g.Topics()
	if len(topics) > 0 {
		names := make([]string, 0, len(topics))
		for t := range topics {
			names = append(names, t)
		}
		sort.Slice(names, func(i, j int) bool {
			if len(topics[names[i]]) != len(topics[names[j]]) {
				return len(topics[names[i]]) > len(topics[names[j]])
			}
			return names[i] < names[j]
		})
		sb.WriteString("\n## Topics\n\n")
		for _, t := range names {
			fmt.Fprintf(&sb, "- %s (%d documents)\n", t, len(topics[t]))
		}
	}

	if len(docs) > 0 {
		sb.WriteString("\n## Documents\n\n")
		for _, d := range docs {
			fmt.Fprintf(&sb, "- **%s** `%s`: %s\n", d.Title, d.ID, oneLine(d.Summary, 120))
		}
	}
	return sb.String(), nil
}

func schema() string {
	var sb strings.Builder
	sb.WriteString("# docgraph Knowledge Graph Schema\n\n")
	sb.WriteString("## Node Types\n\n")
	sb.WriteString("| Type | Description | ID format |\n")
	sb.WriteString("|------|-------------|-----------|\n")
	sb.WriteString("| `document` | Processed document | document_{document id} |\n")
	sb.WriteString("| `section` | Heading-delimited section of a document | section_{section id} |\n")
	sb.WriteString("| `concept` | Recurring or defined term | concept_{slug} |\n")
	sb.WriteString("| `entity` | Named entity | entity_{slug} |\n")
	sb.WriteString("\nEvery node carries description, importance, frequency, connections and documentIds.\n")
	sb.WriteString("\n## Relationship Types\n\n")
	sb.WriteString("| Type | Source -> Target | Meaning |\n")
	sb.WriteString("|------|------------------|---------|\n")
	sb.WriteString("| `mentions` | Document -> Concept/Entity | Term occurs in the document |\n")
	sb.WriteString("| `part_of` | Document -> Section, Item -> Item | Containment or membership |\n")
	sb.WriteString("| `defines` | Item -> Item | Sentence defines one term through another |\n")
	sb.WriteString("| `related_to` | Item -> Item | Terms co-occur in a sentence |\n")
	sb.WriteString("| `contradicts` | Item -> Item | Sentence contrasts the terms |\n")
	return sb.String()
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
