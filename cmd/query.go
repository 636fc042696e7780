package cmd

import (
	"context"
	"fmt"

	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/graph"
	"github.com/Benny93/docgraph-go/internal/ingestion"
)

// loadGraph restores the persisted knowledge graph.
func (a *App) loadGraph(ctx context.Context) (*graph.KnowledgeGraph, error) {
	store, err := a.openStore(true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	snap, err := store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	return snap.Graph(), nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 200 {
		return string(r[:200])
	}
	return s
}

// SearchCmd finds nodes whose label or description contains a query.
type SearchCmd struct {
	Query string `arg:"" help:"Substring to look for"`
	Limit int    `short:"n" default:"10" help:"Maximum results"`
}

// Run executes the search command.
func (c *SearchCmd) Run(app *App) error {
	g, err := app.loadGraph(context.Background())
	if err != nil {
		return err
	}

	results := ingestion.SearchNodes(g, c.Query, c.Limit)
	if len(results) == 0 {
		fmt.Fprintln(app.Out, "No results found")
		return nil
	}

	for i, r := range results {
		n := r.Node
		fmt.Fprintf(app.Out, "\n%d. %s (%s)\n", i+1, n.Name, n.Label)
		fmt.Fprintf(app.Out, "   ID: %s\n", n.ID)
		fmt.Fprintf(app.Out, "   Score: %.3f\n", r.Score)
		if n.Properties.Description != "" {
			fmt.Fprintf(app.Out, "   %s\n", snippet(n.Properties.Description))
		}
	}
	return nil
}

// QueryCmd runs a hybrid full-text and vector search.
type QueryCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"10" help:"Maximum results"`
}

// Run executes the query command.
func (c *QueryCmd) Run(app *App) error {
	ctx := context.Background()
	store, err := app.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	vector := app.embedder(embeddings.DocumentDimension).Embed(ctx, c.Query)
	results, err := store.HybridSearch(ctx, c.Query, vector, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(app.Out, "No results found")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(app.Out, "\n%d. %s (%s)\n", i+1, r.Name, r.Label)
		fmt.Fprintf(app.Out, "   ID: %s\n", r.NodeID)
		fmt.Fprintf(app.Out, "   Score: %.4f\n", r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(app.Out, "   %s\n", r.Snippet)
		}
	}
	return nil
}

// NetworkCmd prints the neighbourhood of a node.
type NetworkCmd struct {
	NodeID string `arg:"" help:"Node ID, e.g. concept_photoresist"`
	Depth  int    `short:"d" default:"2" help:"Maximum traversal depth"`
}

// Run executes the network command.
func (c *NetworkCmd) Run(app *App) error {
	g, err := app.loadGraph(context.Background())
	if err != nil {
		return err
	}

	network := ingestion.ConceptNetwork(g, c.NodeID, c.Depth)
	if network.NodeCount() == 0 {
		fmt.Fprintf(app.Out, "Node '%s' not found in the knowledge graph.\n", c.NodeID)
		return nil
	}

	fmt.Fprintf(app.Out, "## Network of %s (depth %d)\n\n", c.NodeID, c.Depth)
	fmt.Fprintf(app.Out, "### Nodes (%d)\n", network.NodeCount())
	for _, n := range network.Nodes {
		fmt.Fprintf(app.Out, "- %s (%s) %s\n", n.Name, n.Label, n.ID)
	}
	fmt.Fprintf(app.Out, "\n### Edges (%d)\n", network.EdgeCount())
	for _, e := range network.Edges {
		fmt.Fprintf(app.Out, "- %s -[%s %.2f]-> %s\n", e.Source, e.Type, e.Weight, e.Target)
	}
	return nil
}

// RelatedCmd lists documents similar to a document.
type RelatedCmd struct {
	DocumentID string `arg:"" help:"Document ID or document node ID"`
	Limit      int    `short:"n" default:"5" help:"Maximum results"`
}

// Run executes the related command.
func (c *RelatedCmd) Run(app *App) error {
	g, err := app.loadGraph(context.Background())
	if err != nil {
		return err
	}

	related := ingestion.RelatedDocuments(g, c.DocumentID, c.Limit)
	if len(related) == 0 {
		fmt.Fprintf(app.Out, "No documents related to '%s'.\n", c.DocumentID)
		return nil
	}

	for i, r := range related {
		fmt.Fprintf(app.Out, "%d. %s (%s) similarity %.3f\n", i+1, r.Title, r.DocumentID, r.Score)
	}
	return nil
}
