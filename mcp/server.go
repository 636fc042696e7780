// Package mcp provides the MCP (Model Context Protocol) server for docgraph.
//
// The server speaks MCP over stdio through the go-sdk and exposes the
// persisted knowledge graph as tools (search, query, network, related, stats)
// and resources (overview, schema).
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/graph"
	"github.com/Benny93/docgraph-go/internal/logger"
	"github.com/Benny93/docgraph-go/internal/storage"
)

const (
	serverName    = "docgraph"
	serverVersion = "0.1.0"

	defaultDepth = 2
	maxDepth     = 5
)

// Server represents the MCP server.
type Server struct {
	storage  StorageBackend
	embedder *embeddings.Embedder
	server   *mcp.Server

	mu    sync.Mutex
	graph *graph.KnowledgeGraph
}

// StorageBackend defines the storage operations the server reads from.
type StorageBackend interface {
	LoadSnapshot(ctx context.Context) (*graph.Snapshot, error)
	LoadDocuments(ctx context.Context) ([]storage.DocumentRecord, error)
	FTSSearch(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
	HybridSearch(ctx context.Context, query string, vector []float64, limit int) ([]storage.SearchResult, error)
	NodeCount() int
	RelationshipCount() int
	Close() error
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// Option configures a Server.
type Option func(*Server)

// WithEmbedder sets the embedder used to vectorize docgraph_query input.
// It should match the embedder the graph was built with.
func WithEmbedder(e *embeddings.Embedder) Option {
	return func(s *Server) {
		s.embedder = e
	}
}

// NewServer creates a new MCP server.
func NewServer(store StorageBackend, opts ...Option) *Server {
	s := &Server{
		storage:  store,
		embedder: embeddings.NewEmbedder(nil, embeddings.DocumentDimension),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	s.register()

	return s
}

// knowledgeGraph restores the stored snapshot on first use.
func (s *Server) knowledgeGraph(ctx context.Context) (*graph.KnowledgeGraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph != nil {
		return s.graph, nil
	}
	snap, err := s.storage.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	s.graph = snap.Graph()
	logger.Debug("Restored knowledge graph", "nodes", s.graph.NodeCount(), "relationships", s.graph.RelationshipCount())
	return s.graph, nil
}

// Reload drops the cached graph so the next call reads storage again.
func (s *Server) Reload() {
	s.mu.Lock()
	s.graph = nil
	s.mu.Unlock()
}

func objectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "docgraph_search",
			Description: "Find concepts, entities, sections and documents whose label or description contains the query, ranked by importance.",
			InputSchema: objectSchema([]string{"query"}, map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Substring to look for"},
				"limit": {Type: "integer", Description: "Maximum number of results"},
			}),
		},
		{
			Name:        "docgraph_query",
			Description: "Hybrid search of the knowledge graph: term-frequency ranking fused with embedding similarity.",
			InputSchema: objectSchema([]string{"query"}, map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search query text"},
				"limit": {Type: "integer", Description: "Maximum number of results"},
			}),
		},
		{
			Name:        "docgraph_network",
			Description: "Show the neighbourhood of a node: every node reachable within depth hops and the edges between them.",
			InputSchema: objectSchema([]string{"node_id"}, map[string]*jsonschema.Schema{
				"node_id": {Type: "string", Description: "Node ID, e.g. concept_photoresist"},
				"depth":   {Type: "integer", Description: "Maximum traversal depth"},
			}),
		},
		{
			Name:        "docgraph_related",
			Description: "List the documents most similar to a given document.",
			InputSchema: objectSchema([]string{"document_id"}, map[string]*jsonschema.Schema{
				"document_id": {Type: "string", Description: "Document ID or document node ID"},
				"limit":       {Type: "integer", Description: "Maximum number of results"},
			}),
		},
		{
			Name:        "docgraph_stats",
			Description: "Report graph size per node type and the processed documents.",
			InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{}),
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "docgraph://overview",
			Name:        "Knowledge Graph Overview",
			Description: "Graph size, topics and processed documents",
			MimeType:    "text/markdown",
		},
		{
			URI:         "docgraph://schema",
			Name:        "Knowledge Graph Schema",
			Description: "Node types and relationship types of the graph",
			MimeType:    "text/markdown",
		},
	}
}

// CallTool dispatches a tool call by name.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "docgraph_search":
		return s.handleSearch(ctx, stringArg(args, "query"), intArg(args, "limit", 10))
	case "docgraph_query":
		return s.handleQuery(ctx, stringArg(args, "query"), intArg(args, "limit", 10))
	case "docgraph_network":
		return s.handleNetwork(ctx, stringArg(args, "node_id"), intArg(args, "depth", defaultDepth))
	case "docgraph_related":
		return s.handleRelated(ctx, stringArg(args, "document_id"), intArg(args, "limit", 5))
	case "docgraph_stats":
		return s.handleStats(ctx)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource returns the content of a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "docgraph://overview":
		return s.overview(ctx)
	case "docgraph://schema":
		return schema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// intArg reads a numeric argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

// Run serves the MCP protocol over stdin and stdout until the client
// disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}
	return s.server.Run(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(stdin),
		Writer: nopWriteCloser{stdout},
	})
}

// Connect starts a session on an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// register exposes every tool and resource on the SDK server.
func (s *Server) register() {
	for _, tool := range s.ListTools() {
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, s.readResource)
	}
}

func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
			}
		}

		text, err := s.CallTool(ctx, name, args)
		if err != nil {
			logger.Warn("MCP tool call failed", "tool", name, "err", err)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	text, err := s.ReadResource(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "text/markdown", Text: text},
		},
	}, nil
}
