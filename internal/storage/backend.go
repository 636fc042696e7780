// Package storage persists the knowledge graph produced by a docgraph run.
//
// It defines the Backend interface that all storage implementations must
// satisfy, along with the record and search types shared by the Badger and
// in-memory backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/graph"
)

var (
	// ErrNotInitialized is returned by operations on a closed or
	// never-initialized backend.
	ErrNotInitialized = errors.New("storage not initialized")

	// ErrNotFound is returned when a node does not exist.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly is returned by writes to a backend opened read-only.
	ErrReadOnly = errors.New("storage opened read-only")
)

// RRFConstant is the k of reciprocal rank fusion.
const RRFConstant = 60

// SearchResult represents a search hit.
type SearchResult struct {
	// NodeID is the ID of the matching node.
	NodeID string `json:"nodeId"`

	// Score is the relevance score (higher is better).
	Score float64 `json:"score"`

	// Name is the display label of the node.
	Name string `json:"name"`

	// Label is the node type.
	Label graph.NodeLabel `json:"label"`

	// Snippet is an excerpt of the node description.
	Snippet string `json:"snippet,omitempty"`
}

// DocumentRecord is the persisted digest of one processed document. It
// lets later runs tell which files changed since the graph was built.
type DocumentRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	Format      string    `json:"format"`
	SHA256      string    `json:"sha256,omitempty"`
	WordCount   int       `json:"wordCount"`
	Topics      []string  `json:"topics"`
	Summary     string    `json:"summary"`
	ProcessedAt time.Time `json:"processedAt"`
}

// NewDocumentRecord digests a processed document. digest is the SHA-256 of
// the source file, empty for URLs and inline text.
func NewDocumentRecord(doc *document.ProcessedDocument, digest string) DocumentRecord {
	return DocumentRecord{
		ID:          doc.ID,
		Title:       doc.Title,
		Source:      doc.Metadata.Source,
		Format:      string(doc.Metadata.Format),
		SHA256:      digest,
		WordCount:   doc.Metadata.WordCount,
		Topics:      doc.Metadata.Topics,
		Summary:     doc.Metadata.Summary,
		ProcessedAt: doc.CreatedAt,
	}
}

// Backend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// SaveSnapshot replaces the stored graph with snap and reindexes it.
	SaveSnapshot(ctx context.Context, snap *graph.Snapshot) error

	// LoadSnapshot returns the stored graph. An empty store yields an
	// empty snapshot.
	LoadSnapshot(ctx context.Context) (*graph.Snapshot, error)

	// SaveDocuments replaces the stored document records.
	SaveDocuments(ctx context.Context, docs []DocumentRecord) error

	// LoadDocuments returns the stored document records ordered by source.
	LoadDocuments(ctx context.Context) ([]DocumentRecord, error)

	// GetNode returns a single node by ID, or ErrNotFound.
	GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error)

	// FTSSearch ranks nodes by term frequency of the query tokens in their
	// label and description.
	FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// VectorSearch ranks nodes by cosine similarity of their embeddings
	// to vector. Nodes with no positive similarity are left out.
	VectorSearch(ctx context.Context, vector []float64, limit int) ([]SearchResult, error)

	// HybridSearch fuses FTSSearch and VectorSearch with reciprocal rank
	// fusion.
	HybridSearch(ctx context.Context, query string, vector []float64, limit int) ([]SearchResult, error)

	// NodeCount returns the number of stored nodes.
	NodeCount() int

	// RelationshipCount returns the number of stored edges.
	RelationshipCount() int
}
