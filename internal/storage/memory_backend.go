package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/Benny93/docgraph-go/internal/graph"
)

// MemoryBackend is an in-memory implementation of Backend, used by tests
// and by the MCP server when no store exists yet.
type MemoryBackend struct {
	mu          sync.RWMutex
	initialized bool
	snap        *graph.Snapshot
	nodes       map[string]*graph.GraphNode
	index       invertedIndex
	docs        []DocumentRecord
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func emptySnapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Nodes:         []*graph.GraphNode{},
		Edges:         []*graph.GraphRelationship{},
		Topics:        map[string][]string{},
		DocumentNodes: map[string][]string{},
	}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	if m.snap == nil {
		m.load(emptySnapshot())
	}
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	return nil
}

// load installs snap; the caller holds the lock.
func (m *MemoryBackend) load(snap *graph.Snapshot) {
	m.snap = snap
	m.nodes = make(map[string]*graph.GraphNode, len(snap.Nodes))
	for _, n := range snap.Nodes {
		m.nodes[n.ID] = n
	}
	m.index = newInvertedIndex(snap.Nodes)
}

// SaveSnapshot implements Backend.
func (m *MemoryBackend) SaveSnapshot(ctx context.Context, snap *graph.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	if snap == nil {
		snap = emptySnapshot()
	}
	// A round trip through a live graph detaches the stored copy.
	m.load(snap.Graph().Snapshot())
	return nil
}

// LoadSnapshot implements Backend.
func (m *MemoryBackend) LoadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	return m.snap.Graph().Snapshot(), nil
}

// SaveDocuments implements Backend.
func (m *MemoryBackend) SaveDocuments(ctx context.Context, docs []DocumentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	m.docs = slices.Clone(docs)
	sort.SliceStable(m.docs, func(i, j int) bool { return m.docs[i].Source < m.docs[j].Source })
	return nil
}

// LoadDocuments implements Backend.
func (m *MemoryBackend) LoadDocuments(ctx context.Context) ([]DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]DocumentRecord, len(m.docs))
	copy(out, m.docs)
	return out, nil
}

// GetNode implements Backend.
func (m *MemoryBackend) GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	node, ok := m.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", nodeID, ErrNotFound)
	}
	return node.Clone(), nil
}

// FTSSearch implements Backend.
func (m *MemoryBackend) FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	return rankScores(m.index.score(query), limit, func(id string) *graph.GraphNode {
		return m.nodes[id]
	}), nil
}

// VectorSearch implements Backend.
func (m *MemoryBackend) VectorSearch(ctx context.Context, vector []float64, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	return rankByVector(m.snap.Nodes, vector, limit), nil
}

// HybridSearch implements Backend.
func (m *MemoryBackend) HybridSearch(ctx context.Context, query string, vector []float64, limit int) ([]SearchResult, error) {
	return HybridSearch(ctx, m, query, vector, limit, RRFConstant)
}

// NodeCount implements Backend.
func (m *MemoryBackend) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.NodeCount()
}

// RelationshipCount implements Backend.
func (m *MemoryBackend) RelationshipCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.EdgeCount()
}
