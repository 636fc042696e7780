package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/docgraph-go/internal/graph"
)

// Key prefixes for different data types
const (
	prefixNode     = "n:"   // n:nodeID -> storedNode
	prefixRel      = "r:"   // r:seq -> relationship
	prefixTopic    = "t:"   // t:topic -> []documentID
	prefixDocNodes = "d:"   // d:documentID -> []nodeID
	prefixDocument = "doc:" // doc:documentID -> DocumentRecord
	prefixFTS      = "fts:" // fts:token:nodeID -> frequency
)

var snapshotPrefixes = [][]byte{
	[]byte(prefixNode),
	[]byte(prefixRel),
	[]byte(prefixTopic),
	[]byte(prefixDocNodes),
	[]byte(prefixFTS),
}

// storedNode keeps the insertion position of a node so a loaded snapshot
// lists nodes in the order they were built.
type storedNode struct {
	Seq int `json:"seq"`
	*graph.GraphNode
}

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db                *badger.DB
	readOnly          bool
	mu                sync.RWMutex
	nodeCount         int
	relationshipCount int
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}
	b.db = db
	b.readOnly = readOnly

	return b.recount()
}

// recount refreshes the cached node and edge counts from the database.
func (b *BadgerBackend) recount() error {
	return b.db.View(func(txn *badger.Txn) error {
		b.nodeCount = countPrefix(txn, prefixNode)
		b.relationshipCount = countPrefix(txn, prefixRel)
		return nil
	})
}

func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	return err
}

// SaveSnapshot drops the stored graph and writes snap in one batch, with
// its full-text postings.
func (b *BadgerBackend) SaveSnapshot(ctx context.Context, snap *graph.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return ErrNotInitialized
	}
	if b.readOnly {
		return ErrReadOnly
	}
	if snap == nil {
		snap = emptySnapshot()
	}

	if err := b.db.DropPrefix(snapshotPrefixes...); err != nil {
		return fmt.Errorf("dropping graph: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for i, node := range snap.Nodes {
		if err := setJSON(wb, nodeKey(node.ID), storedNode{Seq: i, GraphNode: node}); err != nil {
			return fmt.Errorf("setting node: %w", err)
		}
		for term, freq := range nodeTerms(node) {
			if err := wb.Set(ftsKey(term, node.ID), []byte(strconv.Itoa(freq))); err != nil {
				return fmt.Errorf("setting token index: %w", err)
			}
		}
	}

	for i, rel := range snap.Edges {
		if err := setJSON(wb, relKey(i), rel); err != nil {
			return fmt.Errorf("setting relationship: %w", err)
		}
	}

	for topic, docs := range snap.Topics {
		if err := setJSON(wb, []byte(prefixTopic+topic), docs); err != nil {
			return fmt.Errorf("setting topic: %w", err)
		}
	}

	for docID, ids := range snap.DocumentNodes {
		if err := setJSON(wb, []byte(prefixDocNodes+docID), ids); err != nil {
			return fmt.Errorf("setting document index: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing graph: %w", err)
	}

	b.nodeCount = len(snap.Nodes)
	b.relationshipCount = len(snap.Edges)
	return nil
}

func setJSON(wb *badger.WriteBatch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return wb.Set(key, data)
}

// scanPrefix calls fn with the key suffix and value of every entry under
// prefix, in key order.
func scanPrefix(txn *badger.Txn, prefix string, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := strings.TrimPrefix(string(item.Key()), prefix)
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot reads the stored graph.
func (b *BadgerBackend) LoadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrNotInitialized
	}

	snap := emptySnapshot()
	var stored []storedNode

	err := b.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, prefixNode, func(_ string, val []byte) error {
			var sn storedNode
			if err := json.Unmarshal(val, &sn); err != nil {
				return fmt.Errorf("unmarshaling node: %w", err)
			}
			stored = append(stored, sn)
			return nil
		}); err != nil {
			return err
		}

		// Relationship keys are zero-padded, so key order is build order.
		if err := scanPrefix(txn, prefixRel, func(_ string, val []byte) error {
			var rel graph.GraphRelationship
			if err := json.Unmarshal(val, &rel); err != nil {
				return fmt.Errorf("unmarshaling relationship: %w", err)
			}
			snap.Edges = append(snap.Edges, &rel)
			return nil
		}); err != nil {
			return err
		}

		if err := scanPrefix(txn, prefixTopic, func(topic string, val []byte) error {
			var docs []string
			if err := json.Unmarshal(val, &docs); err != nil {
				return fmt.Errorf("unmarshaling topic: %w", err)
			}
			snap.Topics[topic] = docs
			return nil
		}); err != nil {
			return err
		}

		return scanPrefix(txn, prefixDocNodes, func(docID string, val []byte) error {
			var ids []string
			if err := json.Unmarshal(val, &ids); err != nil {
				return fmt.Errorf("unmarshaling document index: %w", err)
			}
			snap.DocumentNodes[docID] = ids
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(stored, func(i, j int) bool { return stored[i].Seq < stored[j].Seq })
	for _, sn := range stored {
		snap.Nodes = append(snap.Nodes, sn.GraphNode)
	}
	return snap, nil
}

// SaveDocuments replaces the stored document records.
func (b *BadgerBackend) SaveDocuments(ctx context.Context, docs []DocumentRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return ErrNotInitialized
	}
	if b.readOnly {
		return ErrReadOnly
	}

	if err := b.db.DropPrefix([]byte(prefixDocument)); err != nil {
		return fmt.Errorf("dropping documents: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, doc := range docs {
		if err := setJSON(wb, []byte(prefixDocument+doc.ID), doc); err != nil {
			return fmt.Errorf("setting document: %w", err)
		}
	}
	return wb.Flush()
}

// LoadDocuments returns the stored document records ordered by source.
func (b *BadgerBackend) LoadDocuments(ctx context.Context) ([]DocumentRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrNotInitialized
	}

	docs := []DocumentRecord{}
	err := b.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefixDocument, func(_ string, val []byte) error {
			var doc DocumentRecord
			if err := json.Unmarshal(val, &doc); err != nil {
				return fmt.Errorf("unmarshaling document: %w", err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// GetNode returns a single node by ID, or ErrNotFound.
func (b *BadgerBackend) GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrNotInitialized
	}

	var node *graph.GraphNode
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getNode(txn, nodeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// getNode reads a node inside txn.
func getNode(txn *badger.Txn, nodeID string) (*graph.GraphNode, error) {
	item, err := txn.Get(nodeKey(nodeID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("node %s: %w", nodeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting node: %w", err)
	}

	var sn storedNode
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sn)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling node: %w", err)
	}
	return sn.GraphNode, nil
}

// FTSSearch scans the persisted postings of each query token.
func (b *BadgerBackend) FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrNotInitialized
	}

	var results []SearchResult
	err := b.db.View(func(txn *badger.Txn) error {
		scores := make(map[string]int)
		for _, token := range queryTokens(query) {
			if err := scanPrefix(txn, prefixFTS+token+":", func(nodeID string, val []byte) error {
				freq, _ := strconv.Atoi(string(val))
				scores[nodeID] += freq
				return nil
			}); err != nil {
				return err
			}
		}

		results = rankScores(scores, limit, func(id string) *graph.GraphNode {
			node, err := getNode(txn, id)
			if err != nil {
				return nil
			}
			return node
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// VectorSearch finds nodes closest to the given vector using cosine similarity.
func (b *BadgerBackend) VectorSearch(ctx context.Context, vector []float64, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrNotInitialized
	}

	var nodes []*graph.GraphNode
	err := b.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefixNode, func(_ string, val []byte) error {
			var sn storedNode
			if err := json.Unmarshal(val, &sn); err != nil {
				return fmt.Errorf("unmarshaling node: %w", err)
			}
			nodes = append(nodes, sn.GraphNode)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rankByVector(nodes, vector, limit), nil
}

// HybridSearch combines FTS and vector search using RRF.
func (b *BadgerBackend) HybridSearch(ctx context.Context, query string, vector []float64, limit int) ([]SearchResult, error) {
	return HybridSearch(ctx, b, query, vector, limit, RRFConstant)
}

// NodeCount returns the node count.
func (b *BadgerBackend) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodeCount
}

// RelationshipCount returns the relationship count.
func (b *BadgerBackend) RelationshipCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.relationshipCount
}

func nodeKey(nodeID string) []byte {
	return []byte(prefixNode + nodeID)
}

func relKey(seq int) []byte {
	return fmt.Appendf(nil, "%s%010d", prefixRel, seq)
}

func ftsKey(token, nodeID string) []byte {
	return []byte(prefixFTS + token + ":" + nodeID)
}
