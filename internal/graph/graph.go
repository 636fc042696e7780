// Package graph provides the in-memory knowledge graph for docgraph.
//
// It provides a lightweight, map-backed graph that stores GraphNode
// instances with O(1) lookups by ID and an ordered, append-only list of
// GraphRelationship edges. Secondary indexes on label, relationship type
// and adjacency keep queries proportional to the result set.
package graph

import (
	"maps"
	"slices"
	"sync"
)

// KnowledgeGraph is an in-memory directed graph of documents, sections,
// concepts and entities.
//
// Nodes are keyed by ID and merge on re-encounter. Edges are appended in
// discovery order and never deduplicated. An edge may reference a node ID
// that is not (yet) present; readers skip such dangling endpoints.
//
// The graph also carries two document indexes: topic -> document IDs and
// document ID -> node IDs.
type KnowledgeGraph struct {
	mu            sync.RWMutex
	nodes         map[string]*GraphNode
	order         []string
	relationships []*GraphRelationship

	// Secondary indexes, kept in sync by the add helpers.
	byLabel   map[NodeLabel]map[string]*GraphNode
	byRelType map[RelType][]int
	outgoing  map[string][]int
	incoming  map[string][]int

	topics        map[string][]string
	documentNodes map[string][]string
}

// NewKnowledgeGraph creates a new empty knowledge graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	g := &KnowledgeGraph{}
	g.init()
	return g
}

func (g *KnowledgeGraph) init() {
	g.nodes = make(map[string]*GraphNode)
	g.order = nil
	g.relationships = nil
	g.byLabel = make(map[NodeLabel]map[string]*GraphNode)
	g.byRelType = make(map[RelType][]int)
	g.outgoing = make(map[string][]int)
	g.incoming = make(map[string][]int)
	g.topics = make(map[string][]string)
	g.documentNodes = make(map[string][]string)
}

// NodeCount returns the number of nodes without list materialization.
func (g *KnowledgeGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// RelationshipCount returns the number of relationships without list materialization.
func (g *KnowledgeGraph) RelationshipCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.relationships)
}

// CountNodesByLabel returns the count of nodes with the given label.
func (g *KnowledgeGraph) CountNodesByLabel(label NodeLabel) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if nodes, ok := g.byLabel[label]; ok {
		return len(nodes)
	}
	return 0
}

// Nodes returns all nodes in insertion order.
func (g *KnowledgeGraph) Nodes() []*GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*GraphNode, 0, len(g.order))
	for _, id := range g.order {
		result = append(result, g.nodes[id])
	}
	return result
}

// CloneNodes returns deep copies of the nodes in insertion order, limited
// to the given labels when any are passed. The copies are taken under the
// read lock, so callers may inspect them while merges continue.
func (g *KnowledgeGraph) CloneNodes(labels ...NodeLabel) []*GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*GraphNode, 0, len(g.order))
	for _, id := range g.order {
		node := g.nodes[id]
		if len(labels) > 0 && !slices.Contains(labels, node.Label) {
			continue
		}
		result = append(result, node.Clone())
	}
	return result
}

// CloneNode returns a deep copy of the node with the given ID, or nil.
func (g *KnowledgeGraph) CloneNode(nodeID string) *GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[nodeID].Clone()
}

// Relationships returns all relationships in discovery order, including
// any whose endpoints are missing.
func (g *KnowledgeGraph) Relationships() []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.relationships)
}

// AddNode adds a node to the graph, replacing any existing node with the same ID.
// If the node's label differs from an existing node, the old label index is updated.
func (g *KnowledgeGraph) AddNode(node *GraphNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.putNode(node)
}

func (g *KnowledgeGraph) putNode(node *GraphNode) {
	old, exists := g.nodes[node.ID]
	if exists && old.Label != node.Label {
		delete(g.byLabel[old.Label], node.ID)
	}
	if !exists {
		g.order = append(g.order, node.ID)
	}

	g.nodes[node.ID] = node

	if g.byLabel[node.Label] == nil {
		g.byLabel[node.Label] = make(map[string]*GraphNode)
	}
	g.byLabel[node.Label][node.ID] = node
}

// MergeNode inserts node if its ID is new, otherwise folds it into the
// existing node: frequency accumulates, importance takes the max and
// documentID joins the referencing set. It returns the stored node and
// whether it was newly created.
func (g *KnowledgeGraph) MergeNode(node *GraphNode, documentID string) (*GraphNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok := g.nodes[node.ID]
	if !ok {
		if node.Properties.Frequency < 1 {
			node.Properties.Frequency = 1
		}
		node.Properties.AddDocument(documentID)
		g.putNode(node)
		return node, true
	}

	existing.Properties.Frequency += max(node.Properties.Frequency, 1)
	existing.Properties.Importance = max(existing.Properties.Importance, node.Properties.Importance)
	existing.Properties.AddDocument(documentID)
	if existing.Properties.Description == "" {
		existing.Properties.Description = node.Properties.Description
	}
	if len(existing.Embedding) == 0 {
		existing.Embedding = node.Embedding
	}
	return existing, false
}

// GetNode returns the node with the given ID, or nil if it does not exist.
func (g *KnowledgeGraph) GetNode(nodeID string) *GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[nodeID]
}

// AddRelationship appends a relationship to the graph and bumps the
// connection count of whichever endpoints exist. Endpoints are not
// validated.
func (g *KnowledgeGraph) AddRelationship(rel *GraphRelationship) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.appendRelationship(rel)
	if src, ok := g.nodes[rel.Source]; ok {
		src.Properties.Connections++
	}
	if dst, ok := g.nodes[rel.Target]; ok && rel.Target != rel.Source {
		dst.Properties.Connections++
	}
}

func (g *KnowledgeGraph) appendRelationship(rel *GraphRelationship) {
	idx := len(g.relationships)
	g.relationships = append(g.relationships, rel)
	g.byRelType[rel.Type] = append(g.byRelType[rel.Type], idx)
	g.outgoing[rel.Source] = append(g.outgoing[rel.Source], idx)
	g.incoming[rel.Target] = append(g.incoming[rel.Target], idx)
}

// GetNodesByLabel returns all nodes with the given label in insertion order.
func (g *KnowledgeGraph) GetNodesByLabel(label NodeLabel) []*GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes, ok := g.byLabel[label]
	if !ok {
		return nil
	}

	result := make([]*GraphNode, 0, len(nodes))
	for _, id := range g.order {
		if node, ok := nodes[id]; ok {
			result = append(result, node)
		}
	}
	return result
}

// GetRelationshipsByType returns all relationships with the given type.
func (g *KnowledgeGraph) GetRelationshipsByType(relType RelType) []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collect(g.byRelType[relType], "")
}

// GetOutgoing returns relationships originating from the given node ID.
// If relType is provided, only relationships of that type are returned.
func (g *KnowledgeGraph) GetOutgoing(nodeID string, relType ...RelType) []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collect(g.outgoing[nodeID], firstType(relType))
}

// GetIncoming returns relationships targeting the given node ID.
// If relType is provided, only relationships of that type are returned.
func (g *KnowledgeGraph) GetIncoming(nodeID string, relType ...RelType) []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collect(g.incoming[nodeID], firstType(relType))
}

func firstType(relType []RelType) RelType {
	if len(relType) > 0 {
		return relType[0]
	}
	return ""
}

// collect must be called with the read lock held.
func (g *KnowledgeGraph) collect(indexes []int, relType RelType) []*GraphRelationship {
	if len(indexes) == 0 {
		return nil
	}
	result := make([]*GraphRelationship, 0, len(indexes))
	for _, idx := range indexes {
		rel := g.relationships[idx]
		if relType != "" && rel.Type != relType {
			continue
		}
		result = append(result, rel)
	}
	return result
}

// Neighbors returns the IDs of existing nodes connected to nodeID by an
// edge in either direction, in edge discovery order.
func (g *KnowledgeGraph) Neighbors(nodeID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	indexes := append(slices.Clone(g.outgoing[nodeID]), g.incoming[nodeID]...)
	slices.Sort(indexes)

	seen := make(map[string]bool)
	var result []string
	for _, idx := range indexes {
		rel := g.relationships[idx]
		other := rel.Target
		if other == nodeID {
			other = rel.Source
		}
		if other == nodeID || seen[other] {
			continue
		}
		if _, ok := g.nodes[other]; !ok {
			continue
		}
		seen[other] = true
		result = append(result, other)
	}
	return result
}

// AddTopic records that documentID covers topic.
func (g *KnowledgeGraph) AddTopic(topic, documentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !slices.Contains(g.topics[topic], documentID) {
		g.topics[topic] = append(g.topics[topic], documentID)
	}
}

// DocumentsForTopic returns the IDs of documents covering topic.
func (g *KnowledgeGraph) DocumentsForTopic(topic string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.topics[topic])
}

// RebuildDocumentIndex recomputes the node set of documentID by scanning
// every node for membership.
func (g *KnowledgeGraph) RebuildDocumentIndex(documentID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ids []string
	for _, id := range g.order {
		if g.nodes[id].Properties.HasDocument(documentID) {
			ids = append(ids, id)
		}
	}
	g.documentNodes[documentID] = ids
	return slices.Clone(ids)
}

// DocumentNodes returns the node IDs indexed for documentID.
func (g *KnowledgeGraph) DocumentNodes(documentID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.documentNodes[documentID])
}

// Subgraph returns the subgraph induced by nodeIDs: the existing nodes in
// the given order and every edge whose endpoints are both in the set.
func (g *KnowledgeGraph) Subgraph(nodeIDs []string) *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &Snapshot{Nodes: []*GraphNode{}, Edges: []*GraphRelationship{}}
	members := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		node, ok := g.nodes[id]
		if !ok || members[id] {
			continue
		}
		members[id] = true
		snap.Nodes = append(snap.Nodes, node.Clone())
	}

	for _, rel := range g.relationships {
		if members[rel.Source] && members[rel.Target] {
			c := *rel
			snap.Edges = append(snap.Edges, &c)
		}
	}
	return snap
}

// Snapshot returns a deep copy of the whole graph.
func (g *KnowledgeGraph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &Snapshot{
		Nodes:         make([]*GraphNode, 0, len(g.order)),
		Edges:         make([]*GraphRelationship, 0, len(g.relationships)),
		Topics:        make(map[string][]string, len(g.topics)),
		DocumentNodes: make(map[string][]string, len(g.documentNodes)),
	}
	for _, id := range g.order {
		snap.Nodes = append(snap.Nodes, g.nodes[id].Clone())
	}
	for _, rel := range g.relationships {
		c := *rel
		snap.Edges = append(snap.Edges, &c)
	}
	for topic, docs := range g.topics {
		snap.Topics[topic] = slices.Clone(docs)
	}
	for doc, ids := range g.documentNodes {
		snap.DocumentNodes[doc] = slices.Clone(ids)
	}
	return snap
}

// Restore replaces the graph contents with a snapshot. Connection counts
// are taken from the snapshot as-is.
func (g *KnowledgeGraph) Restore(snap *Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.init()
	if snap == nil {
		return
	}
	for _, node := range snap.Nodes {
		g.putNode(node.Clone())
	}
	for _, rel := range snap.Edges {
		c := *rel
		g.appendRelationship(&c)
	}
	for topic, docs := range snap.Topics {
		g.topics[topic] = slices.Clone(docs)
	}
	for doc, ids := range snap.DocumentNodes {
		g.documentNodes[doc] = slices.Clone(ids)
	}
}

// Reset removes every node, edge and index entry.
func (g *KnowledgeGraph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.init()
}

// Topics returns a copy of the topic index.
func (g *KnowledgeGraph) Topics() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := maps.Clone(g.topics)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}

// Stats returns a summary of graph size.
func (g *KnowledgeGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := map[string]int{
		"nodes":         len(g.nodes),
		"relationships": len(g.relationships),
		"topics":        len(g.topics),
	}
	for _, label := range AllNodeLabels {
		stats[string(label)] = len(g.byLabel[label])
	}
	return stats
}
