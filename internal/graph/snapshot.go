package graph

// Snapshot is a detached, serializable copy of a KnowledgeGraph or of a
// subgraph of one.
type Snapshot struct {
	Nodes         []*GraphNode         `json:"nodes"`
	Edges         []*GraphRelationship `json:"edges"`
	Topics        map[string][]string  `json:"topics,omitempty"`
	DocumentNodes map[string][]string  `json:"documentNodes,omitempty"`
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes)
}

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int {
	if s == nil {
		return 0
	}
	return len(s.Edges)
}

// Node returns the node with the given ID, or nil.
func (s *Snapshot) Node(id string) *GraphNode {
	if s == nil {
		return nil
	}
	for _, n := range s.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Graph rebuilds a live KnowledgeGraph from the snapshot.
func (s *Snapshot) Graph() *KnowledgeGraph {
	g := NewKnowledgeGraph()
	g.Restore(s)
	return g
}
