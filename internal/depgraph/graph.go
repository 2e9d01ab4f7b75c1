package depgraph

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateActivity = errors.New("activity already registered")
	ErrUnknownNode       = errors.New("unknown node")
	ErrCyclicDependency  = errors.New("dependency points forward in history")
	ErrDuplicateEdge     = errors.New("duplicate dependency edge")
)

// node stores one activity and its dependency edges. Edges point to earlier
// nodes only; dependents is the reverse view maintained alongside.
type node struct {
	activity   ActivityID
	edges      []Edge
	dependents []NodeID
}

// Graph is an append-only DAG over session activities. Nodes are stored in
// an arena in insertion order, which doubles as the topological order: every
// edge points from a later node to an earlier one. Build the graph fully
// before querying it from other goroutines; it is not safe for concurrent
// mutation.
type Graph struct {
	nodes      []node
	byActivity map[ActivityID]NodeID
}

// NewGraph returns an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{byActivity: make(map[ActivityID]NodeID)}
}

// AddActivity registers an activity and returns its node handle.
// Fails with ErrDuplicateActivity if the activity is already in the graph.
func (g *Graph) AddActivity(id ActivityID) (NodeID, error) {
	if existing, ok := g.byActivity[id]; ok {
		return existing, fmt.Errorf("adding activity %d: %w", id, ErrDuplicateActivity)
	}

	nodeID := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{activity: id})
	g.byActivity[id] = nodeID
	return nodeID, nil
}

// AddDependency appends a dependency edge from source to an earlier node.
// Fails with ErrUnknownNode if either end is not in the graph, with
// ErrCyclicDependency if the edge would not point backwards in insertion
// order, and with ErrDuplicateEdge if source already has an edge to the same
// target for the same reason.
func (g *Graph) AddDependency(source NodeID, edge Edge) error {
	if !g.contains(source) {
		return fmt.Errorf("adding dependency from node %d: %w", source, ErrUnknownNode)
	}
	if !g.contains(edge.To) {
		return fmt.Errorf("adding dependency to node %d: %w", edge.To, ErrUnknownNode)
	}
	if edge.To >= source {
		return fmt.Errorf("node %d cannot depend on node %d: %w", source, edge.To, ErrCyclicDependency)
	}

	src := &g.nodes[source]
	for _, existing := range src.edges {
		if existing.To == edge.To && existing.Reason == edge.Reason {
			return fmt.Errorf("node %d already depends on node %d (%s): %w", source, edge.To, edge.Reason, ErrDuplicateEdge)
		}
	}
	src.edges = append(src.edges, edge)

	target := &g.nodes[edge.To]
	for _, dep := range target.dependents {
		if dep == source {
			return nil
		}
	}
	target.dependents = append(target.dependents, source)
	return nil
}

// FindNode returns the node handle for an activity, if registered.
func (g *Graph) FindNode(id ActivityID) (NodeID, bool) {
	nodeID, ok := g.byActivity[id]
	return nodeID, ok
}

// ActivityOf returns the activity stored at a node.
func (g *Graph) ActivityOf(id NodeID) ActivityID {
	return g.nodes[id].activity
}

// EdgesOf returns the outgoing dependency edges of a node in insertion
// order. The returned slice is owned by the graph; callers must not modify
// it.
func (g *Graph) EdgesOf(id NodeID) []Edge {
	return g.nodes[id].edges
}

// Dependents returns the nodes that have at least one dependency edge to
// the given node. The returned slice is owned by the graph.
func (g *Graph) Dependents(id NodeID) []NodeID {
	return g.nodes[id].dependents
}

// DependsOn reports whether source has a direct edge to target with the
// given strength.
func (g *Graph) DependsOn(source, target NodeID, strength Strength) bool {
	for _, edge := range g.nodes[source].edges {
		if edge.To == target && edge.Strength == strength {
			return true
		}
	}
	return false
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Nodes returns all node handles in insertion order.
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, len(g.nodes))
	for i := range ids {
		ids[i] = NodeID(i)
	}
	return ids
}

func (g *Graph) contains(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}
