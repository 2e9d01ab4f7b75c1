package depgraph

import (
	"errors"
	"testing"
)

func TestGraph_AddActivity(t *testing.T) {
	g := NewGraph()

	first, err := g.AddActivity(10)
	if err != nil {
		t.Fatalf("AddActivity(10) failed: %v", err)
	}
	second, err := g.AddActivity(20)
	if err != nil {
		t.Fatalf("AddActivity(20) failed: %v", err)
	}
	if first == second {
		t.Errorf("expected distinct node IDs, got %d twice", first)
	}

	if _, err := g.AddActivity(10); !errors.Is(err, ErrDuplicateActivity) {
		t.Errorf("expected ErrDuplicateActivity, got %v", err)
	}

	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, expected 2", g.NodeCount())
	}
}

func TestGraph_FindNode(t *testing.T) {
	g := NewGraph()
	nodeID, err := g.AddActivity(42)
	if err != nil {
		t.Fatalf("AddActivity failed: %v", err)
	}

	found, ok := g.FindNode(42)
	if !ok || found != nodeID {
		t.Errorf("FindNode(42) = (%d, %v), expected (%d, true)", found, ok, nodeID)
	}
	if _, ok := g.FindNode(9999); ok {
		t.Error("FindNode(9999) should not find anything")
	}
	if g.ActivityOf(nodeID) != 42 {
		t.Errorf("ActivityOf(%d) = %d, expected 42", nodeID, g.ActivityOf(nodeID))
	}
}

func TestGraph_AddDependency(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddActivity(1)
	b, _ := g.AddActivity(2)

	if err := g.AddDependency(b, Edge{To: a, Reason: ReasonPackageCreation, Strength: Hard}); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	edges := g.EdgesOf(b)
	if len(edges) != 1 {
		t.Fatalf("EdgesOf returned %d edges, expected 1", len(edges))
	}
	if edges[0].To != a || edges[0].Reason != ReasonPackageCreation || edges[0].Strength != Hard {
		t.Errorf("unexpected edge %+v", edges[0])
	}

	dependents := g.Dependents(a)
	if len(dependents) != 1 || dependents[0] != b {
		t.Errorf("Dependents(%d) = %v, expected [%d]", a, dependents, b)
	}
}

func TestGraph_AddDependencyErrors(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddActivity(1)
	b, _ := g.AddActivity(2)
	if err := g.AddDependency(b, Edge{To: a, Reason: ReasonPackageEdit, Strength: Possible}); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	tests := []struct {
		name    string
		source  NodeID
		edge    Edge
		wantErr error
	}{
		{"unknown source", NodeID(99), Edge{To: a, Reason: ReasonPackageEdit}, ErrUnknownNode},
		{"unknown target", b, Edge{To: NodeID(99), Reason: ReasonPackageEdit}, ErrUnknownNode},
		{"forward edge", a, Edge{To: b, Reason: ReasonPackageEdit}, ErrCyclicDependency},
		{"self loop", b, Edge{To: b, Reason: ReasonPackageEdit}, ErrCyclicDependency},
		{"duplicate edge", b, Edge{To: a, Reason: ReasonPackageEdit, Strength: Hard}, ErrDuplicateEdge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.AddDependency(tt.source, tt.edge); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddDependency() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}

	// Same target with a different reason is a distinct edge, not a duplicate.
	if err := g.AddDependency(b, Edge{To: a, Reason: ReasonSubobjectCreation, Strength: Hard}); err != nil {
		t.Errorf("AddDependency with different reason failed: %v", err)
	}
	if len(g.EdgesOf(b)) != 2 {
		t.Errorf("EdgesOf returned %d edges, expected 2", len(g.EdgesOf(b)))
	}
	// Still only one dependent entry for the pair.
	if len(g.Dependents(a)) != 1 {
		t.Errorf("Dependents returned %d entries, expected 1", len(g.Dependents(a)))
	}
}

func TestGraph_InsertionOrderIsTopological(t *testing.T) {
	g := NewGraph()
	ids := []ActivityID{5, 17, 23, 99}
	for _, id := range ids {
		if _, err := g.AddActivity(id); err != nil {
			t.Fatalf("AddActivity(%d) failed: %v", id, err)
		}
	}

	nodes := g.Nodes()
	if len(nodes) != len(ids) {
		t.Fatalf("Nodes() returned %d nodes, expected %d", len(nodes), len(ids))
	}
	for i, nodeID := range nodes {
		if g.ActivityOf(nodeID) != ids[i] {
			t.Errorf("node %d holds activity %d, expected %d", i, g.ActivityOf(nodeID), ids[i])
		}
	}

	// Wire everything to its predecessor and verify every edge points
	// backwards in insertion order.
	for i := 1; i < len(nodes); i++ {
		if err := g.AddDependency(nodes[i], Edge{To: nodes[i-1], Reason: ReasonPackageEdit, Strength: Possible}); err != nil {
			t.Fatalf("AddDependency failed: %v", err)
		}
	}
	for _, nodeID := range nodes {
		for _, edge := range g.EdgesOf(nodeID) {
			if edge.To >= nodeID {
				t.Errorf("edge from %d to %d does not point backwards", nodeID, edge.To)
			}
		}
	}
}

func TestGraph_DependsOn(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddActivity(1)
	b, _ := g.AddActivity(2)
	c, _ := g.AddActivity(3)
	if err := g.AddDependency(c, Edge{To: a, Reason: ReasonPackageEdit, Strength: Possible}); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	if !g.DependsOn(c, a, Possible) {
		t.Error("expected c to possibly depend on a")
	}
	if g.DependsOn(c, a, Hard) {
		t.Error("c should not hard-depend on a")
	}
	if g.DependsOn(c, b, Possible) {
		t.Error("c should not depend on b")
	}
}
