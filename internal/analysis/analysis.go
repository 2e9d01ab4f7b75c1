// Package analysis determines which activities must be deleted together.
//
// Given a set of activities flagged for deletion, it walks the dependency
// graph against edge direction and partitions every transitive dependent
// into hard requirements (an all-hard path back to a seed exists) and
// possible requirements (it depends on a seed, but every path crosses at
// least one possible edge).
package analysis

import (
	"sort"

	"histedit/internal/depgraph"
)

// Requirements is the outcome of a deletion analysis. The two sets are
// disjoint and never contain a seed activity.
type Requirements struct {
	// Hard holds activities that must be deleted along with the seeds.
	Hard map[depgraph.ActivityID]bool
	// Possible holds activities that may need deleting, depending on
	// external policy.
	Possible map[depgraph.ActivityID]bool
}

// HardIDs returns the hard requirements in ascending activity order.
func (r Requirements) HardIDs() []depgraph.ActivityID {
	return sortedIDs(r.Hard)
}

// PossibleIDs returns the possible requirements in ascending activity order.
func (r Requirements) PossibleIDs() []depgraph.ActivityID {
	return sortedIDs(r.Possible)
}

func sortedIDs(set map[depgraph.ActivityID]bool) []depgraph.ActivityID {
	ids := make([]depgraph.ActivityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AnalyzeDeletion computes the deletion requirements for the given seed
// activities. Seed IDs not present in the graph are ignored: they have no
// dependents to report. The analysis itself cannot fail.
//
// A dependent is reachable over many paths, and the strength of a path is
// the minimum strength of its edges. Classification takes the maximum over
// all paths, so the traversal relaxes nodes like a shortest-path search on
// the max-min lattice: whenever a node is reached with a stronger path
// strength than previously recorded, it is upgraded and re-enqueued. A
// first-visit classification would get this wrong when a possible-only path
// is discovered before an all-hard one.
func AnalyzeDeletion(seeds []depgraph.ActivityID, g *depgraph.Graph) Requirements {
	result := Requirements{
		Hard:     make(map[depgraph.ActivityID]bool),
		Possible: make(map[depgraph.ActivityID]bool),
	}

	// Seeds start at Hard so the first hop inherits the first edge's
	// strength unchanged.
	reached := make(map[depgraph.NodeID]depgraph.Strength)
	isSeed := make(map[depgraph.NodeID]bool)
	var queue []depgraph.NodeID
	for _, seed := range seeds {
		nodeID, ok := g.FindNode(seed)
		if !ok || isSeed[nodeID] {
			continue
		}
		isSeed[nodeID] = true
		reached[nodeID] = depgraph.Hard
		queue = append(queue, nodeID)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		currentStrength := reached[current]

		for _, dependent := range g.Dependents(current) {
			arrival := arrivalStrength(g, dependent, current, currentStrength)
			if previous, ok := reached[dependent]; ok && previous >= arrival {
				continue
			}
			reached[dependent] = arrival
			queue = append(queue, dependent)
		}
	}

	for nodeID, strength := range reached {
		if isSeed[nodeID] {
			continue
		}
		activity := g.ActivityOf(nodeID)
		if strength == depgraph.Hard {
			result.Hard[activity] = true
		} else {
			result.Possible[activity] = true
		}
	}
	return result
}

// arrivalStrength is the strength with which dependent is reached via
// target: the strongest edge dependent->target, capped by the strength with
// which target itself was reached.
func arrivalStrength(g *depgraph.Graph, dependent, target depgraph.NodeID, targetStrength depgraph.Strength) depgraph.Strength {
	best := depgraph.Possible
	for _, edge := range g.EdgesOf(dependent) {
		if edge.To != target {
			continue
		}
		if edge.Strength > best {
			best = edge.Strength
		}
	}
	if targetStrength < best {
		return targetStrength
	}
	return best
}
