// Package deps builds the activity dependency graph from a session store.
//
// Activities are processed in creation order. For each one the builder
// first adds edges to every earlier activity that affected something it
// touches, then records what it touched itself, so the whole history is
// processed in a single pass.
package deps

import (
	"fmt"

	"histedit/internal/depgraph"
	"histedit/internal/session"
)

type subobjectState int

const (
	subobjectCreated subobjectState = iota
	subobjectRemoved
)

type subobjectEntry struct {
	activity depgraph.ActivityID
	state    subobjectState
}

// packageTracker remembers, per package name, the last activity that
// added, saved, renamed, removed or modified it, and per object path the
// last transaction that created or removed the object.
type packageTracker struct {
	added      map[string]depgraph.ActivityID
	saved      map[string]depgraph.ActivityID
	removed    map[string]depgraph.ActivityID
	renamed    map[string]depgraph.ActivityID
	modified   map[string]depgraph.ActivityID
	subobjects map[string]subobjectEntry
}

type builder struct {
	graph   *depgraph.Graph
	tracker packageTracker
}

// BuildGraph constructs the dependency graph for the session history.
// Connection and lock activities carry no dependency semantics and are
// skipped; they never appear in the graph.
func BuildGraph(db *session.DB) (*depgraph.Graph, error) {
	b := &builder{
		graph: depgraph.NewGraph(),
		tracker: packageTracker{
			added:      make(map[string]depgraph.ActivityID),
			saved:      make(map[string]depgraph.ActivityID),
			removed:    make(map[string]depgraph.ActivityID),
			renamed:    make(map[string]depgraph.ActivityID),
			modified:   make(map[string]depgraph.ActivityID),
			subobjects: make(map[string]subobjectEntry),
		},
	}

	err := db.EnumerateActivities(func(activity *session.Activity) error {
		switch activity.Type {
		case session.EventPackage:
			return b.addPackageActivity(activity)
		case session.EventTransaction:
			return b.addTransactionActivity(activity)
		default:
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return b.graph, nil
}

func (b *builder) addTransactionActivity(activity *session.Activity) error {
	id := depgraph.ActivityID(activity.ID)
	nodeID, err := b.graph.AddActivity(id)
	if err != nil {
		return err
	}
	info := activity.Transaction

	// Referencing an object ties the transaction to whichever earlier
	// transaction created or removed it.
	hardTargets := make(map[depgraph.ActivityID]bool)
	for _, obj := range info.ExportedObjects {
		entry, ok := b.tracker.subobjects[obj.Path]
		if !ok {
			continue
		}
		reason := depgraph.ReasonSubobjectCreation
		if entry.state == subobjectRemoved {
			reason = depgraph.ReasonSubobjectRemoval
		}
		if err := b.addEdge(nodeID, entry.activity, reason, depgraph.Hard); err != nil {
			return err
		}
		hardTargets[entry.activity] = true
	}

	for _, pkg := range info.ModifiedPackages {
		if last, ok := b.tracker.modified[pkg]; ok {
			// A hard edge to that activity already says we definitely
			// depend on it; a possible edge on top would be noise.
			if !hardTargets[last] {
				if err := b.addEdge(nodeID, last, depgraph.ReasonPackageEdit, depgraph.Possible); err != nil {
					return err
				}
			}
		} else if last, ok := b.tracker.added[pkg]; ok {
			if err := b.addEdge(nodeID, last, depgraph.ReasonPackageCreation, depgraph.Hard); err != nil {
				return err
			}
		} else if last, ok := b.tracker.renamed[pkg]; ok {
			if err := b.addEdge(nodeID, last, depgraph.ReasonPackageRename, depgraph.Hard); err != nil {
				return err
			}
		}
	}

	// Track what this transaction touched.
	for _, pkg := range info.ModifiedPackages {
		b.tracker.modified[pkg] = id
	}
	for _, obj := range info.ExportedObjects {
		if obj.AllowCreate {
			b.tracker.subobjects[obj.Path] = subobjectEntry{activity: id, state: subobjectCreated}
		} else if obj.PendingKill {
			b.tracker.subobjects[obj.Path] = subobjectEntry{activity: id, state: subobjectRemoved}
		}
	}
	return nil
}

func (b *builder) addPackageActivity(activity *session.Activity) error {
	id := depgraph.ActivityID(activity.ID)
	nodeID, err := b.graph.AddActivity(id)
	if err != nil {
		return err
	}
	info := activity.Package

	switch info.UpdateType {
	case session.PackageAdded:
		err = b.addLatest(nodeID,
			b.candidate(b.tracker.removed, info.Name, depgraph.ReasonPackageRemoval, depgraph.Hard),
			b.candidate(b.tracker.renamed, info.Name, depgraph.ReasonPackageRename, depgraph.Hard),
		)
		b.tracker.added[info.Name] = id

	case session.PackageSaved:
		err = b.addLatest(nodeID,
			b.candidate(b.tracker.added, info.Name, depgraph.ReasonPackageCreation, depgraph.Hard),
			b.candidate(b.tracker.renamed, info.Name, depgraph.ReasonPackageRename, depgraph.Hard),
		)
		b.tracker.saved[info.Name] = id

	case session.PackageRenamed:
		if err = b.addRenameDependencies(nodeID, info.NewName); err != nil {
			return err
		}
		if err = b.addRenameDependencies(nodeID, info.Name); err != nil {
			return err
		}
		b.tracker.renamed[info.NewName] = id

	case session.PackageDeleted:
		err = b.addLatest(nodeID,
			b.candidate(b.tracker.added, info.Name, depgraph.ReasonPackageCreation, depgraph.Hard),
			b.candidate(b.tracker.renamed, info.Name, depgraph.ReasonPackageRename, depgraph.Hard),
		)
		b.tracker.removed[info.Name] = id

	default:
		return fmt.Errorf("activity %d has unknown package update type %q", id, info.UpdateType)
	}
	return err
}

// addRenameDependencies ties a rename to the lineage of one of its two
// package names. A rename is preceded by a save of the target package
// rather than an add, so when the name was never added or renamed the save
// is the best guess and only a possible dependency.
func (b *builder) addRenameDependencies(nodeID depgraph.NodeID, pkg string) error {
	added := b.candidate(b.tracker.added, pkg, depgraph.ReasonPackageCreation, depgraph.Hard)
	renamed := b.candidate(b.tracker.renamed, pkg, depgraph.ReasonPackageRename, depgraph.Hard)
	if !added.ok && !renamed.ok {
		saved := b.candidate(b.tracker.saved, pkg, depgraph.ReasonPackageCreation, depgraph.Possible)
		saved.always = true
		return b.addLatest(nodeID, added, renamed, saved)
	}
	return b.addLatest(nodeID, added, renamed)
}

type candidate struct {
	activity depgraph.ActivityID
	ok       bool
	reason   depgraph.Reason
	strength depgraph.Strength
	always   bool
}

func (b *builder) candidate(m map[string]depgraph.ActivityID, pkg string, reason depgraph.Reason, strength depgraph.Strength) candidate {
	activity, ok := m[pkg]
	return candidate{activity: activity, ok: ok, reason: reason, strength: strength}
}

// addLatest adds edges for the given candidates: "always" candidates
// unconditionally, and of the remaining ones only the newest. Several
// tracker maps can know the same package name; only the most recent
// lineage event is the real dependency.
func (b *builder) addLatest(nodeID depgraph.NodeID, candidates ...candidate) error {
	var latest *candidate
	for i := range candidates {
		c := &candidates[i]
		if !c.ok {
			continue
		}
		if c.always {
			if err := b.addEdge(nodeID, c.activity, c.reason, c.strength); err != nil {
				return err
			}
			continue
		}
		if latest == nil || latest.activity < c.activity {
			latest = c
		}
	}
	if latest == nil {
		return nil
	}
	return b.addEdge(nodeID, latest.activity, latest.reason, latest.strength)
}

// addEdge resolves the target activity to its node and inserts the edge,
// skipping exact duplicates. Two exported objects created by the same
// earlier transaction would otherwise insert the same edge twice.
func (b *builder) addEdge(source depgraph.NodeID, target depgraph.ActivityID, reason depgraph.Reason, strength depgraph.Strength) error {
	targetNode, ok := b.graph.FindNode(target)
	if !ok {
		return fmt.Errorf("no node for activity %d; activities must be processed in creation order", target)
	}
	for _, edge := range b.graph.EdgesOf(source) {
		if edge.To == targetNode && edge.Reason == reason {
			return nil
		}
	}
	return b.graph.AddDependency(source, depgraph.Edge{To: targetNode, Reason: reason, Strength: strength})
}
