// Package depgraph provides the activity dependency graph: which historical
// activities in a session depend on which earlier ones, and how strongly.
package depgraph

// ActivityID identifies an activity in the session history. IDs are
// positive and numerically ordered by creation time: a larger ID means the
// activity happened later.
type ActivityID int64

// NodeID is an opaque handle to a node inside a Graph. Node IDs are indices
// assigned in insertion order and are only meaningful for the graph that
// issued them.
type NodeID int

// Reason says why one activity depends on an earlier one.
type Reason string

const (
	// ReasonPackageCreation marks a dependency on the activity that created
	// the package being operated on.
	ReasonPackageCreation Reason = "package-creation"
	// ReasonPackageRemoval marks a dependency on the activity that removed
	// a package of the same name.
	ReasonPackageRemoval Reason = "package-removal"
	// ReasonPackageRename marks a dependency on the activity that renamed a
	// package to or from the name being operated on.
	ReasonPackageRename Reason = "package-rename"
	// ReasonPackageEdit marks an edit made after a previous edit of the
	// same package.
	ReasonPackageEdit Reason = "edit-after-previous-package-edit"
	// ReasonSubobjectCreation marks a dependency on the transaction that
	// created a referenced subobject.
	ReasonSubobjectCreation Reason = "subobject-creation"
	// ReasonSubobjectRemoval marks a dependency on the transaction that
	// removed a referenced subobject.
	ReasonSubobjectRemoval Reason = "subobject-removal"
)

// Strength classifies how binding a dependency is. Strengths are ordered:
// Hard > Possible. A path through the graph is only as strong as its
// weakest edge.
type Strength int

const (
	// Possible means deleting the depended-on activity may invalidate the
	// dependent one; external policy decides.
	Possible Strength = iota
	// Hard means deleting the depended-on activity mandates deleting the
	// dependent one.
	Hard
)

// String returns the strength as used in Graphviz output and policy files.
func (s Strength) String() string {
	if s == Hard {
		return "hard"
	}
	return "possible"
}

// Edge is one outgoing dependency of a node: the node it depends on, why,
// and how strongly.
type Edge struct {
	To       NodeID
	Reason   Reason
	Strength Strength
}
