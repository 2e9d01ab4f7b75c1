package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"histedit/internal/analysis"
	"histedit/internal/depgraph"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writePolicyFile(t, `
default: keep
reasons:
  edit-after-previous-package-edit: delete
  package-rename: review
`)
	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, VerdictKeep, p.Default)
	require.Equal(t, VerdictDelete, p.Reasons[depgraph.ReasonPackageEdit])
	require.Equal(t, VerdictReview, p.Reasons[depgraph.ReasonPackageRename])
}

func TestLoad_DefaultsToReview(t *testing.T) {
	p, err := Load(writePolicyFile(t, `reasons: {}`))
	require.NoError(t, err)
	require.Equal(t, VerdictReview, p.Default)
}

func TestLoad_UnknownVerdict(t *testing.T) {
	_, err := Load(writePolicyFile(t, `default: obliterate`))
	require.ErrorContains(t, err, `unknown verdict "obliterate"`)

	_, err = Load(writePolicyFile(t, "reasons:\n  package-rename: maybe\n"))
	require.ErrorContains(t, err, "unknown verdict")
}

func TestLoad_UnknownReason(t *testing.T) {
	_, err := Load(writePolicyFile(t, "reasons:\n  package-teleport: delete\n"))
	require.ErrorContains(t, err, `unknown dependency reason "package-teleport"`)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// applyGraph builds a chain where everything ultimately hangs off
// activity 1 through possible edges only:
//
//	2 -> 1 (edit)    3 -> 2 (edit)
//	4 -> 1 (package-creation)    5 -> 4 (edit)
func applyGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	g := depgraph.NewGraph()
	nodes := make(map[depgraph.ActivityID]depgraph.NodeID)
	for id := depgraph.ActivityID(1); id <= 5; id++ {
		nodeID, err := g.AddActivity(id)
		require.NoError(t, err)
		nodes[id] = nodeID
	}
	addEdge := func(from, to depgraph.ActivityID, reason depgraph.Reason) {
		require.NoError(t, g.AddDependency(nodes[from], depgraph.Edge{
			To:       nodes[to],
			Reason:   reason,
			Strength: depgraph.Possible,
		}))
	}
	addEdge(2, 1, depgraph.ReasonPackageEdit)
	addEdge(3, 2, depgraph.ReasonPackageEdit)
	addEdge(4, 1, depgraph.ReasonPackageCreation)
	addEdge(5, 4, depgraph.ReasonPackageEdit)
	return g
}

func TestApply(t *testing.T) {
	g := applyGraph(t)
	seeds := []depgraph.ActivityID{1}
	req := analysis.AnalyzeDeletion(seeds, g)
	require.ElementsMatch(t, []depgraph.ActivityID{2, 3, 4, 5}, req.PossibleIDs())

	p := &Policy{
		Default: VerdictReview,
		Reasons: map[depgraph.Reason]Verdict{
			depgraph.ReasonPackageEdit: VerdictDelete,
		},
	}
	decision := p.Apply(g, seeds, req)

	// Edit chains off the seed are condemned transitively; the creation
	// dependency falls back to the default and drags its own dependent
	// into review.
	require.Equal(t, []depgraph.ActivityID{2, 3}, decision.Delete)
	require.Equal(t, []depgraph.ActivityID{4, 5}, decision.Review)
	require.Empty(t, decision.Keep)
}

func TestApply_KeepBreaksChain(t *testing.T) {
	g := applyGraph(t)
	seeds := []depgraph.ActivityID{1}
	req := analysis.AnalyzeDeletion(seeds, g)

	p := &Policy{Default: VerdictKeep}
	decision := p.Apply(g, seeds, req)

	require.Empty(t, decision.Delete)
	require.Empty(t, decision.Review)
	require.Equal(t, []depgraph.ActivityID{2, 3, 4, 5}, decision.Keep)
}

func TestApply_DefaultPolicyReviewsEverything(t *testing.T) {
	g := applyGraph(t)
	seeds := []depgraph.ActivityID{1}
	req := analysis.AnalyzeDeletion(seeds, g)

	decision := DefaultPolicy().Apply(g, seeds, req)

	require.Empty(t, decision.Delete)
	require.Empty(t, decision.Keep)
	require.Equal(t, []depgraph.ActivityID{2, 3, 4, 5}, decision.Review)
}
