// Package policy decides what to do with possible deletion requirements.
//
// The analyser reports which activities may depend on the ones being
// deleted; how to treat them is an operator decision. A policy maps each
// dependency reason to a verdict and is loaded from a YAML file, so a team
// can for example auto-delete edit-after-edit chains but flag everything
// touching a package rename for manual review.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"histedit/internal/analysis"
	"histedit/internal/depgraph"
)

// Verdict is the policy outcome for one activity.
type Verdict string

const (
	// VerdictDelete removes the activity along with the seeds.
	VerdictDelete Verdict = "delete"
	// VerdictReview flags the activity for manual inspection.
	VerdictReview Verdict = "review"
	// VerdictKeep leaves the activity untouched.
	VerdictKeep Verdict = "keep"
)

var knownReasons = map[depgraph.Reason]bool{
	depgraph.ReasonPackageCreation:   true,
	depgraph.ReasonPackageRemoval:    true,
	depgraph.ReasonPackageRename:     true,
	depgraph.ReasonPackageEdit:       true,
	depgraph.ReasonSubobjectCreation: true,
	depgraph.ReasonSubobjectRemoval:  true,
}

// Policy maps dependency reasons to verdicts for possible dependencies.
// Hard dependencies are never subject to policy; they are always deleted.
type Policy struct {
	// Default applies to reasons without an explicit entry.
	Default Verdict `yaml:"default"`
	// Reasons overrides the default per dependency reason.
	Reasons map[depgraph.Reason]Verdict `yaml:"reasons"`
}

// DefaultPolicy flags every possible dependency for review.
func DefaultPolicy() *Policy {
	return &Policy{Default: VerdictReview}
}

// Load reads a policy from a YAML file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	policy := Policy{Default: VerdictReview}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}

	if err := validVerdict(policy.Default); err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	for reason, verdict := range policy.Reasons {
		if !knownReasons[reason] {
			return nil, fmt.Errorf("unknown dependency reason %q", reason)
		}
		if err := validVerdict(verdict); err != nil {
			return nil, fmt.Errorf("reason %s: %w", reason, err)
		}
	}
	return &policy, nil
}

func validVerdict(v Verdict) error {
	switch v {
	case VerdictDelete, VerdictReview, VerdictKeep:
		return nil
	default:
		return fmt.Errorf("unknown verdict %q", v)
	}
}

func (p *Policy) verdictFor(reason depgraph.Reason) Verdict {
	if verdict, ok := p.Reasons[reason]; ok {
		return verdict
	}
	if p.Default == "" {
		return VerdictReview
	}
	return p.Default
}

// Decision partitions the possible requirements by verdict. Slices are in
// ascending activity order.
type Decision struct {
	Delete []depgraph.ActivityID
	Review []depgraph.ActivityID
	Keep   []depgraph.ActivityID
}

// Apply runs the policy over the possible requirements of an analysis.
//
// Activities are visited in ascending order, so every dependency target is
// decided before its dependents. An activity whose edge into the condemned
// set (seeds, hard requirements, and previously condemned possibles)
// carries a delete-verdict reason is condemned too; otherwise a
// review-verdict edge flags it, and an activity tied only to kept or
// reviewed ones inherits the stronger of those states.
func (p *Policy) Apply(g *depgraph.Graph, seeds []depgraph.ActivityID, req analysis.Requirements) Decision {
	condemned := make(map[depgraph.ActivityID]bool, len(seeds)+len(req.Hard))
	for _, seed := range seeds {
		if _, ok := g.FindNode(seed); ok {
			condemned[seed] = true
		}
	}
	for id := range req.Hard {
		condemned[id] = true
	}

	possible := req.PossibleIDs()
	reviewed := make(map[depgraph.ActivityID]bool)
	var decision Decision
	for _, id := range possible {
		nodeID, ok := g.FindNode(id)
		if !ok {
			continue
		}

		verdict := VerdictKeep
		for _, edge := range g.EdgesOf(nodeID) {
			target := g.ActivityOf(edge.To)
			switch {
			case condemned[target]:
				if v := p.verdictFor(edge.Reason); v == VerdictDelete {
					verdict = VerdictDelete
				} else if v == VerdictReview && verdict != VerdictDelete {
					verdict = VerdictReview
				}
			case reviewed[target]:
				if verdict == VerdictKeep {
					verdict = VerdictReview
				}
			}
		}

		switch verdict {
		case VerdictDelete:
			condemned[id] = true
			decision.Delete = append(decision.Delete, id)
		case VerdictReview:
			reviewed[id] = true
			decision.Review = append(decision.Review, id)
		default:
			decision.Keep = append(decision.Keep, id)
		}
	}
	return decision
}
