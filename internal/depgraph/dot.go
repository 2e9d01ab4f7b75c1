package depgraph

import (
	"fmt"
	"io"
	"strings"
)

// Labeler supplies a human-readable description for an activity, shown in
// exported node labels. Nil means IDs only.
type Labeler func(ActivityID) string

// WriteDot writes the graph in Graphviz dot format for debugging. Hard
// edges render solid, possible edges dashed. Output order follows node
// insertion order, so dumps of the same graph are identical.
func WriteDot(w io.Writer, g *Graph, name string, label Labeler) error {
	if name == "" {
		name = "Dependencies"
	}
	if _, err := fmt.Fprintf(w, "digraph %s {\n", escapeDotID(name)); err != nil {
		return err
	}

	for _, nodeID := range g.Nodes() {
		activity := g.ActivityOf(nodeID)
		text := fmt.Sprintf("activity %d", activity)
		if label != nil {
			if desc := label(activity); desc != "" {
				text += ": " + desc
			}
		}
		if _, err := fmt.Fprintf(w, "\ta%d [label=\"%s\"];\n", activity, escapeDotLabel(text)); err != nil {
			return err
		}
	}

	for _, nodeID := range g.Nodes() {
		from := g.ActivityOf(nodeID)
		for _, edge := range g.EdgesOf(nodeID) {
			style := "dashed"
			if edge.Strength == Hard {
				style = "solid"
			}
			if _, err := fmt.Fprintf(w, "\ta%d -> a%d [label=\"%s\", style=%s];\n", from, g.ActivityOf(edge.To), escapeDotLabel(string(edge.Reason)), style); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

func escapeDotLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return strings.ReplaceAll(s, "\n", "\\n")
}

func escapeDotID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "Dependencies"
	}
	return b.String()
}
