package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/staffgate/internal/membership"
	"github.com/aretw0/staffgate/pkg/domain"
)

// Overlay contains live conversation data to highlight on the graph.
type Overlay struct {
	CurrentState domain.State
}

const (
	idle     = "idle"
	rollback = "rollback"
)

// GenerateMermaid produces a Mermaid flowchart of the membership graphs.
// Applicant and reviewer states are grouped in subgraphs. The idle state is
// drawn as a circle, the back button as a dotted edge into a rollback node
// and the handoff as a dotted edge across subgraphs.
func GenerateMermaid(edges []membership.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s((\"idle\"))\n", idle))

	writeSubgraph(&sb, domain.GraphApplicant, domain.ApplicantStates)
	writeSubgraph(&sb, domain.GraphReviewer, domain.ReviewerStates)

	hasRollback := false
	for _, e := range edges {
		if e.Rollback {
			hasRollback = true
			break
		}
	}
	if hasRollback {
		sb.WriteString(fmt.Sprintf("    %s{{\"rollback point\"}}\n", rollback))
	}

	for _, e := range edges {
		from, to := NodeID(e.From), NodeID(e.To)
		label := strings.ReplaceAll(e.On, "\"", "'")
		switch {
		case e.Rollback:
			sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", from, label, rollback))
		case e.Handoff:
			sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", from, label, to))
		default:
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, label, to))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", NodeID(overlay.CurrentState)))
	}

	return sb.String()
}

func writeSubgraph(sb *strings.Builder, g domain.Graph, states []domain.State) {
	sb.WriteString(fmt.Sprintf("    subgraph %s\n", g))
	for _, s := range states {
		sb.WriteString(fmt.Sprintf("        %s[\"%s\"]\n", NodeID(s), s.Short()))
	}
	sb.WriteString("    end\n")
}

// NodeID returns the Mermaid node id of a state.
func NodeID(s domain.State) string {
	if s == domain.StateNone {
		return idle
	}
	r := strings.NewReplacer(":", "_", ".", "_", "-", "_", "/", "_", "\\", "_")
	return r.Replace(string(s))
}
