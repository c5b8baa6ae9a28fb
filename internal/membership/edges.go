package membership

import "github.com/aretw0/staffgate/pkg/domain"

// Edge is one documented move of the membership graphs.
type Edge struct {
	From domain.State
	To   domain.State
	On   string
	// Rollback marks the back button. Its target is whatever rollback
	// point is stored, so To is empty.
	Rollback bool
	// Handoff marks the jump from the applicant graph into the reviewer's.
	Handoff bool
}

// Edges lists every transition of both graphs in table order, plus the
// /start entry and the handoff into the reviewer graph.
func (e *Engine) Edges() []Edge {
	edges := []Edge{{From: domain.StateNone, To: domain.StateRoleSelection, On: "/" + domain.CommandStart}}

	states := append(append([]domain.State(nil), domain.ApplicantStates...), domain.ReviewerStates...)
	for _, from := range states {
		for _, tr := range e.table[from] {
			if tr.label == domain.CallbackBack {
				edges = append(edges, Edge{From: from, On: tr.label, Rollback: true})
				continue
			}
			for _, to := range tr.to {
				edges = append(edges, Edge{From: from, To: to, On: tr.label})
			}
		}
		if from == domain.StateSendingContact {
			edges = append(edges, Edge{From: from, To: domain.StateApplicantConsideration, On: "handoff", Handoff: true})
		}
	}
	return edges
}
