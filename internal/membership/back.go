package membership

import (
	"context"
	"fmt"

	"github.com/aretw0/staffgate/pkg/domain"
)

// resets lists, per state a conversation can be rolled back to, the fields
// collected after that state. They are cleared on the way back.
var resets = map[domain.State]func(*domain.Fields){
	domain.StateRoleSelection: func(f *domain.Fields) {
		f.Role = ""
	},
	domain.StateApplicantConsideration: func(f *domain.Fields) {
		f.FileID, f.FileName = "", ""
		f.Alias = ""
	},
	domain.StateMemberFileSelection: func(f *domain.Fields) {
		f.FileID, f.FileName = "", ""
	},
	domain.StateInputMembersAlias: func(f *domain.Fields) {
		f.Alias = ""
	},
}

// back reissues the stored prompt and restores the stored state of either graph.
func (e *Engine) back(ctx context.Context, t *turn) error {
	point, ok, err := e.rollback.Pop(ctx, t.ev.From)
	if err != nil {
		return err
	}
	if !ok {
		return unrecognized(t)
	}
	if point.State.Graph() != t.conv.State.Graph() {
		return fmt.Errorf("rollback point %s does not belong to the %s graph", point.State, t.conv.State.Graph())
	}

	ref, err := e.show(ctx, t.ev.From, t.ev.Message, point.Prompt)
	if err != nil {
		return err
	}
	return e.advance(ctx, t.ev.From, point.State, func(f *domain.Fields) {
		if reset, ok := resets[point.State]; ok {
			reset(f)
		}
		f.PromptRef = ref
	})
}
