package membership

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/staffgate/pkg/domain"
)

// consider handles "accepted" on the consideration menu. File-bearing
// applicants get the file menu when free files exist.
func (e *Engine) consider(ctx context.Context, t *turn) error {
	f := t.fields()
	if f.Role.FileBearing() && len(f.Files) > 0 {
		return e.offerFiles(ctx, t)
	}
	return e.askAcceptance(ctx, t)
}

func (e *Engine) offerFiles(ctx context.Context, t *turn) error {
	prompt := e.catalog.fileSelectionPrompt(t.fields().Files)
	ref, err := e.show(ctx, t.ev.From, t.ev.Message, prompt)
	if err != nil {
		return err
	}
	if err := e.advance(ctx, t.ev.From, domain.StateMemberFileSelection, func(f *domain.Fields) {
		f.PromptRef = ref
	}); err != nil {
		return err
	}
	return e.rollback.Push(ctx, t.ev.From, prompt, domain.StateMemberFileSelection)
}

func (e *Engine) askAcceptance(ctx context.Context, t *turn) error {
	role := t.fields().Role
	if !role.Applicable() {
		return &domain.InvalidRoleError{Value: string(role)}
	}
	ref, err := e.show(ctx, t.ev.From, t.ev.Message, e.catalog.acceptConfirmPrompt(role))
	if err != nil {
		return err
	}
	return e.advance(ctx, t.ev.From, domain.StateAcceptanceConfirmation, func(f *domain.Fields) {
		f.PromptRef = ref
	})
}

func (e *Engine) askRejection(ctx context.Context, t *turn) error {
	ref, err := e.show(ctx, t.ev.From, t.ev.Message, e.catalog.rejectConfirmPrompt())
	if err != nil {
		return err
	}
	return e.advance(ctx, t.ev.From, domain.StateRejectionConfirmation, func(f *domain.Fields) {
		f.PromptRef = ref
	})
}

func (e *Engine) pickFile(ctx context.Context, t *turn) error {
	file, _ := t.fields().FindFile(t.ev.Data)
	ref, err := e.show(ctx, t.ev.From, t.ev.Message, e.catalog.fileConfirmPrompt(file))
	if err != nil {
		return err
	}
	return e.advance(ctx, t.ev.From, domain.StateMemberFileConfirmation, func(f *domain.Fields) {
		f.FileID = file.ID
		f.FileName = file.Name
		f.PromptRef = ref
	})
}

// requestAlias asks for the new member's alias, naming them by the chosen
// file or by their contact name.
func (e *Engine) requestAlias(ctx context.Context, t *turn) error {
	f := t.fields()
	if !f.Role.Applicable() {
		return &domain.InvalidRoleError{Value: string(f.Role)}
	}
	if f.Applicant == nil {
		return &domain.HandoffIntegrityError{Missing: []string{"applicant"}}
	}
	target := f.FileName
	if target == "" {
		target = f.Applicant.Name
	}

	prompt := e.catalog.aliasPrompt(target, f.Role)
	ref, err := e.show(ctx, t.ev.From, t.ev.Message, prompt)
	if err != nil {
		return err
	}
	if err := e.advance(ctx, t.ev.From, domain.StateInputMembersAlias, func(f *domain.Fields) {
		f.PromptRef = ref
	}); err != nil {
		return err
	}
	return e.rollback.Push(ctx, t.ev.From, prompt, domain.StateInputMembersAlias)
}

// receiveAlias removes the typed alias and the alias prompt from the chat
// and asks for confirmation in a fresh message.
func (e *Engine) receiveAlias(ctx context.Context, t *turn) error {
	alias := strings.TrimSpace(t.ev.Data)

	e.discard(ctx, t.ev.From, t.ev.Message)
	e.discard(ctx, t.ev.From, t.fields().PromptRef)

	ref, err := e.messenger.SendMessage(ctx, t.ev.From, e.catalog.aliasConfirmPrompt(alias))
	if err != nil {
		return fmt.Errorf("send alias confirmation: %w", err)
	}
	return e.advance(ctx, t.ev.From, domain.StateMemberAliasConfirmation, func(f *domain.Fields) {
		f.Alias = alias
		f.PromptRef = ref
	})
}

func (e *Engine) finalizeAccepted(ctx context.Context, t *turn) error {
	return e.finalize(ctx, t, domain.DecisionAccepted)
}

func (e *Engine) finalizeRejected(ctx context.Context, t *turn) error {
	return e.finalize(ctx, t, domain.DecisionRejected)
}

func (e *Engine) finalize(ctx context.Context, t *turn, decision domain.Decision) error {
	outcome, err := e.finalizer.Finalize(ctx, t.ev.From, decision)
	if err == nil || outcome.AlreadyFinalized {
		e.discard(ctx, t.ev.From, t.ev.Message)
	}
	if e.onFinalize != nil && (err == nil || outcome.AlreadyFinalized) {
		e.onFinalize(outcome)
	}
	return err
}
