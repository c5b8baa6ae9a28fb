package membership

import (
	"context"
	"fmt"

	"github.com/aretw0/staffgate/pkg/access"
	"github.com/aretw0/staffgate/pkg/domain"
)

// start handles /start for every kind of sender.
func (e *Engine) start(ctx context.Context, t *turn) error {
	id := t.ev.From
	if role, known := e.gate.ResolveRole(ctx, id); known {
		if role == domain.RoleSuperuser {
			return e.help(ctx, t)
		}
		_, err := e.messenger.SendMessage(ctx, id, domain.Prompt{
			Text: e.catalog.Text("already_registered", "role", role.Title()),
		})
		return err
	}
	if err := e.gate.Allow(ctx, id, access.Unregistered()); err != nil {
		return err
	}

	blacklisted, err := e.directory.IsBlacklisted(ctx, id)
	if err != nil {
		e.logger.Error("blacklist lookup failed", "identity", id, "error", err)
		return &access.DeniedError{Identity: id, Reason: access.ReasonLookupFailed}
	}
	if blacklisted {
		e.logger.Warn("blacklisted identity tried to apply", "identity", id)
		return &access.DeniedError{Identity: id, Reason: access.ReasonBlacklisted}
	}

	if t.conv.State == domain.StateWaitAcceptance {
		_, err := e.messenger.SendMessage(ctx, id, domain.Prompt{Text: e.catalog.Text("already_waiting")})
		return err
	}
	return e.startApplicant(ctx, t)
}

// startApplicant greets the applicant and opens the role menu. Any earlier
// unfinished application of the identity is discarded.
func (e *Engine) startApplicant(ctx context.Context, t *turn) error {
	id := t.ev.From
	name := t.ev.FromName
	if name == "" {
		name = id.String()
	}
	if _, err := e.messenger.SendMessage(ctx, id, domain.Prompt{Text: e.catalog.Text("greeting", "name", name)}); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}

	prompt := e.catalog.rolePrompt()
	ref, err := e.messenger.SendMessage(ctx, id, prompt)
	if err != nil {
		return fmt.Errorf("send role menu: %w", err)
	}
	if err := e.sessions.Replace(ctx, id, domain.StateRoleSelection, domain.Fields{PromptRef: ref}); err != nil {
		return err
	}
	if err := e.rollback.Push(ctx, id, prompt, domain.StateRoleSelection); err != nil {
		return err
	}
	e.logger.Info("application started", "identity", id)
	return nil
}

func (e *Engine) pickRole(ctx context.Context, t *turn) error {
	role := domain.Role(t.ev.Data)
	ref, err := e.show(ctx, t.ev.From, t.ev.Message, e.catalog.roleConfirmPrompt(role))
	if err != nil {
		return err
	}
	return e.advance(ctx, t.ev.From, domain.StateRoleConfirmation, func(f *domain.Fields) {
		f.Role = role
		f.PromptRef = ref
	})
}

func (e *Engine) confirmRole(ctx context.Context, t *turn) error {
	role := t.fields().Role
	if !role.Applicable() {
		return &domain.InvalidRoleError{Value: string(role)}
	}
	if param, _ := t.ev.ConfirmParam(); param != string(role) {
		return unrecognized(t)
	}

	e.discard(ctx, t.ev.From, t.ev.Message)
	ref, err := e.messenger.SendMessage(ctx, t.ev.From, e.catalog.contactPrompt(role))
	if err != nil {
		return fmt.Errorf("send contact request: %w", err)
	}
	return e.advance(ctx, t.ev.From, domain.StateSendingContact, func(f *domain.Fields) {
		f.PromptRef = ref
	})
}

func (e *Engine) receiveContact(ctx context.Context, t *turn) error {
	fields := t.fields().Clone()
	contact := *t.ev.Contact
	fields.Applicant = &contact

	app, err := e.buildApplication(ctx, fields, t.ev.Message)
	if err != nil {
		return err
	}
	return e.handoff(ctx, t.ev.From, e.superuser, app)
}
