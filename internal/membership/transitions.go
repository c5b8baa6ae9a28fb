package membership

import (
	"context"
	"strings"

	"github.com/aretw0/staffgate/pkg/domain"
)

// transition is one row of the table: an event shape accepted in a state
// and the handler it runs. label and to describe the row for Edges; the
// handler alone decides where the conversation goes.
type transition struct {
	kind  domain.EventKind
	match func(ev domain.Event, f domain.Fields) bool
	run   func(ctx context.Context, t *turn) error
	label string
	to    []domain.State
}

func callback(data string) func(domain.Event, domain.Fields) bool {
	return func(ev domain.Event, _ domain.Fields) bool {
		return ev.Data == data
	}
}

func confirmed(param string) func(domain.Event, domain.Fields) bool {
	return func(ev domain.Event, _ domain.Fields) bool {
		p, ok := ev.ConfirmParam()
		return ok && p == param
	}
}

func anyConfirm(ev domain.Event, _ domain.Fields) bool {
	_, ok := ev.ConfirmParam()
	return ok
}

func applicableRole(ev domain.Event, _ domain.Fields) bool {
	role, err := domain.ParseRole(ev.Data)
	return err == nil && role.Applicable()
}

func ownContact(ev domain.Event, _ domain.Fields) bool {
	return ev.Contact != nil && ev.Contact.Identity == ev.From
}

func offeredFile(ev domain.Event, f domain.Fields) bool {
	_, ok := f.FindFile(ev.Data)
	return ok
}

func nonEmptyText(ev domain.Event, _ domain.Fields) bool {
	return strings.TrimSpace(ev.Data) != ""
}

func (e *Engine) transitions() map[domain.State][]transition {
	back := transition{kind: domain.EventCallback, match: callback(domain.CallbackBack), run: e.back, label: domain.CallbackBack}

	return map[domain.State][]transition{
		domain.StateRoleSelection: {
			{kind: domain.EventCallback, match: applicableRole, run: e.pickRole, label: "role",
				to: []domain.State{domain.StateRoleConfirmation}},
		},
		domain.StateRoleConfirmation: {
			{kind: domain.EventCallback, match: anyConfirm, run: e.confirmRole, label: "confirmed:role",
				to: []domain.State{domain.StateSendingContact}},
			back,
		},
		domain.StateSendingContact: {
			{kind: domain.EventContact, match: ownContact, run: e.receiveContact, label: "own contact",
				to: []domain.State{domain.StateWaitAcceptance}},
		},
		domain.StateWaitAcceptance: nil,

		domain.StateApplicantConsideration: {
			{kind: domain.EventCallback, match: callback(domain.CallbackAccepted), run: e.consider, label: domain.CallbackAccepted,
				to: []domain.State{domain.StateMemberFileSelection, domain.StateAcceptanceConfirmation}},
			{kind: domain.EventCallback, match: callback(domain.CallbackRejected), run: e.askRejection, label: domain.CallbackRejected,
				to: []domain.State{domain.StateRejectionConfirmation}},
		},
		domain.StateMemberFileSelection: {
			{kind: domain.EventCallback, match: callback(domain.CallbackAccepted), run: e.askAcceptance, label: domain.CallbackAccepted,
				to: []domain.State{domain.StateAcceptanceConfirmation}},
			{kind: domain.EventCallback, match: callback(domain.CallbackRejected), run: e.askRejection, label: domain.CallbackRejected,
				to: []domain.State{domain.StateRejectionConfirmation}},
			{kind: domain.EventCallback, match: offeredFile, run: e.pickFile, label: "file id",
				to: []domain.State{domain.StateMemberFileConfirmation}},
		},
		domain.StateMemberFileConfirmation: {
			{kind: domain.EventCallback, match: confirmed(""), run: e.requestAlias, label: domain.CallbackConfirmed,
				to: []domain.State{domain.StateInputMembersAlias}},
			back,
		},
		domain.StateAcceptanceConfirmation: {
			{kind: domain.EventCallback, match: confirmed(domain.CallbackAccepted), run: e.requestAlias, label: domain.CallbackConfirmed + domain.CallbackAccepted,
				to: []domain.State{domain.StateInputMembersAlias}},
			back,
		},
		domain.StateRejectionConfirmation: {
			{kind: domain.EventCallback, match: confirmed(domain.CallbackRejected), run: e.finalizeRejected, label: domain.CallbackConfirmed + domain.CallbackRejected,
				to: []domain.State{domain.StateNone}},
			back,
		},
		domain.StateInputMembersAlias: {
			{kind: domain.EventText, match: nonEmptyText, run: e.receiveAlias, label: "alias",
				to: []domain.State{domain.StateMemberAliasConfirmation}},
		},
		domain.StateMemberAliasConfirmation: {
			{kind: domain.EventCallback, match: confirmed(""), run: e.finalizeAccepted, label: domain.CallbackConfirmed,
				to: []domain.State{domain.StateNone}},
			back,
		},
	}
}
