package domain

import "strings"

// Graph names one of the two conversation state machines.
type Graph string

const (
	GraphNone      Graph = ""
	GraphApplicant Graph = "applicant"
	GraphReviewer  Graph = "membership"
)

// State is one step of a conversation graph. The zero value means the
// identity has no active workflow.
type State string

const StateNone State = ""

// Applicant graph.
const (
	StateRoleSelection    State = "applicant:role_selection"
	StateRoleConfirmation State = "applicant:role_confirmation"
	StateSendingContact   State = "applicant:sending_contact"
	StateWaitAcceptance   State = "applicant:wait_acceptance"
)

// Reviewer graph.
const (
	StateApplicantConsideration  State = "membership:applicant_consideration"
	StateMemberFileSelection     State = "membership:member_file_selection"
	StateMemberFileConfirmation  State = "membership:member_file_confirmation"
	StateAcceptanceConfirmation  State = "membership:acceptance_confirmation"
	StateRejectionConfirmation   State = "membership:rejection_confirmation"
	StateInputMembersAlias       State = "membership:input_members_alias"
	StateMemberAliasConfirmation State = "membership:member_alias_confirmation"
)

// ApplicantStates lists the applicant graph in order.
var ApplicantStates = []State{
	StateRoleSelection,
	StateRoleConfirmation,
	StateSendingContact,
	StateWaitAcceptance,
}

// ReviewerStates lists the reviewer graph.
var ReviewerStates = []State{
	StateApplicantConsideration,
	StateMemberFileSelection,
	StateMemberFileConfirmation,
	StateAcceptanceConfirmation,
	StateRejectionConfirmation,
	StateInputMembersAlias,
	StateMemberAliasConfirmation,
}

// Graph returns the graph s belongs to, or GraphNone for unknown values.
func (s State) Graph() Graph {
	for _, a := range ApplicantStates {
		if a == s {
			return GraphApplicant
		}
	}
	for _, r := range ReviewerStates {
		if r == s {
			return GraphReviewer
		}
	}
	return GraphNone
}

// Valid reports whether s is StateNone or a declared state.
func (s State) Valid() bool {
	return s == StateNone || s.Graph() != GraphNone
}

// Short returns the state name without its graph prefix.
func (s State) Short() string {
	if i := strings.IndexByte(string(s), ':'); i >= 0 {
		return string(s)[i+1:]
	}
	return string(s)
}
