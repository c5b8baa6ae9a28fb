package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConversationNotFound is returned when an identity has no stored conversation.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrAccessDenied is returned when the access gate refuses an event.
var ErrAccessDenied = errors.New("access denied")

// ErrAlreadyFinalized is returned when an application was already persisted.
var ErrAlreadyFinalized = errors.New("application already finalized")

// ErrAlreadyExists is returned by the directory on duplicate records.
var ErrAlreadyExists = errors.New("record already exists")

// InvalidRoleError reports a missing or unknown role in conversation data.
type InvalidRoleError struct {
	Value string
}

func (e *InvalidRoleError) Error() string {
	if e.Value == "" {
		return "invalid role: role is missing"
	}
	return fmt.Sprintf("invalid role: %q", e.Value)
}

// UnrecognizedEventError reports an event that matches no transition of the
// identity's current state.
type UnrecognizedEventError struct {
	State State
	Kind  EventKind
	Data  string
}

func (e *UnrecognizedEventError) Error() string {
	state := string(e.State)
	if state == "" {
		state = "none"
	}
	return fmt.Sprintf("unrecognized %s event %q in state %s", e.Kind, e.Data, state)
}

// HandoffIntegrityError reports an application that lacks fields the
// reviewer workflow needs.
type HandoffIntegrityError struct {
	Missing []string
}

func (e *HandoffIntegrityError) Error() string {
	return "handoff rejected: missing " + strings.Join(e.Missing, ", ")
}

// StorageWriteError wraps a failed directory write during finalization.
type StorageWriteError struct {
	Op  string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write %s failed: %v", e.Op, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}
