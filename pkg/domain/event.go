package domain

import (
	"strings"

	"github.com/google/uuid"
)

// EventKind is the transport shape of an inbound event.
type EventKind string

const (
	EventCommand  EventKind = "command"
	EventCallback EventKind = "callback"
	EventContact  EventKind = "contact"
	EventText     EventKind = "text"
)

// Callback data understood by the workflows. Role values and file ids are
// the remaining callback payloads.
const (
	CallbackAccepted  = "accepted"
	CallbackRejected  = "rejected"
	CallbackBack      = "back"
	CallbackInvite    = "invite"
	CallbackConfirmed = "confirmed:"
)

// Commands understood by the workflows.
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandStaff = "staff"
)

// Event is one inbound message or button press.
type Event struct {
	ID   string    `json:"id"`
	From Identity  `json:"from"`
	Kind EventKind `json:"kind"`

	// Data is the command name, the callback data or the message text.
	Data string `json:"data,omitempty"`

	// FromName is the sender's display name, used in greetings.
	FromName string `json:"from_name,omitempty"`

	// Message is the inbound message, or the message that carried the
	// pressed button.
	Message MessageRef `json:"message,omitempty"`

	// Contact is set for EventContact.
	Contact *Contact `json:"contact,omitempty"`
}

// NewEventID returns a random event id for correlation in logs and traces.
func NewEventID() string {
	return uuid.NewString()
}

// ConfirmParam returns the parameter of a "confirmed:<param>" callback.
func (e Event) ConfirmParam() (string, bool) {
	if e.Kind != EventCallback || !strings.HasPrefix(e.Data, CallbackConfirmed) {
		return "", false
	}
	return strings.TrimPrefix(e.Data, CallbackConfirmed), true
}

// ConfirmCallback builds the "confirmed:<param>" callback value.
func ConfirmCallback(param string) string {
	return CallbackConfirmed + param
}
