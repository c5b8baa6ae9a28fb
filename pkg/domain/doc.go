/*
Package domain contains the core domain models of the membership workflow.

It defines the entities both conversation graphs operate on: identities,
roles, workflow states, the typed per-identity conversation fields, prompts
with their button layouts, inbound events and the records persisted when an
application is decided. The package is kept free of I/O and persistence.

# Key Entities

  - Identity: the stable chat endpoint of one participant.
  - State: one step of the applicant graph or of the reviewer graph.
  - Conversation: the current State plus the typed Fields of one identity.
  - Prompt: an outbound message (text and markup), the unit of rollback.
  - Event: an inbound message or button press tagged with its sender.
  - StaffRecord / BlacklistRecord: the persisted outcome of an application.
*/
package domain
