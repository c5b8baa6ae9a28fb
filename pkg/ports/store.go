package ports

import (
	"context"

	"github.com/aretw0/staffgate/pkg/domain"
)

// StateStore defines the interface for persisting conversations.
// Each call must be atomic: a concurrent Load observes either the previous
// or the new record in full.
type StateStore interface {
	// Save persists the conversation of the given identity.
	Save(ctx context.Context, id domain.Identity, conv *domain.Conversation) error

	// Load retrieves the conversation of the given identity.
	// Returns domain.ErrConversationNotFound if none is stored.
	Load(ctx context.Context, id domain.Identity) (*domain.Conversation, error)

	// Delete removes the conversation of the given identity.
	Delete(ctx context.Context, id domain.Identity) error

	// List returns the identities with a stored conversation.
	List(ctx context.Context) ([]domain.Identity, error)
}
