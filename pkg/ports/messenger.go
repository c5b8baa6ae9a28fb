package ports

import (
	"context"

	"github.com/aretw0/staffgate/pkg/domain"
)

// Messenger is the outbound messaging gateway.
// The engine emits prompts, and the host implements this interface to deliver them.
type Messenger interface {
	SendMessage(ctx context.Context, to domain.Identity, p domain.Prompt) (domain.MessageRef, error)
	EditMessage(ctx context.Context, to domain.Identity, ref domain.MessageRef, p domain.Prompt) error
	DeleteMessage(ctx context.Context, to domain.Identity, ref domain.MessageRef) error
	SendSticker(ctx context.Context, to domain.Identity, sticker string) error

	// ForwardContact forwards the message holding an applicant's contact.
	// The forwarded copy is protected from further forwarding.
	ForwardContact(ctx context.Context, to, from domain.Identity, ref domain.MessageRef) error
}
