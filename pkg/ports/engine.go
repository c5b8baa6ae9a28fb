package ports

import (
	"context"

	"github.com/aretw0/staffgate/pkg/domain"
)

// EventHandler consumes inbound events. It is the primary interface used by
// the inbound adapters (HTTP webhook, terminal simulator).
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event) error
}
