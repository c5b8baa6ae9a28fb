package memory

import (
	"context"
	"sync"

	"github.com/aretw0/staffgate/pkg/domain"
)

// Delivery kinds recorded by Messenger.
const (
	DeliveryMessage = "message"
	DeliveryEdit    = "edit"
	DeliveryDelete  = "delete"
	DeliverySticker = "sticker"
	DeliveryForward = "forward"
)

// Delivery is one recorded call on the Messenger.
type Delivery struct {
	Kind    string
	To      domain.Identity
	Ref     domain.MessageRef
	Prompt  domain.Prompt
	Sticker string
	// From is the contact owner for DeliveryForward.
	From domain.Identity
}

// Messenger implements ports.Messenger by recording every call.
// Safe for concurrent use.
type Messenger struct {
	mu         sync.Mutex
	deliveries []Delivery
	nextRef    domain.MessageRef
	failures   map[domain.Identity]error
	observer   func(Delivery)
}

// NewMessenger creates an empty recording messenger.
func NewMessenger() *Messenger {
	return &Messenger{failures: make(map[domain.Identity]error)}
}

// OnDelivery registers fn to be called after each recorded delivery.
func (m *Messenger) OnDelivery(fn func(Delivery)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// FailFor makes every delivery to id return err. A nil err clears it.
func (m *Messenger) FailFor(id domain.Identity, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, id)
		return
	}
	m.failures[id] = err
}

func (m *Messenger) record(d Delivery) (domain.MessageRef, error) {
	m.mu.Lock()
	if err := m.failures[d.To]; err != nil {
		m.mu.Unlock()
		return 0, err
	}
	if d.Kind == DeliveryMessage || d.Kind == DeliverySticker || d.Kind == DeliveryForward {
		m.nextRef++
		d.Ref = m.nextRef
	}
	m.deliveries = append(m.deliveries, d)
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		observer(d)
	}
	return d.Ref, nil
}

// SendMessage records a message and returns a fresh reference.
func (m *Messenger) SendMessage(ctx context.Context, to domain.Identity, p domain.Prompt) (domain.MessageRef, error) {
	return m.record(Delivery{Kind: DeliveryMessage, To: to, Prompt: p})
}

// EditMessage records an edit of ref.
func (m *Messenger) EditMessage(ctx context.Context, to domain.Identity, ref domain.MessageRef, p domain.Prompt) error {
	_, err := m.record(Delivery{Kind: DeliveryEdit, To: to, Ref: ref, Prompt: p})
	return err
}

// DeleteMessage records a deletion of ref.
func (m *Messenger) DeleteMessage(ctx context.Context, to domain.Identity, ref domain.MessageRef) error {
	_, err := m.record(Delivery{Kind: DeliveryDelete, To: to, Ref: ref})
	return err
}

// SendSticker records a sticker.
func (m *Messenger) SendSticker(ctx context.Context, to domain.Identity, sticker string) error {
	_, err := m.record(Delivery{Kind: DeliverySticker, To: to, Sticker: sticker})
	return err
}

// ForwardContact records a protected forward of from's contact message.
func (m *Messenger) ForwardContact(ctx context.Context, to, from domain.Identity, ref domain.MessageRef) error {
	_, err := m.record(Delivery{Kind: DeliveryForward, To: to, From: from, Ref: ref})
	return err
}

// Deliveries returns every recorded delivery to id, in order.
func (m *Messenger) Deliveries(id domain.Identity) []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Delivery
	for _, d := range m.deliveries {
		if d.To == id {
			out = append(out, d)
		}
	}
	return out
}

// LastPrompt returns the most recent message or edit sent to id.
func (m *Messenger) LastPrompt(id domain.Identity) (domain.Prompt, bool) {
	ds := m.Deliveries(id)
	for i := len(ds) - 1; i >= 0; i-- {
		if ds[i].Kind == DeliveryMessage || ds[i].Kind == DeliveryEdit {
			return ds[i].Prompt, true
		}
	}
	return domain.Prompt{}, false
}

// Stickers returns the stickers sent to id.
func (m *Messenger) Stickers(id domain.Identity) []string {
	var out []string
	for _, d := range m.Deliveries(id) {
		if d.Kind == DeliverySticker {
			out = append(out, d.Sticker)
		}
	}
	return out
}

// Len returns the total number of recorded deliveries.
func (m *Messenger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

// Reset drops every recorded delivery.
func (m *Messenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = nil
}
