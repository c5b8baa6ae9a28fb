package middleware_test

import (
	"context"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
// It keeps the pointers it is given, like a careless backend would.
type MockStore struct {
	data map[domain.Identity]*domain.Conversation
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[domain.Identity]*domain.Conversation),
	}
}

func (s *MockStore) Save(ctx context.Context, id domain.Identity, conv *domain.Conversation) error {
	s.data[id] = conv
	return nil
}

func (s *MockStore) Load(ctx context.Context, id domain.Identity) (*domain.Conversation, error) {
	conv, ok := s.data[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

func (s *MockStore) Delete(ctx context.Context, id domain.Identity) error {
	delete(s.data, id)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]domain.Identity, error) {
	keys := make([]domain.Identity, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.StateStore = (*MockStore)(nil)
