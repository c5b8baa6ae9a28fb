package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/staffgate/internal/logging"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to conversations, one identity at a time.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex                      // Global lock for the map
	locks map[domain.Identity]*lockEntry // Active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Manager over the given persistence store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[domain.Identity]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id domain.Identity) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for the identity.
func (m *Manager) WithLock(ctx context.Context, id domain.Identity, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id.String(), m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"identity", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// load returns the stored conversation or a fresh one. Callers hold the lock.
func (m *Manager) load(ctx context.Context, id domain.Identity) (*domain.Conversation, error) {
	conv, err := m.store.Load(ctx, id)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return domain.NewConversation(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	return conv, nil
}

func (m *Manager) save(ctx context.Context, id domain.Identity, conv *domain.Conversation) error {
	conv.Identity = id
	conv.UpdatedAt = m.now()
	if err := m.store.Save(ctx, id, conv); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", id, err)
	}
	return nil
}

// Update applies fn to the conversation of id and saves the result in a
// single write. If fn returns an error nothing is written.
func (m *Manager) Update(ctx context.Context, id domain.Identity, fn func(*domain.Conversation) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		conv, err := m.load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(conv); err != nil {
			return err
		}
		return m.save(ctx, id, conv)
	})
}

// Load returns a snapshot of the conversation of id. Identities without a
// stored conversation get an empty one.
func (m *Manager) Load(ctx context.Context, id domain.Identity) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		conv, err = m.load(ctx, id)
		return err
	})
	return conv, err
}

// GetState returns the current state of id, or StateNone.
func (m *Manager) GetState(ctx context.Context, id domain.Identity) (domain.State, error) {
	conv, err := m.Load(ctx, id)
	if err != nil {
		return domain.StateNone, err
	}
	return conv.State, nil
}

// SetState moves id to state and leaves its fields alone.
func (m *Manager) SetState(ctx context.Context, id domain.Identity, state domain.State) error {
	if !state.Valid() {
		return fmt.Errorf("unknown state %q", state)
	}
	return m.Update(ctx, id, func(c *domain.Conversation) error {
		c.State = state
		return nil
	})
}

// GetData returns the fields of id.
func (m *Manager) GetData(ctx context.Context, id domain.Identity) (domain.Fields, error) {
	conv, err := m.Load(ctx, id)
	if err != nil {
		return domain.Fields{}, err
	}
	return conv.Fields, nil
}

// MergeData upserts the set fields of patch and keeps the rest.
func (m *Manager) MergeData(ctx context.Context, id domain.Identity, patch domain.Fields) error {
	return m.Update(ctx, id, func(c *domain.Conversation) error {
		c.Fields.Merge(patch)
		return nil
	})
}

// ReplaceData overwrites every field of id.
func (m *Manager) ReplaceData(ctx context.Context, id domain.Identity, fields domain.Fields) error {
	return m.Update(ctx, id, func(c *domain.Conversation) error {
		c.Fields = fields.Clone()
		return nil
	})
}

// Replace sets both the state and the fields of id in one write.
func (m *Manager) Replace(ctx context.Context, id domain.Identity, state domain.State, fields domain.Fields) error {
	if !state.Valid() {
		return fmt.Errorf("unknown state %q", state)
	}
	return m.Update(ctx, id, func(c *domain.Conversation) error {
		c.State = state
		c.Fields = fields.Clone()
		return nil
	})
}

// Clear drops the state and the fields of id.
func (m *Manager) Clear(ctx context.Context, id domain.Identity) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		if err := m.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to clear conversation %s: %w", id, err)
		}
		return nil
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]domain.Identity, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}
