package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/adapters/redis"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke lost updates if locking is missing.
type SlowStore struct {
	*memory.Store
	saves int
	mu    sync.Mutex
}

func NewSlowStore() *SlowStore {
	return &SlowStore{Store: memory.NewStore()}
}

func (s *SlowStore) Save(ctx context.Context, id domain.Identity, conv *domain.Conversation) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, id, conv)
}

func (s *SlowStore) Load(ctx context.Context, id domain.Identity) (*domain.Conversation, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.Store.Load(ctx, id)
}

func TestManager_MergeIsAtomic(t *testing.T) {
	store := NewSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	var id domain.Identity = 1000

	// Concurrent merges of disjoint fields must all survive.
	patches := []domain.Fields{
		{Role: domain.RoleEmployee},
		{Alias: "Ann K."},
		{FileID: "f1"},
		{FileName: "Mon"},
		{Applicant: &domain.Contact{Identity: 42, Name: "Ann", Phone: "+1"}},
		{PromptRef: 9},
	}

	var wg sync.WaitGroup
	for _, p := range patches {
		wg.Add(1)
		go func(p domain.Fields) {
			defer wg.Done()
			assert.NoError(t, manager.MergeData(ctx, id, p))
		}(p)
	}
	wg.Wait()

	fields, err := manager.GetData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, fields.Role)
	assert.Equal(t, "Ann K.", fields.Alias)
	assert.Equal(t, "f1", fields.FileID)
	assert.Equal(t, "Mon", fields.FileName)
	assert.Equal(t, domain.MessageRef(9), fields.PromptRef)
	require.NotNil(t, fields.Applicant)
	assert.Equal(t, len(patches), store.saves, "one write per operation")
}

func TestManager_StateAndData(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	manager := session.NewManager(memory.NewStore(), session.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	var id domain.Identity = 42

	state, err := manager.GetState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNone, state, "unknown identities have no state")

	require.NoError(t, manager.SetState(ctx, id, domain.StateRoleSelection))
	require.NoError(t, manager.MergeData(ctx, id, domain.Fields{Role: domain.RoleAdmin, Alias: "x"}))

	require.NoError(t, manager.ReplaceData(ctx, id, domain.Fields{Role: domain.RoleEmployee}))
	fields, err := manager.GetData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Fields{Role: domain.RoleEmployee}, fields, "replace drops every other field")

	conv, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateRoleSelection, conv.State, "data operations keep the state")
	assert.Equal(t, now, conv.UpdatedAt)

	require.NoError(t, manager.Clear(ctx, id))
	conv, err = manager.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, conv.Active())
	assert.Equal(t, domain.Fields{}, conv.Fields)
}

func TestManager_Replace(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, manager.MergeData(ctx, 1, domain.Fields{Alias: "stale"}))
	require.NoError(t, manager.Replace(ctx, 1, domain.StateApplicantConsideration, domain.Fields{Role: domain.RoleAdmin}))

	conv, err := manager.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StateApplicantConsideration, conv.State)
	assert.Empty(t, conv.Fields.Alias)

	assert.Error(t, manager.Replace(ctx, 1, domain.State("bogus"), domain.Fields{}))
	assert.Error(t, manager.SetState(ctx, 1, domain.State("bogus")))
}

func TestManager_UpdateErrorWritesNothing(t *testing.T) {
	store := NewSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := manager.Update(ctx, 7, func(c *domain.Conversation) error {
		c.State = domain.StateSendingContact
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.saves)

	state, err := manager.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNone, state)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewFromClient(client)
	manager := session.NewManager(store,
		session.WithLocker(redis.NewLocker(client, store.Prefix())),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, manager.MergeData(ctx, 1000, domain.Fields{PromptRef: domain.MessageRef(i + 1)}))
		}(i)
	}
	wg.Wait()

	assert.False(t, mr.Exists(store.Prefix()+"lock:1000"), "locks are released")
	fields, err := manager.GetData(ctx, 1000)
	require.NoError(t, err)
	assert.NotZero(t, fields.PromptRef)
}
