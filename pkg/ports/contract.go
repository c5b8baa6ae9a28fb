package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	id := domain.Identity(time.Now().UnixNano() % 1_000_000_000)

	t.Run("Save and Load", func(t *testing.T) {
		conv := domain.NewConversation(id)
		conv.State = domain.StateApplicantConsideration
		conv.Fields = domain.Fields{
			Role:        domain.RoleEmployee,
			Applicant:   &domain.Contact{Identity: 42, Name: "Ann", Phone: "+1"},
			Files:       []domain.File{{ID: "f1", Name: "Mon"}},
			FilesListed: true,
			Rollback:    "opaque",
			PromptRef:   7,
		}

		err := store.Save(ctx, id, conv)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, id, loaded.Identity)
		assert.Equal(t, conv.State, loaded.State)
		assert.Equal(t, conv.Fields, loaded.Fields)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Fields.Alias = "mutated"
		loaded.Fields.Files[0].Name = "mutated"

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, again.Fields.Alias)
		assert.Equal(t, "Mon", again.Fields.Files[0].Name)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		conv := domain.NewConversation(id)
		conv.State = domain.StateInputMembersAlias
		require.NoError(t, store.Save(ctx, id, conv))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StateInputMembersAlias, loaded.State)
		assert.Nil(t, loaded.Fields.Applicant)
		assert.Empty(t, loaded.Fields.Files)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, id+1)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, id, domain.NewConversation(id))
		require.NoError(t, err)

		err = store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound, "Load after Delete should return ErrConversationNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Delete of a missing conversation is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + 10
		id2 := id + 11
		_ = store.Save(ctx, id1, domain.NewConversation(id1))
		_ = store.Save(ctx, id2, domain.NewConversation(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
