package access_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/staffgate/pkg/access"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	role domain.Role
	ok   bool
	err  error
}

func (s stubResolver) LookupRole(context.Context, domain.Identity) (domain.Role, bool, error) {
	return s.role, s.ok, s.err
}

func reason(t *testing.T, err error) string {
	t.Helper()
	var denied *access.DeniedError
	require.True(t, errors.As(err, &denied), "expected *DeniedError, got %v", err)
	return denied.Reason
}

func TestGateDefaultDeny(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		res    stubResolver
		pred   access.Predicate
		reason string
	}{
		{"lookup error", stubResolver{err: errors.New("db down")}, access.Superuser(), access.ReasonLookupFailed},
		{"unknown identity", stubResolver{}, access.Superuser(), access.ReasonUnknown},
		{"wrong role", stubResolver{role: domain.RoleAdmin, ok: true}, access.Superuser(), access.ReasonRole},
		{"invalid stored role", stubResolver{role: "root", ok: true}, access.RequireRole("root"), access.ReasonInvalidRole},
		{"nil predicate", stubResolver{role: domain.RoleSuperuser, ok: true}, nil, access.ReasonNoPredicate},
		{"empty all", stubResolver{role: domain.RoleSuperuser, ok: true}, access.All(), access.ReasonRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := access.New(tc.res)
			err := gate.Allow(ctx, 1, tc.pred)
			require.ErrorIs(t, err, domain.ErrAccessDenied)
			assert.Equal(t, tc.reason, reason(t, err))
		})
	}
}

func TestGateAllows(t *testing.T) {
	ctx := context.Background()
	gate := access.New(stubResolver{role: domain.RoleSuperuser, ok: true})
	assert.NoError(t, gate.Allow(ctx, 1, access.Superuser()))
	assert.NoError(t, gate.Allow(ctx, 1, access.Any(access.Unregistered(), access.Superuser())))
	assert.Error(t, gate.Allow(ctx, 1, access.All(access.Superuser(), access.Unregistered())))

	stranger := access.New(stubResolver{})
	assert.NoError(t, stranger.Allow(ctx, 2, access.Unregistered()))
}

func TestResolveRoleOverDirectory(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewDirectory()
	require.NoError(t, dir.InsertStaff(ctx, domain.StaffRecord{Identity: 10, Alias: "boss", Role: domain.RoleSuperuser}))

	gate := access.New(dir)
	role, ok := gate.ResolveRole(ctx, 10)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleSuperuser, role)

	role, ok = gate.ResolveRole(ctx, 11)
	assert.False(t, ok)
	assert.Empty(t, role)

	failing := access.New(stubResolver{err: errors.New("boom")})
	_, ok = failing.ResolveRole(ctx, 10)
	assert.False(t, ok)
}
