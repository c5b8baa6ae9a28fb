// Package access decides whether an identity may run a workflow step.
//
// Roles are always looked up in the directory and never taken from the
// event. Every failure path denies.
package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/staffgate/internal/logging"
	"github.com/aretw0/staffgate/pkg/domain"
)

// Denial reasons.
const (
	ReasonLookupFailed = "lookup_failed"
	ReasonUnknown      = "unknown"
	ReasonInvalidRole  = "invalid_role"
	ReasonRole         = "role"
	ReasonNoPredicate  = "no_predicate"
	ReasonBlacklisted  = "blacklisted"
)

// RoleResolver is the part of the directory the gate needs.
type RoleResolver interface {
	LookupRole(ctx context.Context, id domain.Identity) (domain.Role, bool, error)
}

// Predicate is a guard over a resolved role. known is false when the
// identity is not registered; role is then empty.
type Predicate func(role domain.Role, known bool) bool

// RequireRole admits registered identities holding one of roles.
func RequireRole(roles ...domain.Role) Predicate {
	return func(role domain.Role, known bool) bool {
		if !known {
			return false
		}
		for _, r := range roles {
			if r == role {
				return true
			}
		}
		return false
	}
}

// Superuser admits only the accepting authority.
func Superuser() Predicate {
	return RequireRole(domain.RoleSuperuser)
}

// Unregistered admits identities the directory does not know.
func Unregistered() Predicate {
	return func(_ domain.Role, known bool) bool {
		return !known
	}
}

// All admits when every predicate admits. An empty list denies.
func All(preds ...Predicate) Predicate {
	return func(role domain.Role, known bool) bool {
		if len(preds) == 0 {
			return false
		}
		for _, p := range preds {
			if p == nil || !p(role, known) {
				return false
			}
		}
		return true
	}
}

// Any admits when at least one predicate admits.
func Any(preds ...Predicate) Predicate {
	return func(role domain.Role, known bool) bool {
		for _, p := range preds {
			if p != nil && p(role, known) {
				return true
			}
		}
		return false
	}
}

// DeniedError carries the reason of a refusal. It matches
// domain.ErrAccessDenied under errors.Is.
type DeniedError struct {
	Identity domain.Identity
	Role     domain.Role
	Reason   string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: identity %s (%s)", domain.ErrAccessDenied, e.Identity, e.Reason)
}

func (e *DeniedError) Unwrap() error {
	return domain.ErrAccessDenied
}

// Gate resolves roles and applies predicates.
type Gate struct {
	roles  RoleResolver
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger used for denials.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New returns a gate over roles.
func New(roles RoleResolver, opts ...Option) *Gate {
	g := &Gate{roles: roles, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ResolveRole returns the role of id. A lookup error or an invalid stored
// role reports the identity as unknown.
func (g *Gate) ResolveRole(ctx context.Context, id domain.Identity) (domain.Role, bool) {
	role, _, err := g.resolve(ctx, id)
	if err != nil {
		return "", false
	}
	return role, role != ""
}

func (g *Gate) resolve(ctx context.Context, id domain.Identity) (domain.Role, bool, *DeniedError) {
	role, ok, err := g.roles.LookupRole(ctx, id)
	if err != nil {
		g.logger.Error("role lookup failed", "identity", id, "error", err)
		return "", false, &DeniedError{Identity: id, Reason: ReasonLookupFailed}
	}
	if !ok {
		return "", false, nil
	}
	if !role.Valid() {
		g.logger.Warn("directory holds an invalid role", "identity", id, "role", role)
		return "", false, &DeniedError{Identity: id, Role: role, Reason: ReasonInvalidRole}
	}
	return role, true, nil
}

// Allow returns nil when pred admits id and a *DeniedError otherwise.
func (g *Gate) Allow(ctx context.Context, id domain.Identity, pred Predicate) error {
	if pred == nil {
		return g.deny(&DeniedError{Identity: id, Reason: ReasonNoPredicate})
	}
	role, known, denied := g.resolve(ctx, id)
	if denied != nil {
		return g.deny(denied)
	}
	if !pred(role, known) {
		reason := ReasonRole
		if !known {
			reason = ReasonUnknown
		}
		return g.deny(&DeniedError{Identity: id, Role: role, Reason: reason})
	}
	return nil
}

func (g *Gate) deny(err *DeniedError) error {
	g.logger.Warn("access denied", "identity", err.Identity, "role", err.Role, "reason", err.Reason)
	return err
}
