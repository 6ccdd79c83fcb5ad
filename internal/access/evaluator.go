// Package access enforces role-based permission checks at protected
// operation boundaries. Checks fail closed: absence of an explicit grant is
// denial.
package access

import (
	"context"

	"github.com/spec-kit/account-service/internal/domain"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// RoleSource is the read-only relational lookup the evaluator depends on.
type RoleSource interface {
	FindRolesForSubject(ctx context.Context, subjectID string) ([]domain.Role, error)
}

// PermissionSet is the flattened union of a subject's role permissions,
// keyed "action:resource".
type PermissionSet map[string]struct{}

// Has reports an exact (action, resource) grant or the grants-all sentinel.
func (s PermissionSet) Has(action, resource string) bool {
	if _, ok := s[domain.ActionAll+":"+domain.ResourceAll]; ok {
		return true
	}
	_, ok := s[action+":"+resource]
	return ok
}

// Subject is an authenticated principal with its resolved permission set.
// It lives for one request only: permissions are recomputed on every request
// so role changes take effect immediately.
type Subject struct {
	ID          string
	Permissions PermissionSet
}

// IsSelf reports whether the subject is operating on its own record.
// Ownership is a capability distinct from role permissions; callers combine
// it with Authorize explicitly.
func (s *Subject) IsSelf(targetID string) bool {
	return s != nil && targetID != "" && s.ID == targetID
}

// Evaluator resolves and checks permissions.
type Evaluator struct {
	roles RoleSource
}

// NewEvaluator builds an evaluator over the given role source.
func NewEvaluator(roles RoleSource) *Evaluator {
	return &Evaluator{roles: roles}
}

// ResolvePermissions flattens all roles held by the subject into the union
// of their permissions. Never cached across requests.
func (e *Evaluator) ResolvePermissions(ctx context.Context, subjectID string) (PermissionSet, error) {
	roles, err := e.roles.FindRolesForSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	set := make(PermissionSet)
	for _, role := range roles {
		for _, perm := range role.Permissions {
			set[perm.Action+":"+perm.Resource] = struct{}{}
		}
	}
	return set, nil
}

// Resolve builds the request-scoped Subject for an authenticated caller.
func (e *Evaluator) Resolve(ctx context.Context, subjectID string) (*Subject, error) {
	perms, err := e.ResolvePermissions(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return &Subject{ID: subjectID, Permissions: perms}, nil
}

// Authorize performs an exact match against the resolved set. No wildcard or
// hierarchy logic beyond the grants-all sentinel.
func (e *Evaluator) Authorize(subject *Subject, action, resource string) bool {
	if subject == nil {
		return false
	}
	return subject.Permissions.Has(action, resource)
}

// Enforce authorizes or fails with distinct error kinds: a missing subject
// is an identity problem, a missing grant a permissions problem, and callers
// must be able to tell them apart.
func (e *Evaluator) Enforce(subject *Subject, action, resource string) error {
	if subject == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if !e.Authorize(subject, action, resource) {
		return apperrors.NewUnauthorized("permission denied")
	}
	return nil
}
