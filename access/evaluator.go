package access

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSubject is returned when authorization runs without an authenticated
// user on the request. Session validation is supposed to run first, so
// hitting this is a wiring bug in the caller, not a user error.
var ErrNoSubject = errors.New("no authenticated user on request")

// ErrRoleDenied is returned when none of the required roles is held.
var ErrRoleDenied = errors.New("required role not held")

// ErrPermissionDenied is returned when a required permission is missing.
var ErrPermissionDenied = errors.New("required permission not held")

// Requirement is the access declaration attached to a route: which roles
// (any of) and permissions (all of) a caller must hold. The zero value is
// public.
type Requirement struct {
	Roles       []string
	Permissions []string
}

// Public reports whether the requirement places no restriction at all.
func (r Requirement) Public() bool {
	return len(r.Roles) == 0 && len(r.Permissions) == 0
}

// Grants is a user's effective access: the role names the user holds and
// the union of those roles' permission names.
type Grants struct {
	Roles       []string
	Permissions []string
}

// GrantSource resolves a user's roles and, transitively, the permissions of
// those roles in a single lookup.
type GrantSource interface {
	GrantsForUser(ctx context.Context, userID string) (Grants, error)
}

// Evaluator decides route-level authorization against a GrantSource.
type Evaluator struct {
	source GrantSource
}

// NewEvaluator returns an Evaluator backed by source.
func NewEvaluator(source GrantSource) *Evaluator {
	return &Evaluator{source: source}
}

// Authorize loads the user's grants and checks them against req. An empty
// requirement always allows without touching the source. An empty userID
// fails with ErrNoSubject.
func (e *Evaluator) Authorize(ctx context.Context, userID string, req Requirement) error {
	if req.Public() {
		return nil
	}
	if userID == "" {
		return ErrNoSubject
	}

	grants, err := e.source.GrantsForUser(ctx, userID)
	if err != nil {
		return err
	}

	return Check(grants, req)
}

// Check applies the comparison policy to already-loaded grants:
// at least one required role must match (OR), every required permission
// must be present (AND), and both dimensions are enforced independently.
// Name comparison is case-insensitive.
func Check(grants Grants, req Requirement) error {
	if req.Public() {
		return nil
	}

	roleSet := lowerSet(grants.Roles)
	permissionSet := lowerSet(grants.Permissions)

	if len(req.Roles) > 0 {
		matched := false
		for _, role := range req.Roles {
			if _, ok := roleSet[strings.ToLower(role)]; ok {
				matched = true
				break
			}
		}
		if !matched {
			return ErrRoleDenied
		}
	}

	for _, perm := range req.Permissions {
		if _, ok := permissionSet[strings.ToLower(perm)]; !ok {
			return ErrPermissionDenied
		}
	}

	return nil
}

func lowerSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[strings.ToLower(name)] = struct{}{}
	}
	return set
}
