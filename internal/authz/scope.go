package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// maxWalkDepth bounds the upward parent walk. The organization tree is
// required to be acyclic; the bound turns an accidental cycle into a clean
// denial instead of an endless loop.
const maxWalkDepth = 64

// OrgNode is the slice of an organization the resolver needs.
type OrgNode struct {
	ID       string
	ParentID string // empty marks a root
}

// OrgDirectory is the read-only organization lookup the resolver depends on.
type OrgDirectory interface {
	GetOrganization(ctx context.Context, id string) (OrgNode, error)
	ListChildOrganizations(ctx context.Context, parentID string) ([]OrgNode, error)
}

// Scope is the set of organization ids an identity may act over for one
// operation. Computed fresh per request, never cached.
type Scope map[string]struct{}

// Contains reports scope membership.
func (s Scope) Contains(orgID string) bool {
	_, ok := s[orgID]
	return ok
}

// IDs returns the scope as a sorted slice for building query predicates.
// Callers must treat the slice as a disjunction.
func (s Scope) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolver computes organization accessibility from the parent-linked tree.
type Resolver struct {
	dir OrgDirectory
}

// NewResolver constructs a Resolver over the given directory.
func NewResolver(dir OrgDirectory) (*Resolver, error) {
	if dir == nil {
		return nil, errors.New("authz: org directory is required")
	}
	return &Resolver{dir: dir}, nil
}

// AccessibleOrgIDs returns the scope for the identity. The home organization
// is always included; owners additionally get direct children of their home
// organization. Deeper descendants are intentionally not materialized.
func (r *Resolver) AccessibleOrgIDs(ctx context.Context, identity *Identity) (Scope, error) {
	if identity == nil {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidInput)
	}
	home, err := r.dir.GetOrganization(ctx, identity.OrgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: home organization %s", ErrNotFound, identity.OrgID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	scope := Scope{home.ID: {}}
	if identity.Role != RoleOwner {
		return scope, nil
	}

	children, err := r.dir.ListChildOrganizations(ctx, home.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, child := range children {
		scope[child.ID] = struct{}{}
	}
	return scope, nil
}

// ReachableFrom reports whether homeOrgID is an ancestor of (or equal to)
// targetOrgID, walking parent links upward from the target. The walk is
// bounded by maxWalkDepth and reports false once the bound is exceeded.
func (r *Resolver) ReachableFrom(ctx context.Context, targetOrgID, homeOrgID string) (bool, error) {
	if targetOrgID == "" || homeOrgID == "" {
		return false, fmt.Errorf("%w: organization ids are required", ErrInvalidInput)
	}
	if targetOrgID == homeOrgID {
		return true, nil
	}
	current := targetOrgID
	for depth := 0; depth < maxWalkDepth; depth++ {
		node, err := r.dir.GetOrganization(ctx, current)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if node.ParentID == "" {
			return false, nil
		}
		if node.ParentID == homeOrgID {
			return true, nil
		}
		current = node.ParentID
	}
	return false, nil
}
