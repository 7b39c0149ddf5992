package authz

import (
	"fmt"
	"strings"
)

// Role is a closed category determining baseline capability.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// ParseRole normalizes and validates a role value.
func ParseRole(v string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(v))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, v)
	}
}

// Permission is a fine-grained action right.
type Permission string

const (
	PermTaskCreate  Permission = "task.create"
	PermTaskRead    Permission = "task.read"
	PermTaskUpdate  Permission = "task.update"
	PermTaskDelete  Permission = "task.delete"
	PermViewAudit   Permission = "audit.view"
	PermManageUsers Permission = "users.manage"
	PermManageOrg   Permission = "org.manage"
)

// CapabilityTable maps each role to the exact set of permissions it holds.
// Unknown roles hold nothing. The sets are spelled out per role on purpose:
// future permissions are not guaranteed to nest, so nothing is derived by
// inheritance.
type CapabilityTable struct {
	grants map[Role]map[Permission]struct{}
}

// NewCapabilityTable builds an immutable table from explicit grants.
func NewCapabilityTable(grants map[Role][]Permission) CapabilityTable {
	t := CapabilityTable{grants: make(map[Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		t.grants[role] = set
	}
	return t
}

// DefaultCapabilityTable returns the production role grants.
func DefaultCapabilityTable() CapabilityTable {
	return NewCapabilityTable(map[Role][]Permission{
		RoleOwner: {
			PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete,
			PermViewAudit, PermManageUsers, PermManageOrg,
		},
		RoleAdmin: {
			PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete,
			PermViewAudit, PermManageUsers,
		},
		RoleViewer: {
			PermTaskRead,
		},
	})
}

// Holds reports whether the role is granted the permission. Roles absent
// from the table hold no permissions.
func (t CapabilityTable) Holds(role Role, perm Permission) bool {
	set, ok := t.grants[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// manages lists, per role, the roles it may administer. Spelled out like the
// capability table rather than derived from an ordering.
var manages = map[Role][]Role{
	RoleOwner:  {RoleOwner, RoleAdmin, RoleViewer},
	RoleAdmin:  {RoleAdmin, RoleViewer},
	RoleViewer: {RoleViewer},
}

// CanManage reports whether a user with role r may administer a user holding
// the target role.
func (r Role) CanManage(target Role) bool {
	for _, m := range manages[r] {
		if m == target {
			return true
		}
	}
	return false
}
