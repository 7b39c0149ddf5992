package authz

import (
	"context"
	"encoding/json"
	"time"

	"taskdeck.dev/internal/obs"
)

// Identity is the authenticated principal for one request. It is produced by
// the credential layer and carries no credential material.
type Identity struct {
	UserID string
	Role   Role
	OrgID  string
}

// DenyReason classifies a denial. Denials are expected outcomes and are
// returned as values, never as errors.
type DenyReason string

const (
	DenyUnauthenticated           DenyReason = "unauthenticated"
	DenyInsufficientPermission    DenyReason = "insufficient_permission"
	DenyOutOfScope                DenyReason = "out_of_scope"
	DenySelfModificationForbidden DenyReason = "self_modification_forbidden"
)

// Decision is the gate verdict for one operation.
type Decision struct {
	Allowed bool
	Reason  DenyReason // set only on deny
}

func allow() Decision {
	obs.ObserveAuthzDecision("allow", "")
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	obs.ObserveAuthzDecision("deny", string(reason))
	logDeny(reason)
	return Decision{Reason: reason}
}

// logDeny mirrors every denial onto the structured log stream. Allows stay
// silent; they are the common case and the metrics already count them.
func logDeny(reason DenyReason) {
	data, err := json.Marshal(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"type":    "authz",
		"outcome": "deny",
		"reason":  string(reason),
	})
	if err != nil {
		return
	}
	obs.Logger().Println(string(data))
}

// Gate is the single chokepoint every protected operation passes through. It
// is stateless: every call re-evaluates against the current role and the
// current hierarchy, so a role change takes effect on the next request.
type Gate struct {
	table    CapabilityTable
	resolver *Resolver
}

// NewGate constructs a Gate with an injected capability table.
func NewGate(table CapabilityTable, resolver *Resolver) (*Gate, error) {
	if resolver == nil {
		return nil, ErrInvalidInput
	}
	return &Gate{table: table, resolver: resolver}, nil
}

// Authorize evaluates the ordered checks for one operation: presence,
// capability, then scope (only when a target organization is named). The
// first failing check decides; errors are reserved for missing data and
// storage failures, never for denials.
func (g *Gate) Authorize(ctx context.Context, identity *Identity, perm Permission, targetOrgID string) (Decision, error) {
	if identity == nil || identity.UserID == "" {
		return deny(DenyUnauthenticated), nil
	}
	if !g.table.Holds(identity.Role, perm) {
		return deny(DenyInsufficientPermission), nil
	}
	if targetOrgID == "" {
		return allow(), nil
	}
	scope, err := g.resolver.AccessibleOrgIDs(ctx, identity)
	if err != nil {
		return Decision{}, err
	}
	if !scope.Contains(targetOrgID) {
		return deny(DenyOutOfScope), nil
	}
	return allow(), nil
}

// AuthorizeRoleChange guards role mutations: the users.manage capability is
// required, and changing one's own role is always denied. Capability alone
// cannot prevent privilege self-escalation or self-lockout.
func (g *Gate) AuthorizeRoleChange(ctx context.Context, identity *Identity, targetUserID string) (Decision, error) {
	if identity == nil || identity.UserID == "" {
		return deny(DenyUnauthenticated), nil
	}
	if identity.UserID == targetUserID {
		return deny(DenySelfModificationForbidden), nil
	}
	if !g.table.Holds(identity.Role, PermManageUsers) {
		return deny(DenyInsufficientPermission), nil
	}
	return allow(), nil
}

// Scope exposes the resolver result for callers that build query predicates
// (task listing, audit queries).
func (g *Gate) Scope(ctx context.Context, identity *Identity) (Scope, error) {
	return g.resolver.AccessibleOrgIDs(ctx, identity)
}
