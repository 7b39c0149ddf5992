package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"taskdeck.dev/internal/obs"
)

func newTestGate(t *testing.T, parents map[string]string) *Gate {
	t.Helper()
	gate, err := NewGate(DefaultCapabilityTable(), newTestResolver(t, parents))
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return gate
}

func TestAuthorizeOrderedChecks(t *testing.T) {
	gate := newTestGate(t, map[string]string{
		"org1": "",
		"org2": "org1",
		"org9": "",
	})
	ctx := context.Background()

	cases := []struct {
		name     string
		identity *Identity
		perm     Permission
		target   string
		allowed  bool
		reason   DenyReason
	}{
		{
			name:    "unauthenticated",
			perm:    PermTaskRead,
			allowed: false,
			reason:  DenyUnauthenticated,
		},
		{
			name:     "admin deletes task without target org",
			identity: &Identity{UserID: "u1", Role: RoleAdmin, OrgID: "org1"},
			perm:     PermTaskDelete,
			allowed:  true,
		},
		{
			name:     "admin lacks org.manage",
			identity: &Identity{UserID: "u1", Role: RoleAdmin, OrgID: "org1"},
			perm:     PermManageOrg,
			allowed:  false,
			reason:   DenyInsufficientPermission,
		},
		{
			name:     "owner reads child org",
			identity: &Identity{UserID: "u2", Role: RoleOwner, OrgID: "org1"},
			perm:     PermTaskRead,
			target:   "org2",
			allowed:  true,
		},
		{
			name:     "owner out of scope",
			identity: &Identity{UserID: "u2", Role: RoleOwner, OrgID: "org1"},
			perm:     PermTaskRead,
			target:   "org9",
			allowed:  false,
			reason:   DenyOutOfScope,
		},
		{
			name:     "viewer cannot create even in home org",
			identity: &Identity{UserID: "u3", Role: RoleViewer, OrgID: "org1"},
			perm:     PermTaskCreate,
			target:   "org1",
			allowed:  false,
			reason:   DenyInsufficientPermission,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := gate.Authorize(ctx, tc.identity, tc.perm, tc.target)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if decision.Allowed != tc.allowed {
				t.Fatalf("allowed=%v, want %v", decision.Allowed, tc.allowed)
			}
			if decision.Reason != tc.reason {
				t.Fatalf("reason=%q, want %q", decision.Reason, tc.reason)
			}
		})
	}
}

func TestAuthorizeIsIdempotent(t *testing.T) {
	gate := newTestGate(t, map[string]string{"org1": "", "org2": "org1"})
	ctx := context.Background()
	identity := &Identity{UserID: "u1", Role: RoleOwner, OrgID: "org1"}

	first, err := gate.Authorize(ctx, identity, PermTaskRead, "org2")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	second, err := gate.Authorize(ctx, identity, PermTaskRead, "org2")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if first != second {
		t.Fatalf("verdicts differ: %+v vs %+v", first, second)
	}
}

func TestAuthorizeRoleChangeSelfModification(t *testing.T) {
	gate := newTestGate(t, map[string]string{"org1": ""})
	ctx := context.Background()

	// Owner holds users.manage, yet may never change their own role.
	owner := &Identity{UserID: "u1", Role: RoleOwner, OrgID: "org1"}
	decision, err := gate.AuthorizeRoleChange(ctx, owner, "u1")
	if err != nil {
		t.Fatalf("AuthorizeRoleChange: %v", err)
	}
	if decision.Allowed || decision.Reason != DenySelfModificationForbidden {
		t.Fatalf("expected self-modification denial, got %+v", decision)
	}

	decision, err = gate.AuthorizeRoleChange(ctx, owner, "u2")
	if err != nil {
		t.Fatalf("AuthorizeRoleChange: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("owner must manage another user, got %+v", decision)
	}

	viewer := &Identity{UserID: "u3", Role: RoleViewer, OrgID: "org1"}
	decision, err = gate.AuthorizeRoleChange(ctx, viewer, "u2")
	if err != nil {
		t.Fatalf("AuthorizeRoleChange: %v", err)
	}
	if decision.Allowed || decision.Reason != DenyInsufficientPermission {
		t.Fatalf("viewer must be denied users.manage, got %+v", decision)
	}
}

func TestDenialsAreLogged(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	gate := newTestGate(t, map[string]string{"org1": ""})
	decision, err := gate.Authorize(context.Background(), nil, PermTaskRead, "")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected denial")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "authz" || entry["outcome"] != "deny" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if entry["reason"] != string(DenyUnauthenticated) {
		t.Fatalf("unexpected reason: %v", entry["reason"])
	}

	// Allows stay off the log stream.
	buf.Reset()
	identity := &Identity{UserID: "u1", Role: RoleAdmin, OrgID: "org1"}
	if decision, err = gate.Authorize(context.Background(), identity, PermTaskRead, ""); err != nil || !decision.Allowed {
		t.Fatalf("expected allow, got %+v err=%v", decision, err)
	}
	if buf.Len() != 0 {
		t.Fatalf("allow must not log: %s", buf.String())
	}
}
