package directory

import (
	"context"
	"errors"
	"testing"

	"taskdeck.dev/internal/audit"
	"taskdeck.dev/internal/authz"
)

type fixture struct {
	svc      *Service
	store    *InMemory
	auditlog *audit.InMemory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewInMemory()
	resolver, err := authz.NewResolver(AuthzDirectory(store))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	gate, err := authz.NewGate(authz.DefaultCapabilityTable(), resolver)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	auditStore := audit.NewInMemory()
	recorder, err := audit.NewRecorder(auditStore)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	svc, err := NewService(store, gate, recorder)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, store: store, auditlog: auditStore}
}

func (f *fixture) seedUser(t *testing.T, orgID string, role authz.Role, email string) User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), orgID, email, "Test User", "hash", role)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateSubOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.svc.CreateRootOrganization(ctx, "Acme")
	if err != nil {
		t.Fatalf("CreateRootOrganization: %v", err)
	}
	owner := f.seedUser(t, root.ID, authz.RoleOwner, "owner@acme.test")

	child, err := f.svc.CreateSubOrganization(ctx, owner.Identity(), "Acme EU")
	if err != nil {
		t.Fatalf("CreateSubOrganization: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Fatalf("child parent=%v, want %s", child.ParentID, root.ID)
	}

	recs, err := f.auditlog.Query(ctx, []string{root.ID}, 10)
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(recs) != 1 || recs[0].Action != "org.create" {
		t.Fatalf("expected one org.create audit record, got %+v", recs)
	}

	// Admins lack org.manage.
	admin := f.seedUser(t, root.ID, authz.RoleAdmin, "admin@acme.test")
	_, err = f.svc.CreateSubOrganization(ctx, admin.Identity(), "Shadow Org")
	denied, ok := authz.AsDenied(err)
	if !ok || denied.Reason != authz.DenyInsufficientPermission {
		t.Fatalf("expected insufficient_permission, got %v", err)
	}
}

func TestChangeUserRoleGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, _ := f.svc.CreateRootOrganization(ctx, "Acme")
	other, _ := f.svc.CreateRootOrganization(ctx, "Rival")
	owner := f.seedUser(t, root.ID, authz.RoleOwner, "owner@acme.test")
	admin := f.seedUser(t, root.ID, authz.RoleAdmin, "admin@acme.test")
	viewer := f.seedUser(t, root.ID, authz.RoleViewer, "viewer@acme.test")
	outsider := f.seedUser(t, other.ID, authz.RoleViewer, "viewer@rival.test")

	// Self-modification is denied even for the owner.
	_, err := f.svc.ChangeUserRole(ctx, owner.Identity(), owner.ID, authz.RoleAdmin)
	denied, ok := authz.AsDenied(err)
	if !ok || denied.Reason != authz.DenySelfModificationForbidden {
		t.Fatalf("expected self_modification_forbidden, got %v", err)
	}

	// Admin cannot touch the owner.
	_, err = f.svc.ChangeUserRole(ctx, admin.Identity(), owner.ID, authz.RoleViewer)
	denied, ok = authz.AsDenied(err)
	if !ok || denied.Reason != authz.DenyInsufficientPermission {
		t.Fatalf("expected insufficient_permission, got %v", err)
	}

	// Admin cannot promote past their own level.
	_, err = f.svc.ChangeUserRole(ctx, admin.Identity(), viewer.ID, authz.RoleOwner)
	denied, ok = authz.AsDenied(err)
	if !ok || denied.Reason != authz.DenyInsufficientPermission {
		t.Fatalf("expected insufficient_permission, got %v", err)
	}

	// Out-of-scope target organization.
	_, err = f.svc.ChangeUserRole(ctx, owner.Identity(), outsider.ID, authz.RoleAdmin)
	denied, ok = authz.AsDenied(err)
	if !ok || denied.Reason != authz.DenyOutOfScope {
		t.Fatalf("expected out_of_scope, got %v", err)
	}

	// Legitimate promotion, audited.
	updated, err := f.svc.ChangeUserRole(ctx, owner.Identity(), viewer.ID, authz.RoleAdmin)
	if err != nil {
		t.Fatalf("ChangeUserRole: %v", err)
	}
	if updated.Role != authz.RoleAdmin {
		t.Fatalf("role=%s, want admin", updated.Role)
	}
	recs, err := f.auditlog.Query(ctx, []string{root.ID}, 10)
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(recs) != 1 || recs[0].Action != "user.role.update" {
		t.Fatalf("expected user.role.update record, got %+v", recs)
	}
}

func TestRemoveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, _ := f.svc.CreateRootOrganization(ctx, "Acme")
	owner := f.seedUser(t, root.ID, authz.RoleOwner, "owner@acme.test")
	viewer := f.seedUser(t, root.ID, authz.RoleViewer, "viewer@acme.test")

	if err := f.svc.RemoveUser(ctx, owner.Identity(), owner.ID); err == nil {
		t.Fatal("self removal must be denied")
	}
	if err := f.svc.RemoveUser(ctx, owner.Identity(), viewer.ID); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if _, err := f.svc.GetUser(ctx, viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted user, got %v", err)
	}
}

func TestListChildOrganizationsScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, _ := f.svc.CreateRootOrganization(ctx, "Acme")
	owner := f.seedUser(t, root.ID, authz.RoleOwner, "owner@acme.test")
	child, err := f.svc.CreateSubOrganization(ctx, owner.Identity(), "Acme EU")
	if err != nil {
		t.Fatalf("CreateSubOrganization: %v", err)
	}

	children, err := f.svc.ListChildOrganizations(ctx, owner.Identity())
	if err != nil {
		t.Fatalf("ListChildOrganizations: %v", err)
	}
	if len(children) != 1 || children[0].ID != child.ID {
		t.Fatalf("owner should see the child org, got %+v", children)
	}

	// Admin and viewer scopes are home-only; the child must not leak.
	for _, role := range []authz.Role{authz.RoleAdmin, authz.RoleViewer} {
		member := f.seedUser(t, root.ID, role, string(role)+"@acme.test")
		children, err := f.svc.ListChildOrganizations(ctx, member.Identity())
		if err != nil {
			t.Fatalf("ListChildOrganizations(%s): %v", role, err)
		}
		if len(children) != 0 {
			t.Fatalf("%s received out-of-scope children: %+v", role, children)
		}
	}
}

func TestListUsersScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, _ := f.svc.CreateRootOrganization(ctx, "Acme")
	owner := f.seedUser(t, root.ID, authz.RoleOwner, "owner@acme.test")
	child, err := f.svc.CreateSubOrganization(ctx, owner.Identity(), "Acme EU")
	if err != nil {
		t.Fatalf("CreateSubOrganization: %v", err)
	}
	f.seedUser(t, child.ID, authz.RoleViewer, "viewer@acme-eu.test")

	users, err := f.svc.ListUsers(ctx, owner.Identity())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("owner should see both orgs' users, got %d", len(users))
	}

	// Viewers lack users.manage entirely.
	viewer := f.seedUser(t, root.ID, authz.RoleViewer, "viewer@acme.test")
	_, err = f.svc.ListUsers(ctx, viewer.Identity())
	if _, ok := authz.AsDenied(err); !ok {
		t.Fatalf("expected denial, got %v", err)
	}
}
