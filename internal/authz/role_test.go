package authz

import "testing"

func TestDefaultCapabilityTable(t *testing.T) {
	table := DefaultCapabilityTable()

	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleOwner, PermTaskCreate, true},
		{RoleOwner, PermManageOrg, true},
		{RoleOwner, PermViewAudit, true},
		{RoleAdmin, PermTaskDelete, true},
		{RoleAdmin, PermViewAudit, true},
		{RoleAdmin, PermManageUsers, true},
		{RoleAdmin, PermManageOrg, false},
		{RoleViewer, PermTaskRead, true},
		{RoleViewer, PermTaskCreate, false},
		{RoleViewer, PermTaskUpdate, false},
		{RoleViewer, PermTaskDelete, false},
		{RoleViewer, PermViewAudit, false},
		{RoleViewer, PermManageUsers, false},
		{RoleViewer, PermManageOrg, false},
	}
	for _, tc := range cases {
		if got := table.Holds(tc.role, tc.perm); got != tc.want {
			t.Fatalf("Holds(%s, %s)=%v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCapabilityTableFailsClosed(t *testing.T) {
	table := DefaultCapabilityTable()

	if table.Holds(Role("superuser"), PermTaskRead) {
		t.Fatal("unknown role must hold no permissions")
	}
	if table.Holds(RoleOwner, Permission("task.purge")) {
		t.Fatal("unknown permission must not be granted")
	}

	empty := NewCapabilityTable(nil)
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleViewer} {
		if empty.Holds(role, PermTaskRead) {
			t.Fatalf("empty table granted %s to %s", PermTaskRead, role)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, v := range []string{"owner", " Admin ", "VIEWER"} {
		if _, err := ParseRole(v); err != nil {
			t.Fatalf("ParseRole(%q): %v", v, err)
		}
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestCanManage(t *testing.T) {
	if !RoleOwner.CanManage(RoleAdmin) || !RoleOwner.CanManage(RoleOwner) {
		t.Fatal("owner must manage owner and admin")
	}
	if RoleAdmin.CanManage(RoleOwner) {
		t.Fatal("admin must not manage owner")
	}
	if !RoleAdmin.CanManage(RoleViewer) {
		t.Fatal("admin must manage viewer")
	}
	if RoleViewer.CanManage(RoleAdmin) {
		t.Fatal("viewer must not manage admin")
	}
}
