package authz

import (
	"context"
	"errors"
	"testing"
)

// fakeDirectory serves a fixed parent-linked tree from memory.
type fakeDirectory struct {
	parents map[string]string // id -> parent id ("" = root)
	failing bool
}

func (d *fakeDirectory) GetOrganization(ctx context.Context, id string) (OrgNode, error) {
	if d.failing {
		return OrgNode{}, errors.New("connection refused")
	}
	parent, ok := d.parents[id]
	if !ok {
		return OrgNode{}, ErrNotFound
	}
	return OrgNode{ID: id, ParentID: parent}, nil
}

func (d *fakeDirectory) ListChildOrganizations(ctx context.Context, parentID string) ([]OrgNode, error) {
	if d.failing {
		return nil, errors.New("connection refused")
	}
	var out []OrgNode
	for id, parent := range d.parents {
		if parent == parentID {
			out = append(out, OrgNode{ID: id, ParentID: parent})
		}
	}
	return out, nil
}

func newTestResolver(t *testing.T, parents map[string]string) *Resolver {
	t.Helper()
	r, err := NewResolver(&fakeDirectory{parents: parents})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestAccessibleOrgIDsOwnerGetsDirectChildren(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"A": "",
		"B": "A",
		"C": "A",
		"D": "B", // grandchild, must not be materialized
		"X": "",
	})

	scope, err := r.AccessibleOrgIDs(context.Background(), &Identity{UserID: "u1", Role: RoleOwner, OrgID: "A"})
	if err != nil {
		t.Fatalf("AccessibleOrgIDs: %v", err)
	}
	want := []string{"A", "B", "C"}
	got := scope.IDs()
	if len(got) != len(want) {
		t.Fatalf("scope=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scope=%v, want %v", got, want)
		}
	}
	if scope.Contains("D") || scope.Contains("X") {
		t.Fatalf("scope leaked beyond direct children: %v", got)
	}
}

func TestAccessibleOrgIDsNonOwnerHomeOnly(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"A": "",
		"B": "A",
	})

	for _, role := range []Role{RoleAdmin, RoleViewer} {
		scope, err := r.AccessibleOrgIDs(context.Background(), &Identity{UserID: "u1", Role: role, OrgID: "A"})
		if err != nil {
			t.Fatalf("AccessibleOrgIDs(%s): %v", role, err)
		}
		if len(scope) != 1 || !scope.Contains("A") {
			t.Fatalf("role %s: scope=%v, want only A", role, scope.IDs())
		}
	}
}

func TestAccessibleOrgIDsMissingHome(t *testing.T) {
	r := newTestResolver(t, map[string]string{"A": ""})

	_, err := r.AccessibleOrgIDs(context.Background(), &Identity{UserID: "u1", Role: RoleOwner, OrgID: "gone"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccessibleOrgIDsStorageFailure(t *testing.T) {
	r, err := NewResolver(&fakeDirectory{failing: true})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	_, err = r.AccessibleOrgIDs(context.Background(), &Identity{UserID: "u1", Role: RoleViewer, OrgID: "A"})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestReachableFromWalksChain(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"A": "",
		"B": "A",
		"C": "B",
		"D": "C",
		"S": "", // sibling root with no path to A
	})

	ok, err := r.ReachableFrom(context.Background(), "D", "A")
	if err != nil {
		t.Fatalf("ReachableFrom: %v", err)
	}
	if !ok {
		t.Fatal("D must reach A through C and B")
	}

	ok, err = r.ReachableFrom(context.Background(), "S", "A")
	if err != nil {
		t.Fatalf("ReachableFrom: %v", err)
	}
	if ok {
		t.Fatal("S has no path to A")
	}

	ok, err = r.ReachableFrom(context.Background(), "A", "A")
	if err != nil {
		t.Fatalf("ReachableFrom: %v", err)
	}
	if !ok {
		t.Fatal("an organization always reaches itself")
	}
}

func TestReachableFromBoundsCyclicTree(t *testing.T) {
	// The acyclic invariant is violated on purpose; the walk must terminate.
	r := newTestResolver(t, map[string]string{
		"A": "B",
		"B": "A",
	})

	ok, err := r.ReachableFrom(context.Background(), "A", "Z")
	if err != nil {
		t.Fatalf("ReachableFrom: %v", err)
	}
	if ok {
		t.Fatal("cycle must resolve to unreachable")
	}
}
