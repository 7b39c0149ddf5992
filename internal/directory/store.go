package directory

import (
	"context"
	"errors"

	"taskdeck.dev/internal/authz"
)

// Store describes persistence operations required by the directory.
type Store interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (Organization, error)
	ListChildOrganizations(ctx context.Context, parentID string) ([]Organization, error)

	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	ListUsersByOrg(ctx context.Context, orgIDs []string) ([]User, error)
	UpdateUserRole(ctx context.Context, userID string, role authz.Role) (User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// orgDirectory adapts a Store to the narrow lookup the hierarchy resolver
// needs, translating error domains on the way.
type orgDirectory struct {
	store Store
}

// AuthzDirectory exposes the organization tree to the authorization core.
func AuthzDirectory(store Store) authz.OrgDirectory {
	return orgDirectory{store: store}
}

func (d orgDirectory) GetOrganization(ctx context.Context, id string) (authz.OrgNode, error) {
	org, err := d.store.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return authz.OrgNode{}, authz.ErrNotFound
		}
		return authz.OrgNode{}, err
	}
	node := authz.OrgNode{ID: org.ID}
	if org.ParentID != nil {
		node.ParentID = *org.ParentID
	}
	return node, nil
}

func (d orgDirectory) ListChildOrganizations(ctx context.Context, parentID string) ([]authz.OrgNode, error) {
	orgs, err := d.store.ListChildOrganizations(ctx, parentID)
	if err != nil {
		return nil, err
	}
	nodes := make([]authz.OrgNode, 0, len(orgs))
	for _, org := range orgs {
		node := authz.OrgNode{ID: org.ID}
		if org.ParentID != nil {
			node.ParentID = *org.ParentID
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
