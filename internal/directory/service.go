package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck.dev/internal/audit"
	"taskdeck.dev/internal/authz"
	"taskdeck.dev/internal/ids"
)

// Service provides organization and user management behind the
// authorization gate.
type Service struct {
	store    Store
	gate     *authz.Gate
	recorder *audit.Recorder
	now      func() time.Time
}

// NewService constructs the directory service.
func NewService(store Store, gate *authz.Gate, recorder *audit.Recorder) (*Service, error) {
	if store == nil {
		return nil, errors.New("directory: store is required")
	}
	if gate == nil {
		return nil, errors.New("directory: gate is required")
	}
	if recorder == nil {
		return nil, errors.New("directory: audit recorder is required")
	}
	return &Service{store: store, gate: gate, recorder: recorder, now: time.Now}, nil
}

// CreateRootOrganization creates a top-level organization. Used by the
// registration flow before any identity exists, so it is not gated.
func (s *Service) CreateRootOrganization(ctx context.Context, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	org := Organization{
		ID:        ids.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateOrganization(ctx, &org); err != nil {
		return Organization{}, err
	}
	return org, nil
}

// CreateSubOrganization creates a child of the actor's home organization.
// Requires org.manage; the new node always hangs off the actor's own
// organization, never an arbitrary parent.
func (s *Service) CreateSubOrganization(ctx context.Context, actor *authz.Identity, name string) (Organization, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermManageOrg, "")
	if err != nil {
		return Organization{}, err
	}
	if !decision.Allowed {
		return Organization{}, authz.DeniedError(decision.Reason)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	if _, err := s.store.GetOrganization(ctx, actor.OrgID); err != nil {
		return Organization{}, err
	}

	parentID := actor.OrgID
	now := s.now().UTC()
	org := Organization{
		ID:        ids.New(),
		Name:      name,
		ParentID:  &parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateOrganization(ctx, &org); err != nil {
		return Organization{}, err
	}
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "org.create", "organization", org.ID, "Created sub-organization: "+org.Name); err != nil {
		return Organization{}, err
	}
	return org, nil
}

// GetOrganization returns an organization the actor can see: their own or
// one inside their accessible scope.
func (s *Service) GetOrganization(ctx context.Context, actor *authz.Identity, id string) (Organization, error) {
	if actor == nil {
		return Organization{}, authz.DeniedError(authz.DenyUnauthenticated)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = actor.OrgID
	}
	if id != actor.OrgID {
		scope, err := s.gate.Scope(ctx, actor)
		if err != nil {
			return Organization{}, err
		}
		if !scope.Contains(id) {
			return Organization{}, authz.DeniedError(authz.DenyOutOfScope)
		}
	}
	return s.store.GetOrganization(ctx, id)
}

// ListChildOrganizations lists direct children of the actor's home
// organization, restricted to the actor's accessible scope. Only owners carry
// child organizations in scope, so admins and viewers see an empty list.
func (s *Service) ListChildOrganizations(ctx context.Context, actor *authz.Identity) ([]Organization, error) {
	if actor == nil {
		return nil, authz.DeniedError(authz.DenyUnauthenticated)
	}
	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	children, err := s.store.ListChildOrganizations(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	out := make([]Organization, 0, len(children))
	for _, org := range children {
		if scope.Contains(org.ID) {
			out = append(out, org)
		}
	}
	return out, nil
}

// CreateUser persists a user with a precomputed password hash. Called by the
// registration flow and by gated user management.
func (s *Service) CreateUser(ctx context.Context, orgID, email, name, passwordHash string, role authz.Role) (User, error) {
	orgID = strings.TrimSpace(orgID)
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if orgID == "" {
		return User{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if passwordHash == "" {
		return User{}, fmt.Errorf("%w: password hash is required", ErrInvalidInput)
	}
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	user := User{
		ID:             ids.New(),
		Email:          email,
		Name:           name,
		PasswordHash:   passwordHash,
		Role:           role,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// CreateMember adds a user to the actor's own organization. Requires
// users.manage, and the actor cannot grant a role above what they manage.
func (s *Service) CreateMember(ctx context.Context, actor *authz.Identity, email, name, passwordHash string, role authz.Role) (User, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermManageUsers, "")
	if err != nil {
		return User{}, err
	}
	if !decision.Allowed {
		return User{}, authz.DeniedError(decision.Reason)
	}
	if !actor.Role.CanManage(role) {
		return User{}, authz.DeniedError(authz.DenyInsufficientPermission)
	}
	user, err := s.CreateUser(ctx, actor.OrgID, email, name, passwordHash, role)
	if err != nil {
		return User{}, err
	}
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "user.create", "user", user.ID, "Added user: "+user.Email); err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.GetUser(ctx, id)
}

// FindUserByEmail loads a user by normalized email.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.store.FindUserByEmail(ctx, email)
}

// ListUsers returns users across the actor's accessible scope. Requires
// users.manage.
func (s *Service) ListUsers(ctx context.Context, actor *authz.Identity) ([]User, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermManageUsers, "")
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, authz.DeniedError(decision.Reason)
	}
	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.store.ListUsersByOrg(ctx, scope.IDs())
}

// ChangeUserRole updates a user's role. The gate enforces users.manage and
// the self-modification guard; the role order table keeps an admin from
// touching an owner or promoting anyone past their own level.
func (s *Service) ChangeUserRole(ctx context.Context, actor *authz.Identity, targetUserID string, newRole authz.Role) (User, error) {
	decision, err := s.gate.AuthorizeRoleChange(ctx, actor, targetUserID)
	if err != nil {
		return User{}, err
	}
	if !decision.Allowed {
		return User{}, authz.DeniedError(decision.Reason)
	}

	target, err := s.store.GetUser(ctx, targetUserID)
	if err != nil {
		return User{}, err
	}
	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return User{}, err
	}
	if !scope.Contains(target.OrganizationID) {
		return User{}, authz.DeniedError(authz.DenyOutOfScope)
	}
	if !actor.Role.CanManage(target.Role) || !actor.Role.CanManage(newRole) {
		return User{}, authz.DeniedError(authz.DenyInsufficientPermission)
	}

	updated, err := s.store.UpdateUserRole(ctx, targetUserID, newRole)
	if err != nil {
		return User{}, err
	}
	detail := fmt.Sprintf("Changed role: %s -> %s", target.Role, newRole)
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "user.role.update", "user", targetUserID, detail); err != nil {
		return User{}, err
	}
	return updated, nil
}

// RemoveUser deletes a user under the same guards as a role change.
func (s *Service) RemoveUser(ctx context.Context, actor *authz.Identity, targetUserID string) error {
	decision, err := s.gate.AuthorizeRoleChange(ctx, actor, targetUserID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return authz.DeniedError(decision.Reason)
	}

	target, err := s.store.GetUser(ctx, targetUserID)
	if err != nil {
		return err
	}
	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return err
	}
	if !scope.Contains(target.OrganizationID) {
		return authz.DeniedError(authz.DenyOutOfScope)
	}
	if !actor.Role.CanManage(target.Role) {
		return authz.DeniedError(authz.DenyInsufficientPermission)
	}

	if err := s.store.DeleteUser(ctx, targetUserID); err != nil {
		return err
	}
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "user.delete", "user", targetUserID, "Removed user: "+target.Email); err != nil {
		return err
	}
	return nil
}
