package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskdeck.dev/internal/authz"
)

// InMemory implements Store with in-process concurrency safety. Postgres is
// the durable implementation.
type InMemory struct {
	mu    sync.RWMutex
	orgs  map[string]Organization
	users map[string]User
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty directory store.
func NewInMemory() *InMemory {
	return &InMemory{
		orgs:  make(map[string]Organization),
		users: make(map[string]User),
	}
}

func (s *InMemory) CreateOrganization(ctx context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return ErrAlreadyExists
	}
	s.orgs[org.ID] = *org
	return nil
}

func (s *InMemory) GetOrganization(ctx context.Context, id string) (Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (s *InMemory) ListChildOrganizations(ctx context.Context, parentID string) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Organization
	for _, org := range s.orgs {
		if org.ParentID != nil && *org.ParentID == parentID {
			out = append(out, org)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrAlreadyExists
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *InMemory) GetUser(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemory) FindUserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemory) ListUsersByOrg(ctx context.Context, orgIDs []string) ([]User, error) {
	allowed := make(map[string]struct{}, len(orgIDs))
	for _, id := range orgIDs {
		allowed[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []User
	for _, u := range s.users {
		if _, ok := allowed[u.OrganizationID]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *InMemory) UpdateUserRole(ctx context.Context, userID string, role authz.Role) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return u, nil
}

func (s *InMemory) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	delete(s.users, userID)
	return nil
}
