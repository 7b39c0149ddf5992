package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck.dev/internal/authz"
	"taskdeck.dev/internal/directory"
)

const defaultTokenTTL = 15 * time.Minute

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidInput       = errors.New("auth: invalid input")
)

// Service handles registration and login. Token verification itself is
// stateless; this service only needs the directory.
type Service struct {
	dir      *directory.Service
	tokenTTL time.Duration
}

// NewService constructs the auth service.
func NewService(dir *directory.Service) (*Service, error) {
	if dir == nil {
		return nil, errors.New("auth: directory service is required")
	}
	return &Service{dir: dir, tokenTTL: defaultTokenTTL}, nil
}

// Session is the result of a successful registration or login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      directory.User `json:"user"`
}

// Register creates a fresh root organization with the caller as its owner
// and issues a token.
func (s *Service) Register(ctx context.Context, email, password, name, organizationName string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	organizationName = strings.TrimSpace(organizationName)
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if name == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if organizationName == "" {
		organizationName = name + "'s Organization"
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	org, err := s.dir.CreateRootOrganization(ctx, organizationName)
	if err != nil {
		return Session{}, err
	}
	user, err := s.dir.CreateUser(ctx, org.ID, email, name, hash, authz.RoleOwner)
	if err != nil {
		return Session{}, err
	}
	return s.session(&user)
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.dir.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(&user)
}

func (s *Service) session(user *directory.User) (Session, error) {
	token, err := GenerateToken(user.Identity(), s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(s.tokenTTL),
		User:      *user,
	}, nil
}
