package directory

import (
	"errors"
	"time"

	"taskdeck.dev/internal/authz"
)

var (
	ErrNotFound      = errors.New("directory: not found")
	ErrAlreadyExists = errors.New("directory: already exists")
	ErrInvalidInput  = errors.New("directory: invalid input")
)

// Organization is a tenant node in a parent-linked tree. A nil ParentID
// marks a root. The parent relation must stay acyclic.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a member of exactly one organization.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	PasswordHash   string     `json:"-"`
	Role           authz.Role `json:"role"`
	OrganizationID string     `json:"organization_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Identity derives the request principal for a user. The result carries no
// credential material.
func (u *User) Identity() *authz.Identity {
	return &authz.Identity{UserID: u.ID, Role: u.Role, OrgID: u.OrganizationID}
}
