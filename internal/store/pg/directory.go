package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"taskdeck.dev/internal/authz"
	"taskdeck.dev/internal/directory"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var _ directory.Store = (*Store)(nil)

func (s *Store) CreateOrganization(ctx context.Context, org *directory.Organization) error {
	_, err := s.db.ExecContext(ctx, `
		insert into organizations (id, name, parent_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5)
	`, org.ID, org.Name, org.ParentID, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return directory.ErrAlreadyExists
			case pgErrForeignKeyViolation:
				return directory.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (directory.Organization, error) {
	var org directory.Organization
	err := s.db.QueryRowContext(ctx, `
		select id, name, parent_id, created_at, updated_at
		from organizations
		where id = $1
	`, id).Scan(&org.ID, &org.Name, &org.ParentID, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Organization{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Organization{}, err
	}
	return org, nil
}

func (s *Store) ListChildOrganizations(ctx context.Context, parentID string) ([]directory.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, parent_id, created_at, updated_at
		from organizations
		where parent_id = $1
		order by name
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []directory.Organization
	for rows.Next() {
		var org directory.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.ParentID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u *directory.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, email, name, password_hash, role, organization_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.OrganizationID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return directory.ErrAlreadyExists
			case pgErrForeignKeyViolation:
				return directory.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (directory.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, role, organization_id, created_at, updated_at
		from users
		where id = $1
	`, id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (directory.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, role, organization_id, created_at, updated_at
		from users
		where email = $1
	`, email))
}

func (s *Store) ListUsersByOrg(ctx context.Context, orgIDs []string) ([]directory.User, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, email, name, password_hash, role, organization_id, created_at, updated_at
		from users
		where organization_id = any($1::text[])
		order by email
	`, pgStringArray(orgIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []directory.User
	for rows.Next() {
		var (
			u    directory.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = authz.Role(role)
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) UpdateUserRole(ctx context.Context, userID string, role authz.Role) (directory.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		update users
		set role = $2, updated_at = now()
		where id = $1
		returning id, email, name, password_hash, role, organization_id, created_at, updated_at
	`, userID, string(role)))
}

func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func (s *Store) scanUser(row *sql.Row) (directory.User, error) {
	var (
		u    directory.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.User{}, err
	}
	u.Role = authz.Role(role)
	return u, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
