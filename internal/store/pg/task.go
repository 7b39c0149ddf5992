package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"taskdeck.dev/internal/task"
)

// TaskStore adapts the shared connection pool to task.Store.
type TaskStore struct {
	db *sql.DB
}

var _ task.Store = (*TaskStore)(nil)

// Tasks returns the task.Store view of the pool.
func (s *Store) Tasks() *TaskStore { return &TaskStore{db: s.db} }

const taskColumns = `id, title, description, status, priority, category, task_order, owner_id, organization_id, due_date, created_at, updated_at`

func (s *TaskStore) Create(ctx context.Context, t *task.Task) error {
	_, err := s.db.ExecContext(ctx, `
		insert into tasks (`+taskColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.Category),
		t.Order, t.OwnerID, t.OrganizationID, t.DueDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return task.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (task.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `
		select `+taskColumns+`
		from tasks
		where id = $1
	`, id))
}

func (s *TaskStore) List(ctx context.Context, orgIDs []string, filter task.Filter) ([]task.Task, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	query := `
		select ` + taskColumns + `
		from tasks
		where organization_id = any($1::text[])`
	args := []any{pgStringArray(orgIDs)}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` and status = $` + strconv.Itoa(len(args))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += ` and category = $` + strconv.Itoa(len(args))
	}
	query += ` order by task_order, created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []task.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TaskStore) Save(ctx context.Context, t *task.Task) error {
	res, err := s.db.ExecContext(ctx, `
		update tasks
		set title = $2, description = $3, status = $4, priority = $5, category = $6,
			task_order = $7, due_date = $8, updated_at = now()
		where id = $1
	`, t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.Category),
		t.Order, t.DueDate)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return task.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row *sql.Row) (task.Task, error) {
	t, err := scanTaskRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, task.ErrNotFound
	}
	return t, err
}

func scanTaskRow(row rowScanner) (task.Task, error) {
	var (
		t                          task.Task
		status, priority, category string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &category,
		&t.Order, &t.OwnerID, &t.OrganizationID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return task.Task{}, err
	}
	t.Status = task.Status(status)
	t.Priority = task.Priority(priority)
	t.Category = task.Category(category)
	return t, nil
}
