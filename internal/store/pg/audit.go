package pg

import (
	"context"
	"database/sql"

	"taskdeck.dev/internal/audit"
)

// AuditStore adapts the shared connection pool to audit.Store. Rows are only
// ever inserted; there is no update or delete path.
type AuditStore struct {
	db *sql.DB
}

var _ audit.Store = (*AuditStore)(nil)

// Audit returns the audit.Store view of the pool.
func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.db} }

func (s *AuditStore) Append(ctx context.Context, rec *audit.Record) error {
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log (id, actor_user_id, actor_org_id, action, resource_kind, resource_id, detail, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.ActorUserID, rec.ActorOrgID, rec.Action, rec.ResourceKind, rec.ResourceID, rec.Detail, rec.OccurredAt)
	return err
}

func (s *AuditStore) Query(ctx context.Context, orgIDs []string, limit int) ([]audit.Record, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, actor_user_id, actor_org_id, action, resource_kind, resource_id, detail, occurred_at
		from audit_log
		where actor_org_id = any($1::text[])
		order by occurred_at desc, id desc
		limit $2
	`, pgStringArray(orgIDs), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var rec audit.Record
		if err := rows.Scan(&rec.ID, &rec.ActorUserID, &rec.ActorOrgID, &rec.Action,
			&rec.ResourceKind, &rec.ResourceID, &rec.Detail, &rec.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
