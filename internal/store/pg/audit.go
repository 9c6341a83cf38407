package pg

import (
	"context"
	"database/sql"
	"encoding/json"

	"teamdir.org/internal/audit"
)

func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into audit_log (actor_email, action_type, object_table, object_id, row_before, row_after, metadata, message)
		values (nullif($1, ''), $2, $3, $4, $5, $6, $7, nullif($8, ''))
		returning id, created_at
	`, e.ActorEmail, e.ActionType, e.ObjectTable, e.ObjectID,
		nullIfEmptyJSON(e.RowBefore), nullIfEmptyJSON(e.RowAfter), nullIfEmptyJSON(e.Metadata), e.Message).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return audit.Entry{}, err
	}
	return e, nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, coalesce(actor_email, ''), action_type, object_table, object_id,
		       row_before, row_after, metadata, coalesce(message, ''), created_at
		from audit_log
		order by id desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			objectID sql.NullInt64
			before   []byte
			after    []byte
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorEmail, &e.ActionType, &e.ObjectTable,
			&objectID, &before, &after, &metadata, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		if objectID.Valid {
			e.ObjectID = &objectID.Int64
		}
		e.RowBefore = json.RawMessage(before)
		e.RowAfter = json.RawMessage(after)
		e.Metadata = json.RawMessage(metadata)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func nullIfEmptyJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
