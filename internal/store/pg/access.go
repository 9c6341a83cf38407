package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"teamdir.org/internal/access"
	"teamdir.org/internal/directory"
)

func (s *Store) FindCredentialByEmail(ctx context.Context, email string) (access.Credential, error) {
	var (
		cred access.Credential
		hash sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, can_login, is_active
		from people
		where lower(email) = lower($1)
	`, email).Scan(&cred.PersonID, &cred.Email, &hash, &cred.CanLogin, &cred.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Credential{}, access.ErrNotFound
	}
	if err != nil {
		return access.Credential{}, err
	}
	if hash.Valid {
		cred.PasswordHash = hash.String
	}
	return cred, nil
}

func (s *Store) FindPerson(ctx context.Context, id int64) (directory.Person, error) {
	return s.GetPerson(ctx, id)
}

func (s *Store) SetPasswordHash(ctx context.Context, personID int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `
		update people set password_hash = $2 where id = $1
	`, personID, hash)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return access.ErrNotFound
	}
	return nil
}

const grantColumns = `id, person_id, permission_id, granted_by, granted_at, expires_at, notes`

func scanGrant(row interface{ Scan(...any) error }) (access.Grant, error) {
	var (
		g         access.Grant
		grantedBy sql.NullInt64
		expiresAt sql.NullTime
		notes     sql.NullString
	)
	err := row.Scan(&g.ID, &g.PersonID, &g.PermissionKey, &grantedBy, &g.GrantedAt, &expiresAt, &notes)
	if err != nil {
		return access.Grant{}, err
	}
	if grantedBy.Valid {
		g.GrantedBy = &grantedBy.Int64
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		g.ExpiresAt = &t
	}
	if notes.Valid {
		g.Notes = notes.String
	}
	return g, nil
}

func (s *Store) EffectiveGrants(ctx context.Context, personID int64, now time.Time) ([]access.Grant, error) {
	// Strict boundary: a grant expiring exactly at `now` is already gone.
	rows, err := s.db.QueryContext(ctx, `
		select `+grantColumns+`
		from people_permissions
		where person_id = $1
		  and (expires_at is null or expires_at > $2)
	`, personID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (s *Store) GrantsForPerson(ctx context.Context, personID int64) ([]access.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+grantColumns+`
		from people_permissions
		where person_id = $1
		order by granted_at desc, id desc
	`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func collectGrants(rows *sql.Rows) ([]access.Grant, error) {
	var grants []access.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

func (s *Store) CreateGrant(ctx context.Context, grant access.Grant) (access.Grant, error) {
	created, err := scanGrant(s.db.QueryRowContext(ctx, `
		insert into people_permissions (person_id, permission_id, granted_by, granted_at, expires_at, notes)
		values ($1, $2, $3, $4, $5, nullif($6, ''))
		returning `+grantColumns+`
	`, grant.PersonID, grant.PermissionKey, grant.GrantedBy, grant.GrantedAt, grant.ExpiresAt, grant.Notes))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return access.Grant{}, access.ErrConflict
			case pgErrForeignKeyViolation:
				return access.Grant{}, fmt.Errorf("%w: person or permission does not exist", access.ErrNotFound)
			}
		}
		return access.Grant{}, err
	}
	return created, nil
}

func (s *Store) DeleteGrant(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from people_permissions where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return access.ErrNotFound
	}
	return nil
}

func (s *Store) EnsurePermissions(ctx context.Context, perms []access.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range perms {
		if _, err := tx.ExecContext(ctx, `
			insert into permissions (key, description)
			values ($1, $2)
			on conflict (key) do nothing
		`, p.Key, p.Description); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListPermissions(ctx context.Context) ([]access.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select key, coalesce(description, ''), created_at
		from permissions
		order by key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []access.Permission
	for rows.Next() {
		var p access.Permission
		if err := rows.Scan(&p.Key, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}
