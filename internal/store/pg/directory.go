package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"teamdir.org/internal/directory"
)

const eventColumns = `id, name, one_liner, description, category, datetime, location, image, department, register, created_at`

func scanEvent(row interface{ Scan(...any) error }) (directory.Event, error) {
	var ev directory.Event
	err := row.Scan(&ev.ID, &ev.Name, &ev.OneLiner, &ev.Description, &ev.Category,
		&ev.Datetime, &ev.Location, &ev.Image, &ev.Department, &ev.Register, &ev.CreatedAt)
	return ev, err
}

func (s *Store) ListEvents(ctx context.Context) ([]directory.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+eventColumns+`
		from events
		order by datetime
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []directory.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (directory.Event, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, `
		select `+eventColumns+`
		from events
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Event{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Event{}, err
	}
	return ev, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev directory.Event) (directory.Event, error) {
	created, err := scanEvent(s.db.QueryRowContext(ctx, `
		insert into events (name, one_liner, description, category, datetime, location, image, department, register)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning `+eventColumns+`
	`, ev.Name, ev.OneLiner, ev.Description, ev.Category, ev.Datetime,
		ev.Location, ev.Image, ev.Department, ev.Register))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.Event{}, directory.ErrConflict
		}
		return directory.Event{}, err
	}
	return created, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id int64, patch directory.EventPatch) (directory.Event, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.OneLiner != nil {
		set("one_liner", *patch.OneLiner)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Datetime != nil {
		set("datetime", *patch.Datetime)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Image != nil {
		set("image", *patch.Image)
	}
	if patch.Department != nil {
		set("department", *patch.Department)
	}
	if patch.Register != nil {
		set("register", *patch.Register)
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update events set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return directory.Event{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return directory.Event{}, err
		}
		if aff == 0 {
			return directory.Event{}, directory.ErrNotFound
		}
	}
	return s.GetEvent(ctx, id)
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "events", id)
}

const photoColumns = `id, image_url, caption, created_at`

func scanPhoto(row interface{ Scan(...any) error }) (directory.Photo, error) {
	var p directory.Photo
	err := row.Scan(&p.ID, &p.ImageURL, &p.Caption, &p.CreatedAt)
	return p, err
}

func (s *Store) ListPhotos(ctx context.Context) ([]directory.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+photoColumns+`
		from photos
		order by created_at desc, id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []directory.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

func (s *Store) GetPhoto(ctx context.Context, id int64) (directory.Photo, error) {
	p, err := scanPhoto(s.db.QueryRowContext(ctx, `
		select `+photoColumns+`
		from photos
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Photo{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Photo{}, err
	}
	return p, nil
}

func (s *Store) CreatePhoto(ctx context.Context, p directory.Photo) (directory.Photo, error) {
	created, err := scanPhoto(s.db.QueryRowContext(ctx, `
		insert into photos (image_url, caption)
		values ($1, $2)
		returning `+photoColumns+`
	`, p.ImageURL, p.Caption))
	if err != nil {
		return directory.Photo{}, err
	}
	return created, nil
}

func (s *Store) UpdatePhoto(ctx context.Context, id int64, patch directory.PhotoPatch) (directory.Photo, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if patch.ImageURL != nil {
		sets = append(sets, fmt.Sprintf("image_url = $%d", idx))
		args = append(args, *patch.ImageURL)
		idx++
	}
	if patch.Caption != nil {
		sets = append(sets, fmt.Sprintf("caption = $%d", idx))
		args = append(args, *patch.Caption)
		idx++
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update photos set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return directory.Photo{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return directory.Photo{}, err
		}
		if aff == 0 {
			return directory.Photo{}, directory.ErrNotFound
		}
	}
	return s.GetPhoto(ctx, id)
}

func (s *Store) DeletePhoto(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "photos", id)
}

const personColumns = `id, full_name, email, profile_image, linkedin, twitter, instagram, role_id, team_id, can_login, is_active, display_order, created_at`

func scanPerson(row interface{ Scan(...any) error }) (directory.Person, error) {
	var (
		p      directory.Person
		roleID sql.NullInt64
		teamID sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.ProfileImage, &p.Linkedin,
		&p.Twitter, &p.Instagram, &roleID, &teamID, &p.CanLogin, &p.IsActive,
		&p.DisplayOrder, &p.CreatedAt)
	if err != nil {
		return directory.Person{}, err
	}
	if roleID.Valid {
		p.RoleID = &roleID.Int64
	}
	if teamID.Valid {
		p.TeamID = &teamID.Int64
	}
	return p, nil
}

func (s *Store) ListPeople(ctx context.Context, filter directory.ListPeopleFilter) ([]directory.Person, error) {
	query := `
		select p.` + strings.ReplaceAll(personColumns, ", ", ", p.") + `
		from people p
		left join teams t on t.id = p.team_id`
	if !filter.IncludeInactive {
		query += `
		where p.is_active`
	}
	// Directory order: team section first, then person order within it.
	query += `
		order by coalesce(t.display_order, 2147483647), p.display_order, p.id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []directory.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return people, nil
}

func (s *Store) GetPerson(ctx context.Context, id int64) (directory.Person, error) {
	p, err := scanPerson(s.db.QueryRowContext(ctx, `
		select `+personColumns+`
		from people
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Person{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Person{}, err
	}
	return p, nil
}

func (s *Store) CreatePerson(ctx context.Context, p directory.Person) (directory.Person, error) {
	created, err := scanPerson(s.db.QueryRowContext(ctx, `
		insert into people (full_name, email, profile_image, linkedin, twitter, instagram, role_id, team_id, can_login, is_active, display_order)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+personColumns+`
	`, p.FullName, p.Email, p.ProfileImage, p.Linkedin, p.Twitter, p.Instagram,
		p.RoleID, p.TeamID, p.CanLogin, p.IsActive, p.DisplayOrder))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return directory.Person{}, directory.ErrConflict
			case pgErrForeignKeyViolation:
				return directory.Person{}, fmt.Errorf("%w: role or team does not exist", directory.ErrInvalidInput)
			}
		}
		return directory.Person{}, err
	}
	return created, nil
}

func (s *Store) UpdatePerson(ctx context.Context, id int64, patch directory.PersonPatch) (directory.Person, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if patch.FullName != nil {
		set("full_name", *patch.FullName)
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.ProfileImage != nil {
		set("profile_image", *patch.ProfileImage)
	}
	if patch.Linkedin != nil {
		set("linkedin", *patch.Linkedin)
	}
	if patch.Twitter != nil {
		set("twitter", *patch.Twitter)
	}
	if patch.Instagram != nil {
		set("instagram", *patch.Instagram)
	}
	if patch.RoleID != nil {
		// Inner nil clears the reference.
		set("role_id", *patch.RoleID)
	}
	if patch.TeamID != nil {
		set("team_id", *patch.TeamID)
	}
	if patch.CanLogin != nil {
		set("can_login", *patch.CanLogin)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.DisplayOrder != nil {
		set("display_order", *patch.DisplayOrder)
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update people set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok {
				switch pgErr.Code {
				case pgErrUniqueViolation:
					return directory.Person{}, directory.ErrConflict
				case pgErrForeignKeyViolation:
					return directory.Person{}, fmt.Errorf("%w: role or team does not exist", directory.ErrInvalidInput)
				}
			}
			return directory.Person{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return directory.Person{}, err
		}
		if aff == 0 {
			return directory.Person{}, directory.ErrNotFound
		}
	}
	return s.GetPerson(ctx, id)
}

func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "people", id)
}

func (s *Store) ListTeams(ctx context.Context) ([]directory.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, display_order
		from teams
		order by display_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []directory.Team
	for rows.Next() {
		var t directory.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.DisplayOrder); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]directory.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name
		from roles
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []directory.Role
	for rows.Next() {
		var r directory.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// deleteByID removes one row; a second delete of the same id reports
// directory.ErrNotFound.
func (s *Store) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where id = $1`, table), id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return directory.ErrConflict
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return directory.ErrNotFound
	}
	return nil
}
