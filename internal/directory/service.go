package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service validates input and delegates to the backing store. All four CRUD
// operations per entity are independent, single round-trip calls; there is no
// optimistic locking, the last writer wins.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("directory store is required")
	}
	return &Service{store: store}, nil
}

// Events --------------------------------------------------------------------

func (s *Service) ListEvents(ctx context.Context) ([]Event, error) {
	return s.store.ListEvents(ctx)
}

func (s *Service) GetEvent(ctx context.Context, id int64) (Event, error) {
	if id <= 0 {
		return Event{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return s.store.GetEvent(ctx, id)
}

func (s *Service) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Name == "" {
		return Event{}, fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}
	if ev.Datetime.IsZero() {
		return Event{}, fmt.Errorf("%w: event datetime is required", ErrInvalidInput)
	}
	ev.OneLiner = strings.TrimSpace(ev.OneLiner)
	ev.Location = strings.TrimSpace(ev.Location)
	ev.Category = strings.TrimSpace(ev.Category)
	return s.store.CreateEvent(ctx, ev)
}

func (s *Service) UpdateEvent(ctx context.Context, id int64, patch EventPatch) (Event, error) {
	if id <= 0 {
		return Event{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Event{}, fmt.Errorf("%w: event name is required", ErrInvalidInput)
		}
		patch.Name = &name
	}
	if patch.Datetime != nil && patch.Datetime.IsZero() {
		return Event{}, fmt.Errorf("%w: event datetime is required", ErrInvalidInput)
	}
	return s.store.UpdateEvent(ctx, id, patch)
}

func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return s.store.DeleteEvent(ctx, id)
}

// Photos --------------------------------------------------------------------

func (s *Service) ListPhotos(ctx context.Context) ([]Photo, error) {
	return s.store.ListPhotos(ctx)
}

func (s *Service) GetPhoto(ctx context.Context, id int64) (Photo, error) {
	if id <= 0 {
		return Photo{}, fmt.Errorf("%w: photo id is required", ErrInvalidInput)
	}
	return s.store.GetPhoto(ctx, id)
}

func (s *Service) CreatePhoto(ctx context.Context, p Photo) (Photo, error) {
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	if p.ImageURL == "" {
		return Photo{}, fmt.Errorf("%w: image_url is required", ErrInvalidInput)
	}
	p.Caption = strings.TrimSpace(p.Caption)
	return s.store.CreatePhoto(ctx, p)
}

func (s *Service) UpdatePhoto(ctx context.Context, id int64, patch PhotoPatch) (Photo, error) {
	if id <= 0 {
		return Photo{}, fmt.Errorf("%w: photo id is required", ErrInvalidInput)
	}
	if patch.ImageURL != nil {
		u := strings.TrimSpace(*patch.ImageURL)
		if u == "" {
			return Photo{}, fmt.Errorf("%w: image_url is required", ErrInvalidInput)
		}
		patch.ImageURL = &u
	}
	return s.store.UpdatePhoto(ctx, id, patch)
}

func (s *Service) DeletePhoto(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: photo id is required", ErrInvalidInput)
	}
	return s.store.DeletePhoto(ctx, id)
}

// People --------------------------------------------------------------------

func (s *Service) ListPeople(ctx context.Context, filter ListPeopleFilter) ([]Person, error) {
	return s.store.ListPeople(ctx, filter)
}

func (s *Service) GetPerson(ctx context.Context, id int64) (Person, error) {
	if id <= 0 {
		return Person{}, fmt.Errorf("%w: person id is required", ErrInvalidInput)
	}
	return s.store.GetPerson(ctx, id)
}

func (s *Service) CreatePerson(ctx context.Context, p Person) (Person, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return Person{}, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	email, err := normalizeEmail(p.Email)
	if err != nil {
		return Person{}, err
	}
	p.Email = email
	p.Linkedin = strings.TrimSpace(p.Linkedin)
	p.Twitter = strings.TrimSpace(p.Twitter)
	p.Instagram = strings.TrimSpace(p.Instagram)
	return s.store.CreatePerson(ctx, p)
}

func (s *Service) UpdatePerson(ctx context.Context, id int64, patch PersonPatch) (Person, error) {
	if id <= 0 {
		return Person{}, fmt.Errorf("%w: person id is required", ErrInvalidInput)
	}
	if patch.FullName != nil {
		name := strings.TrimSpace(*patch.FullName)
		if name == "" {
			return Person{}, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
		}
		patch.FullName = &name
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return Person{}, err
		}
		patch.Email = &email
	}
	return s.store.UpdatePerson(ctx, id, patch)
}

func (s *Service) DeletePerson(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: person id is required", ErrInvalidInput)
	}
	return s.store.DeletePerson(ctx, id)
}

// Reference data ------------------------------------------------------------

func (s *Service) ListTeams(ctx context.Context) ([]Team, error) {
	return s.store.ListTeams(ctx)
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
