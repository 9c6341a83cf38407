package directory

import (
	"context"
	"testing"
	"time"
)

type stubStore struct {
	Store

	createEventFn  func(context.Context, Event) (Event, error)
	updateEventFn  func(context.Context, int64, EventPatch) (Event, error)
	deleteEventFn  func(context.Context, int64) error
	createPersonFn func(context.Context, Person) (Person, error)
	updatePersonFn func(context.Context, int64, PersonPatch) (Person, error)
	createPhotoFn  func(context.Context, Photo) (Photo, error)
}

func (s *stubStore) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	if s.createEventFn != nil {
		return s.createEventFn(ctx, ev)
	}
	return ev, nil
}

func (s *stubStore) UpdateEvent(ctx context.Context, id int64, patch EventPatch) (Event, error) {
	if s.updateEventFn != nil {
		return s.updateEventFn(ctx, id, patch)
	}
	return Event{ID: id}, nil
}

func (s *stubStore) DeleteEvent(ctx context.Context, id int64) error {
	if s.deleteEventFn != nil {
		return s.deleteEventFn(ctx, id)
	}
	return nil
}

func (s *stubStore) CreatePerson(ctx context.Context, p Person) (Person, error) {
	if s.createPersonFn != nil {
		return s.createPersonFn(ctx, p)
	}
	return p, nil
}

func (s *stubStore) UpdatePerson(ctx context.Context, id int64, patch PersonPatch) (Person, error) {
	if s.updatePersonFn != nil {
		return s.updatePersonFn(ctx, id, patch)
	}
	return Person{ID: id}, nil
}

func (s *stubStore) CreatePhoto(ctx context.Context, p Photo) (Photo, error) {
	if s.createPhotoFn != nil {
		return s.createPhotoFn(ctx, p)
	}
	return p, nil
}

func newService(t *testing.T, store Store) *Service {
	t.Helper()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateEventRequiresNameAndDatetime(t *testing.T) {
	svc := newService(t, &stubStore{})

	if _, err := svc.CreateEvent(context.Background(), Event{Name: "  ", Datetime: time.Now()}); err == nil {
		t.Fatal("expected error for blank name")
	}
	if _, err := svc.CreateEvent(context.Background(), Event{Name: "Hack Night"}); err == nil {
		t.Fatal("expected error for zero datetime")
	}
}

func TestCreateEventTrimsFields(t *testing.T) {
	var captured Event
	store := &stubStore{
		createEventFn: func(_ context.Context, ev Event) (Event, error) {
			captured = ev
			return ev, nil
		},
	}
	svc := newService(t, store)

	_, err := svc.CreateEvent(context.Background(), Event{
		Name:     "  Demo Day  ",
		OneLiner: " pitches and pizza ",
		Datetime: time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if captured.Name != "Demo Day" {
		t.Fatalf("expected trimmed name, got %q", captured.Name)
	}
	if captured.OneLiner != "pitches and pizza" {
		t.Fatalf("expected trimmed one_liner, got %q", captured.OneLiner)
	}
}

func TestUpdateEventRejectsBlankPatchName(t *testing.T) {
	svc := newService(t, &stubStore{})

	blank := "   "
	if _, err := svc.UpdateEvent(context.Background(), 7, EventPatch{Name: &blank}); err == nil {
		t.Fatal("expected error for blank patched name")
	}
}

func TestUpdateEventForwardsOnlyProvidedFields(t *testing.T) {
	var captured EventPatch
	store := &stubStore{
		updateEventFn: func(_ context.Context, _ int64, patch EventPatch) (Event, error) {
			captured = patch
			return Event{ID: 7}, nil
		},
	}
	svc := newService(t, store)

	name := "New Title"
	if _, err := svc.UpdateEvent(context.Background(), 7, EventPatch{Name: &name}); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if captured.Name == nil || *captured.Name != "New Title" {
		t.Fatalf("name not forwarded: %v", captured.Name)
	}
	if captured.Description != nil || captured.Location != nil || captured.Datetime != nil {
		t.Fatal("unset fields must stay nil")
	}
}

func TestCreatePersonNormalizesEmail(t *testing.T) {
	var captured Person
	store := &stubStore{
		createPersonFn: func(_ context.Context, p Person) (Person, error) {
			captured = p
			return p, nil
		},
	}
	svc := newService(t, store)

	_, err := svc.CreatePerson(context.Background(), Person{FullName: "Ada Example", Email: "  Ada@Example.COM "})
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	if captured.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", captured.Email)
	}

	if _, err := svc.CreatePerson(context.Background(), Person{FullName: "No Mail", Email: "not-an-email"}); err == nil {
		t.Fatal("expected error for invalid email")
	}
}

func TestCreatePhotoRequiresImageURL(t *testing.T) {
	svc := newService(t, &stubStore{})

	if _, err := svc.CreatePhoto(context.Background(), Photo{Caption: "sunset"}); err == nil {
		t.Fatal("expected error for missing image_url")
	}
}

func TestDeleteEventRejectsBadID(t *testing.T) {
	svc := newService(t, &stubStore{})

	if err := svc.DeleteEvent(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero id")
	}
}
