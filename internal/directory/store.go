package directory

import "context"

// ListPeopleFilter narrows people listings. The zero value lists active
// people only, in directory order.
type ListPeopleFilter struct {
	IncludeInactive bool
}

// Store describes persistence operations required by the directory services.
// Listing order is fixed by the implementation: events by datetime, photos by
// created_at descending, people by (team display_order, person display_order,
// id).
type Store interface {
	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	CreateEvent(ctx context.Context, ev Event) (Event, error)
	UpdateEvent(ctx context.Context, id int64, patch EventPatch) (Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	ListPhotos(ctx context.Context) ([]Photo, error)
	GetPhoto(ctx context.Context, id int64) (Photo, error)
	CreatePhoto(ctx context.Context, p Photo) (Photo, error)
	UpdatePhoto(ctx context.Context, id int64, patch PhotoPatch) (Photo, error)
	DeletePhoto(ctx context.Context, id int64) error

	ListPeople(ctx context.Context, filter ListPeopleFilter) ([]Person, error)
	GetPerson(ctx context.Context, id int64) (Person, error)
	CreatePerson(ctx context.Context, p Person) (Person, error)
	UpdatePerson(ctx context.Context, id int64, patch PersonPatch) (Person, error)
	DeletePerson(ctx context.Context, id int64) error

	ListTeams(ctx context.Context) ([]Team, error)
	ListRoles(ctx context.Context) ([]Role, error)
}
