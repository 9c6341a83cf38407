package access

import (
	"context"
	"time"

	"teamdir.org/internal/directory"
)

// Store describes persistence operations required by the access subsystem.
type Store interface {
	FindCredentialByEmail(ctx context.Context, email string) (Credential, error)
	FindPerson(ctx context.Context, id int64) (directory.Person, error)
	SetPasswordHash(ctx context.Context, personID int64, hash string) error

	// EffectiveGrants returns grants valid at the given instant
	// (expires_at is null or strictly after it).
	EffectiveGrants(ctx context.Context, personID int64, now time.Time) ([]Grant, error)
	// GrantsForPerson returns every grant including expired ones, for
	// admin display.
	GrantsForPerson(ctx context.Context, personID int64) ([]Grant, error)
	CreateGrant(ctx context.Context, grant Grant) (Grant, error)
	DeleteGrant(ctx context.Context, id int64) error

	EnsurePermissions(ctx context.Context, perms []Permission) error
	ListPermissions(ctx context.Context) ([]Permission, error)
}
