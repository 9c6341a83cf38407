package access

import "time"

// Permission is a capability identifier from the static catalog. The key is
// the primary key.
type Permission struct {
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Grant links a person to a permission. A grant is effective only while
// ExpiresAt is nil or strictly in the future.
type Grant struct {
	ID            int64      `json:"id"`
	PersonID      int64      `json:"person_id"`
	PermissionKey string     `json:"permission_id"`
	GrantedBy     *int64     `json:"granted_by,omitempty"`
	GrantedAt     time.Time  `json:"granted_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Effective reports whether the grant is valid at the given instant. The
// expiry boundary is strict: at ExpiresAt the grant is already denied.
func (g Grant) Effective(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// Credential is the login-relevant slice of a person row. Kept separate from
// the directory type so password hashes never travel with profile data.
type Credential struct {
	PersonID     int64
	Email        string
	PasswordHash string
	CanLogin     bool
	IsActive     bool
}
