package access

import "teamdir.org/internal/directory"

// Principal represents an authenticated person with their resolved permission
// set. The zero value is the unauthenticated principal: every check fails
// closed.
type Principal struct {
	Person      *directory.Person
	Permissions map[string]struct{}
}

// NewPrincipal constructs a principal from the person's effective grants.
// Duplicate keys collapse; a permission is binary, not counted.
func NewPrincipal(person *directory.Person, grants []Grant) Principal {
	set := make(map[string]struct{}, len(grants))
	for _, g := range grants {
		set[g.PermissionKey] = struct{}{}
	}
	return Principal{Person: person, Permissions: set}
}

// Authenticated reports whether the principal resolves to a person.
func (p Principal) Authenticated() bool {
	return p.Person != nil
}

// HasPermission reports whether the permission key is in the effective set.
func (p Principal) HasPermission(key string) bool {
	_, ok := p.Permissions[key]
	return ok
}

// HasAnyPermission reports whether at least one of the keys is in the
// effective set. An empty argument list establishes nothing and returns
// false.
func (p Principal) HasAnyPermission(keys ...string) bool {
	for _, key := range keys {
		if p.HasPermission(key) {
			return true
		}
	}
	return false
}

// Email returns the actor email for audit attribution, empty when
// unauthenticated.
func (p Principal) Email() string {
	if p.Person == nil {
		return ""
	}
	return p.Person.Email
}
