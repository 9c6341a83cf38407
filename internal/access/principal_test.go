package access

import (
	"testing"

	"teamdir.org/internal/directory"
)

func TestPrincipalPermissions(t *testing.T) {
	person := &directory.Person{ID: 1, Email: "admin@example.org"}
	grants := []Grant{
		{PersonID: 1, PermissionKey: "photos"},
		{PersonID: 1, PermissionKey: "photos"},
	}

	principal := NewPrincipal(person, grants)

	if !principal.HasPermission("photos") {
		t.Fatal("expected photos permission")
	}
	if principal.HasPermission("events") {
		t.Fatal("unexpected events permission")
	}
	if len(principal.Permissions) != 1 {
		t.Fatalf("duplicate grants must collapse, got %d entries", len(principal.Permissions))
	}
}

func TestHasAnyPermission(t *testing.T) {
	principal := NewPrincipal(&directory.Person{ID: 2}, []Grant{{PermissionKey: "photos"}})

	if !principal.HasAnyPermission("events", "photos") {
		t.Fatal("expected match on photos")
	}
	if principal.HasAnyPermission("events", "grants") {
		t.Fatal("unexpected match")
	}
	if principal.HasAnyPermission() {
		t.Fatal("empty required set must establish nothing")
	}
}

func TestZeroPrincipalFailsClosed(t *testing.T) {
	var principal Principal

	if principal.Authenticated() {
		t.Fatal("zero principal must be unauthenticated")
	}
	if principal.HasPermission("events") {
		t.Fatal("zero principal must deny everything")
	}
	if principal.Email() != "" {
		t.Fatal("zero principal has no actor email")
	}
}
