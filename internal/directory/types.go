package directory

import "time"

// Event is a public event shown on the organization site.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	OneLiner    string    `json:"one_liner,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Datetime    time.Time `json:"datetime"`
	Location    string    `json:"location,omitempty"`
	Image       string    `json:"image,omitempty"`
	Department  string    `json:"department,omitempty"`
	Register    string    `json:"register,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Photo is a gallery entry. The image URL is the sole reference to the
// stored asset.
type Photo struct {
	ID        int64     `json:"id"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Person is a team-member directory entry. Email doubles as the natural key
// for audit attribution.
type Person struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Linkedin     string    `json:"linkedin,omitempty"`
	Twitter      string    `json:"twitter,omitempty"`
	Instagram    string    `json:"instagram,omitempty"`
	RoleID       *int64    `json:"role_id,omitempty"`
	TeamID       *int64    `json:"team_id,omitempty"`
	CanLogin     bool      `json:"can_login"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role is immutable reference data shared by many people.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Team groups people; DisplayOrder controls section ordering on the
// directory page.
type Team struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
}

// EventPatch carries a partial update. Nil fields are left untouched.
type EventPatch struct {
	Name        *string
	OneLiner    *string
	Description *string
	Category    *string
	Datetime    *time.Time
	Location    *string
	Image       *string
	Department  *string
	Register    *string
}

// PhotoPatch carries a partial update. Nil fields are left untouched.
type PhotoPatch struct {
	ImageURL *string
	Caption  *string
}

// PersonPatch carries a partial update. Nil fields are left untouched.
// RoleID/TeamID distinguish "not provided" (outer nil) from "clear the
// reference" (inner nil).
type PersonPatch struct {
	FullName     *string
	Email        *string
	ProfileImage *string
	Linkedin     *string
	Twitter      *string
	Instagram    *string
	RoleID       **int64
	TeamID       **int64
	CanLogin     *bool
	IsActive     *bool
	DisplayOrder *int
}
