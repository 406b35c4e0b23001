package domain

import "time"

// Role is the actor role carried in the token and in the user record.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleStaff          Role = "staff"
	RoleEventOrganizer Role = "event_organizer"
	RoleBarista        Role = "barista"
	RoleSupport        Role = "support"
	RoleDisplay        Role = "display"
	RoleGuest          Role = "guest"
)

// redirectTargets maps a role to its default post-login landing route.
var redirectTargets = map[Role]string{
	RoleAdmin:          "/admin",
	RoleStaff:          "/staff",
	RoleEventOrganizer: "/organizer",
	RoleBarista:        "/barista",
	RoleSupport:        "/support",
	RoleDisplay:        "/display",
	RoleGuest:          "/menu",
}

// RedirectTarget returns the default post-login route for the role.
// Unknown roles land on the public menu.
func (r Role) RedirectTarget() string {
	if target, ok := redirectTargets[r]; ok {
		return target
	}
	return "/menu"
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := redirectTargets[r]
	return ok
}

// UserIdentity models the authenticated actor behind a session.
type UserIdentity struct {
	Subject     string `json:"subject"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// CredentialSource distinguishes tokens issued by the backend from
// locally issued placeholders that must never be trusted for server calls.
type CredentialSource string

const (
	CredentialBackend          CredentialSource = "backend"
	CredentialLocalPlaceholder CredentialSource = "local_placeholder"
)

// Session is the authenticated state owned by the auth layer. It is created
// on login or restored from the state store at startup and destroyed on
// logout or unrecoverable auth failure.
type Session struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time        `json:"expires_at"`
	User         *UserIdentity    `json:"user,omitempty"`
	Source       CredentialSource `json:"source"`
}

// Expired reports whether the session's access token is past its expiry
// according to the local clock.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// RemainingLifetime returns how long the access token stays usable.
// Zero or negative means already expired.
func (s *Session) RemainingLifetime(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}
