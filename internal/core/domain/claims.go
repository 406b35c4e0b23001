package domain

import "time"

// TokenVerdict is the structural validation outcome for a bearer token.
// Only TokenExpired is recoverable via refresh: a malformed token stays
// malformed no matter how many times it is refreshed.
type TokenVerdict string

const (
	TokenValid          TokenVerdict = "valid"
	TokenInvalidFormat  TokenVerdict = "invalid_format"
	TokenInvalidHeader  TokenVerdict = "invalid_header"
	TokenInvalidSubject TokenVerdict = "invalid_subject"
	TokenExpired        TokenVerdict = "expired"
)

// Refreshable reports whether a refresh call can produce a usable token.
func (v TokenVerdict) Refreshable() bool {
	return v == TokenExpired
}

// TokenClaims are the decoded (NOT signature-verified) claims of a token.
// The client never verifies signatures; "valid" here means well-formed
// enough to send, the backend remains the trust authority.
type TokenClaims struct {
	Subject     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Role        Role
	Permissions []string
}

// TokenCheck is the result of a structural token validation.
type TokenCheck struct {
	Verdict TokenVerdict
	Reason  string
	Claims  *TokenClaims
}

// Valid reports whether the token is well-formed and not expired.
func (c TokenCheck) Valid() bool {
	return c.Verdict == TokenValid
}
