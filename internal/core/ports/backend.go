package ports

import (
	"context"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

// LoginResult is the upstream response to a credential login.
type LoginResult struct {
	Token        string
	RefreshToken string
	ExpiresIn    int // seconds; 0 when the upstream omits it
	User         domain.UserIdentity
}

// RefreshResult is the upstream response to a token refresh.
type RefreshResult struct {
	Token     string
	ExpiresIn int
}

// AuthBackend is the upstream authentication contract.
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// Refresh exchanges a refresh token for a new access token. A 401 means
	// the refresh token itself is rejected; callers must not retry.
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	// Logout is best-effort; callers ignore its error.
	Logout(ctx context.Context, refreshToken string) error
}

// UpstreamRequest is a single bearer-authenticated call to the backend.
type UpstreamRequest struct {
	Method string
	Key    string // relative endpoint key, e.g. "orders/pending"
	Body   []byte
	Token  string
	// OperationID deduplicates side-effecting calls across retries.
	OperationID string
}

// UpstreamResponse is a successful (2xx) backend response.
type UpstreamResponse struct {
	Status int
	Body   []byte
}

// ResourceBackend executes bearer-authenticated resource calls. Failures
// are reported as *domain.RequestError so they can be classified.
type ResourceBackend interface {
	Do(ctx context.Context, req UpstreamRequest) (*UpstreamResponse, error)
}

// Prober answers "is the backend reachable right now".
type Prober interface {
	Probe(ctx context.Context) error
}
