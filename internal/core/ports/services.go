package ports

import (
	"context"
	"time"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

// AuthSession orchestrates login, logout and token freshness. It owns the
// Session record exclusively; everything else reads through it.
type AuthSession interface {
	// Login authenticates against the upstream and returns the session plus
	// the role-derived redirect target.
	Login(ctx context.Context, username, password string) (*domain.Session, string, error)
	// Logout always succeeds locally; upstream notification is best-effort.
	Logout(ctx context.Context) error
	// IsAuthenticated reports whether a structurally valid, unexpired token
	// exists. It never makes a network call.
	IsAuthenticated(ctx context.Context) bool
	// EnsureFresh refreshes the token when its remaining lifetime is below
	// threshold and reports whether a usable token exists afterwards.
	EnsureFresh(ctx context.Context) bool
	// Refresh performs exactly one refresh attempt. On failure the durable
	// auth-error counter is incremented and the error returned unretried.
	Refresh(ctx context.Context) error
	// Current returns the authoritative session state, or nil.
	Current(ctx context.Context) *domain.Session
	// BreakerTripped reports whether cumulative auth failures crossed the
	// 3-strikes threshold.
	BreakerTripped(ctx context.Context) bool
	// ResetFailures clears the auth-error counter (explicit reset or
	// successful full recovery).
	ResetFailures(ctx context.Context) error
	// OfflineSuggested reports whether a failure warrants offering the user
	// an explicit opt-in to offline mode.
	OfflineSuggested(ctx context.Context, err error) bool
}

// Endpoint describes a proxied backend resource and which fallback dataset
// substitutes for it in degraded mode (empty = no local substitute).
type Endpoint struct {
	Key      string
	Method   string
	Fallback domain.FallbackCategory
}

// DataSource tells the caller where a gateway result came from.
type DataSource string

const (
	SourceBackend  DataSource = "backend"
	SourceFallback DataSource = "fallback"
)

// GatewayResult is the outcome of a gateway request.
type GatewayResult struct {
	Status int
	Body   []byte
	Source DataSource
}

// Gateway is the single chokepoint for backend calls: fallback
// short-circuiting, token freshness, timeout enforcement and
// classification-driven recovery.
type Gateway interface {
	Request(ctx context.Context, ep Endpoint, body []byte, operationID string) (*GatewayResult, error)
}

// FallbackAccess exposes the degraded-mode dataset.
type FallbackAccess interface {
	Active(ctx context.Context) bool
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
	Read(ctx context.Context, category domain.FallbackCategory) ([]byte, error)
	Write(ctx context.Context, category domain.FallbackCategory, data []byte) error
	// CompleteOrder applies an offline order completion to the local copy.
	CompleteOrder(ctx context.Context, orderID string) error
}

// Connectivity exposes the debounced connectivity status feed.
type Connectivity interface {
	State() domain.ConnectivityState
	CheckNow(ctx context.Context) domain.ConnectivityState
	Subscribe(fn func(domain.ConnectivityState))
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
