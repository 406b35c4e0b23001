package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

func newTestSession(backend *stubAuthBackend) (*AuthSession, *memStore, *memBus) {
	store := newMemStore()
	bus := &memBus{}
	s := NewAuthSession(store, bus, backend, NewTokenValidator(), 3, testLogger())
	return s, store, bus
}

func TestLogin_CleanLogin(t *testing.T) {
	backend := &stubAuthBackend{
		loginResult: &ports.LoginResult{
			Token:     testToken("admin", time.Now().Add(time.Hour)),
			ExpiresIn: 3600,
			User:      domain.UserIdentity{Subject: "admin", DisplayName: "Admin", Role: domain.RoleBarista},
		},
	}
	s, _, _ := newTestSession(backend)
	defer s.scheduler.Stop()
	ctx := context.Background()

	sess, redirect, err := s.Login(ctx, "admin", "coffee123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if redirect != "/barista" {
		t.Fatalf("redirect = %s, want /barista", redirect)
	}
	if sess.Source != domain.CredentialBackend {
		t.Fatalf("source = %s, want backend", sess.Source)
	}
	if !s.IsAuthenticated(ctx) {
		t.Fatalf("expected authenticated session after login")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	backend := &stubAuthBackend{
		loginErr: &domain.RequestError{Status: 401, Message: "bad password"},
	}
	s, _, _ := newTestSession(backend)

	_, _, err := s.Login(context.Background(), "admin", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_NetworkFailure(t *testing.T) {
	backend := &stubAuthBackend{
		loginErr: &domain.RequestError{Transport: true, Message: "connection refused"},
	}
	s, _, _ := newTestSession(backend)

	_, _, err := s.Login(context.Background(), "admin", "coffee123")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestLogin_ResetsAuthErrorCounter(t *testing.T) {
	backend := &stubAuthBackend{
		loginResult: &ports.LoginResult{
			Token:     testToken("admin", time.Now().Add(time.Hour)),
			ExpiresIn: 3600,
			User:      domain.UserIdentity{Subject: "admin", Role: domain.RoleAdmin},
		},
	}
	s, store, _ := newTestSession(backend)
	defer s.scheduler.Stop()
	ctx := context.Background()

	_ = store.Set(ctx, keyAuthErrors, "2")
	if _, _, err := s.Login(ctx, "admin", "coffee123"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if n := s.AuthErrorCount(ctx); n != 0 {
		t.Fatalf("auth errors = %d after login, want 0", n)
	}
}

func TestLogout_AlwaysSucceedsLocally(t *testing.T) {
	backend := &stubAuthBackend{
		loginResult: &ports.LoginResult{
			Token:        testToken("u1", time.Now().Add(time.Hour)),
			RefreshToken: "refresh-1",
			ExpiresIn:    3600,
			User:         domain.UserIdentity{Subject: "u1", Role: domain.RoleStaff},
		},
		logoutErr: errors.New("backend down"),
	}
	s, _, bus := newTestSession(backend)
	ctx := context.Background()

	if _, _, err := s.Login(ctx, "u1", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout must always succeed locally, got %v", err)
	}
	if s.IsAuthenticated(ctx) {
		t.Fatalf("still authenticated after logout")
	}
	if _, logouts := backend.calls(); logouts != 1 {
		t.Fatalf("upstream logout calls = %d, want 1", logouts)
	}
	if bus.count(domain.SignalSessionTerminated) != 1 {
		t.Fatalf("expected one session-terminated signal")
	}
}

func TestRefresh_FailureIncrementsDurableCounter(t *testing.T) {
	backend := &stubAuthBackend{
		refreshErr: &domain.RequestError{Status: 401, Message: "refresh token rejected"},
	}
	s, store, _ := newTestSession(backend)
	ctx := context.Background()
	_ = store.Set(ctx, keyRefreshToken, "stale")

	for i := 0; i < 3; i++ {
		if err := s.Refresh(ctx); err == nil {
			t.Fatalf("refresh must fail")
		}
	}

	if !s.BreakerTripped(ctx) {
		t.Fatalf("breaker must trip after 3 failures")
	}

	// The counter survives a "reload": a fresh instance over the same store
	// still sees the tripped breaker.
	s2 := NewAuthSession(store, &memBus{}, backend, NewTokenValidator(), 3, testLogger())
	if !s2.BreakerTripped(ctx) {
		t.Fatalf("breaker state must be durable across restarts")
	}
}

func TestRefresh_NoRetryOnFailure(t *testing.T) {
	backend := &stubAuthBackend{
		refreshErr: &domain.RequestError{Status: 401, Message: "nope"},
	}
	s, store, _ := newTestSession(backend)
	ctx := context.Background()
	_ = store.Set(ctx, keyRefreshToken, "stale")

	_ = s.Refresh(ctx)
	if refreshes, _ := backend.calls(); refreshes != 1 {
		t.Fatalf("refresh attempts = %d, want exactly 1", refreshes)
	}
}

func TestEnsureFresh_RefreshesNearExpiry(t *testing.T) {
	backend := &stubAuthBackend{
		refreshToken: testToken("u1", time.Now().Add(2*time.Hour)),
	}
	s, store, bus := newTestSession(backend)
	defer s.scheduler.Stop()
	ctx := context.Background()

	// Token expiring in 2 minutes: under the 5-minute threshold.
	_ = store.Set(ctx, keyAccessToken, testToken("u1", time.Now().Add(2*time.Minute)))
	_ = store.Set(ctx, keyRefreshToken, "refresh-1")
	_ = store.Set(ctx, keyExpiresAt, time.Now().Add(2*time.Minute).Format(time.RFC3339Nano))
	_ = store.Set(ctx, keySource, string(domain.CredentialBackend))

	if !s.EnsureFresh(ctx) {
		t.Fatalf("EnsureFresh must succeed")
	}
	if refreshes, _ := backend.calls(); refreshes != 1 {
		t.Fatalf("refresh attempts = %d, want 1", refreshes)
	}
	if bus.count(domain.SignalTokenRefreshed) != 1 {
		t.Fatalf("expected one token-refreshed signal")
	}

	sess := s.Current(ctx)
	if sess.RemainingLifetime(time.Now()) < 30*time.Minute {
		t.Fatalf("expiry not extended: %s", sess.ExpiresAt)
	}
}

func TestEnsureFresh_FreshTokenSkipsRefresh(t *testing.T) {
	backend := &stubAuthBackend{}
	s, store, _ := newTestSession(backend)
	ctx := context.Background()

	_ = store.Set(ctx, keyAccessToken, testToken("u1", time.Now().Add(time.Hour)))
	_ = store.Set(ctx, keyExpiresAt, time.Now().Add(time.Hour).Format(time.RFC3339Nano))

	if !s.EnsureFresh(ctx) {
		t.Fatalf("EnsureFresh must succeed with a fresh token")
	}
	if refreshes, _ := backend.calls(); refreshes != 0 {
		t.Fatalf("refresh attempts = %d, want 0", refreshes)
	}
}

func TestEnsureFresh_PlaceholderNeverRefreshed(t *testing.T) {
	backend := &stubAuthBackend{}
	s, store, _ := newTestSession(backend)
	ctx := context.Background()

	_ = store.Set(ctx, keyAccessToken, testToken("local-offline", time.Now().Add(time.Minute)))
	_ = store.Set(ctx, keyExpiresAt, time.Now().Add(time.Minute).Format(time.RFC3339Nano))
	_ = store.Set(ctx, keySource, string(domain.CredentialLocalPlaceholder))

	if !s.EnsureFresh(ctx) {
		t.Fatalf("placeholder session must report usable")
	}
	if refreshes, _ := backend.calls(); refreshes != 0 {
		t.Fatalf("placeholder must never hit the refresh endpoint")
	}
}
