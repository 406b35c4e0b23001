package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

// Storage keys for session state. The session keys are cleared as a unit on
// logout; the auth-error counter survives reloads until an explicit reset.
const (
	keyAccessToken  = "session:access-token"
	keyRefreshToken = "session:refresh-token"
	keyExpiresAt    = "session:expires-at"
	keyUser         = "session:user"
	keySource       = "session:source"
	keyAuthErrors   = "breaker:auth-errors"
)

const defaultTokenLifetime = time.Hour

// AuthSession orchestrates login, logout and token freshness. All session
// state lives in the durable state store; in-memory state is limited to the
// refresh timer, which makes concurrent gateway processes see one another's
// logins and logouts.
type AuthSession struct {
	mu        sync.Mutex
	store     ports.StateStore
	bus       ports.SignalBus
	backend   ports.AuthBackend
	validator *TokenValidator
	scheduler *RefreshScheduler

	maxAuthErrors int64
	threshold     time.Duration
	now           func() time.Time
	log           zerolog.Logger

	// onLogin hooks run after every successful login. Registered during
	// composition, before traffic; not synchronized.
	onLogin []func(ctx context.Context)
}

// SessionOption tunes an AuthSession.
type SessionOption func(*AuthSession)

// WithRefreshThreshold overrides how long before expiry tokens refresh.
func WithRefreshThreshold(d time.Duration) SessionOption {
	return func(s *AuthSession) {
		if d > 0 {
			s.threshold = d
		}
	}
}

func NewAuthSession(store ports.StateStore, bus ports.SignalBus, backend ports.AuthBackend, validator *TokenValidator, maxAuthErrors int64, log zerolog.Logger, opts ...SessionOption) *AuthSession {
	if maxAuthErrors <= 0 {
		maxAuthErrors = 3
	}
	s := &AuthSession{
		store:         store,
		bus:           bus,
		backend:       backend,
		validator:     validator,
		maxAuthErrors: maxAuthErrors,
		threshold:     refreshThreshold,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = NewRefreshScheduler(s.refreshForScheduler, s.terminate, log)
	s.scheduler.threshold = s.threshold
	return s
}

// RegisterLoginHook adds a callback invoked after every successful login.
// A login starts a fresh logical session, so dependent services use this to
// drop per-session counters.
func (s *AuthSession) RegisterLoginHook(fn func(ctx context.Context)) {
	s.onLogin = append(s.onLogin, fn)
}

// Restore picks up a persisted session at process start and restarts the
// background refresh when the stored token is still usable.
func (s *AuthSession) Restore(ctx context.Context) {
	sess := s.Current(ctx)
	if sess == nil || sess.Source == domain.CredentialLocalPlaceholder {
		return
	}
	check := s.validator.ValidateFormat(sess.AccessToken)
	if !check.Valid() {
		return
	}
	s.scheduler.Start(sess.RemainingLifetime(s.now()))
	s.log.Info().Str("subject", userSubject(sess)).Msg("session restored from store")
}

// Login authenticates against the upstream, persists the session as a unit,
// resets the auth-error counter and starts the background refresh. The
// returned string is the role-derived redirect target.
func (s *AuthSession) Login(ctx context.Context, username, password string) (*domain.Session, string, error) {
	res, err := s.backend.Login(ctx, username, password)
	if err != nil {
		var re *domain.RequestError
		if errors.As(err, &re) && !re.Transport {
			if re.Status == http.StatusUnauthorized || re.Status == http.StatusBadRequest {
				return nil, "", fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, re.Message)
			}
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	check := s.validator.ValidateFormat(res.Token)
	expiresIn := time.Duration(res.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		if check.Claims != nil && !check.Claims.ExpiresAt.IsZero() {
			expiresIn = check.Claims.ExpiresAt.Sub(s.now())
		} else {
			expiresIn = defaultTokenLifetime
		}
	}

	user := res.User
	if user.Subject == "" && check.Claims != nil {
		user.Subject = check.Claims.Subject
	}
	if !user.Role.Valid() {
		user.Role = domain.RoleGuest
	}

	sess := &domain.Session{
		AccessToken:  res.Token,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    s.now().Add(expiresIn),
		User:         &user,
		Source:       domain.CredentialBackend,
	}
	if err := s.persist(ctx, sess); err != nil {
		return nil, "", err
	}
	if err := s.store.Delete(ctx, keyAuthErrors); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset auth-error counter")
	}
	for _, hook := range s.onLogin {
		hook(ctx)
	}

	s.scheduler.Start(expiresIn)
	s.log.Info().Str("subject", user.Subject).Str("role", string(user.Role)).Msg("login succeeded")

	return sess, user.Role.RedirectTarget(), nil
}

// Logout always succeeds locally: the scheduler stops, session keys are
// cleared as a unit, and the upstream is notified best-effort.
func (s *AuthSession) Logout(ctx context.Context) error {
	s.scheduler.Stop()

	refreshToken, _, _ := s.store.Get(ctx, keyRefreshToken)
	s.clearSession(ctx)

	if refreshToken != "" {
		if err := s.backend.Logout(ctx, refreshToken); err != nil {
			s.log.Debug().Err(err).Msg("upstream logout failed, ignored")
		}
	}

	s.publish(ctx, domain.SignalSessionTerminated)
	s.log.Info().Msg("logged out")
	return nil
}

// IsAuthenticated reports whether a structurally valid, unexpired token is
// stored. No network call is made.
func (s *AuthSession) IsAuthenticated(ctx context.Context) bool {
	token, ok, err := s.store.Get(ctx, keyAccessToken)
	if err != nil || !ok {
		return false
	}
	return s.validator.ValidateFormat(token).Valid()
}

// EnsureFresh is consulted before every outbound request: when the token's
// remaining lifetime is below threshold it attempts one refresh and reports
// whether a usable token exists afterwards.
func (s *AuthSession) EnsureFresh(ctx context.Context) bool {
	sess := s.Current(ctx)
	if sess == nil {
		return false
	}
	// Placeholders are never refreshed against the backend.
	if sess.Source == domain.CredentialLocalPlaceholder {
		return true
	}
	if sess.RemainingLifetime(s.now()) > s.threshold {
		return true
	}
	if err := s.Refresh(ctx); err != nil {
		// The old token may still be inside its lifetime.
		return s.IsAuthenticated(ctx)
	}
	return true
}

// Refresh performs exactly one refresh attempt. A non-OK upstream response
// (notably 401) is not retried: the durable auth-error counter is
// incremented and the error returned. Three cumulative failures trip the
// breaker consulted by the gateway.
func (s *AuthSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	refreshToken, ok, err := s.store.Get(ctx, keyRefreshToken)
	if err != nil {
		return err
	}
	if !ok || refreshToken == "" {
		s.recordAuthError(ctx)
		return fmt.Errorf("refresh: %w", domain.ErrNotAuthenticated)
	}

	res, err := s.backend.Refresh(ctx, refreshToken)
	if err != nil {
		s.recordAuthError(ctx)
		return fmt.Errorf("refresh: %w", err)
	}

	expiresIn := time.Duration(res.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		if check := s.validator.ValidateFormat(res.Token); check.Claims != nil && !check.Claims.ExpiresAt.IsZero() {
			expiresIn = check.Claims.ExpiresAt.Sub(s.now())
		} else {
			expiresIn = defaultTokenLifetime
		}
	}

	if err := s.store.Set(ctx, keyAccessToken, res.Token); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyExpiresAt, s.now().Add(expiresIn).Format(time.RFC3339Nano)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keySource, string(domain.CredentialBackend)); err != nil {
		return err
	}

	s.scheduler.Start(expiresIn)
	s.publish(ctx, domain.SignalTokenRefreshed)
	s.log.Debug().Dur("expires_in", expiresIn).Msg("token refreshed")
	return nil
}

// Current returns the authoritative session state from the store, or nil.
func (s *AuthSession) Current(ctx context.Context) *domain.Session {
	token, ok, err := s.store.Get(ctx, keyAccessToken)
	if err != nil || !ok || token == "" {
		return nil
	}

	sess := &domain.Session{AccessToken: token, Source: domain.CredentialBackend}
	if refresh, ok, _ := s.store.Get(ctx, keyRefreshToken); ok {
		sess.RefreshToken = refresh
	}
	if raw, ok, _ := s.store.Get(ctx, keyExpiresAt); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			sess.ExpiresAt = t
		}
	}
	if raw, ok, _ := s.store.Get(ctx, keyUser); ok {
		var user domain.UserIdentity
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			sess.User = &user
		}
	}
	if raw, ok, _ := s.store.Get(ctx, keySource); ok && raw != "" {
		sess.Source = domain.CredentialSource(raw)
	}
	return sess
}

// AccessToken returns the stored bearer token, empty when absent.
func (s *AuthSession) AccessToken(ctx context.Context) string {
	token, _, _ := s.store.Get(ctx, keyAccessToken)
	return token
}

// BreakerTripped reports whether cumulative refresh failures crossed the
// 3-strikes threshold. The counter is durable, so the breaker stays tripped
// across restarts until an explicit reset.
func (s *AuthSession) BreakerTripped(ctx context.Context) bool {
	return s.AuthErrorCount(ctx) >= s.maxAuthErrors
}

// AuthErrorCount returns the durable auth-error counter.
func (s *AuthSession) AuthErrorCount(ctx context.Context) int64 {
	raw, ok, err := s.store.Get(ctx, keyAuthErrors)
	if err != nil || !ok {
		return 0
	}
	var n int64
	_, _ = fmt.Sscanf(raw, "%d", &n)
	return n
}

// ResetFailures clears the auth-error counter.
func (s *AuthSession) ResetFailures(ctx context.Context) error {
	return s.store.Delete(ctx, keyAuthErrors)
}

// OfflineSuggested reports whether the failure warrants offering the user
// an explicit opt-in to offline mode: either the breaker already tripped or
// the error smells like systemic token corruption.
func (s *AuthSession) OfflineSuggested(ctx context.Context, err error) bool {
	if s.BreakerTripped(ctx) {
		return true
	}
	return domain.Classify(err) == domain.ClassSignatureInvalid
}

func (s *AuthSession) recordAuthError(ctx context.Context) {
	n, err := s.store.Increment(ctx, keyAuthErrors)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to record auth error")
		return
	}
	s.log.Warn().Int64("auth_errors", n).Int64("limit", s.maxAuthErrors).Msg("auth error recorded")
}

func (s *AuthSession) persist(ctx context.Context, sess *domain.Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	writes := map[string]string{
		keyAccessToken:  sess.AccessToken,
		keyRefreshToken: sess.RefreshToken,
		keyExpiresAt:    sess.ExpiresAt.Format(time.RFC3339Nano),
		keyUser:         string(userJSON),
		keySource:       string(sess.Source),
	}
	for key, value := range writes {
		if err := s.store.Set(ctx, key, value); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

func (s *AuthSession) clearSession(ctx context.Context) {
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyExpiresAt, keyUser, keySource} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to clear session key")
		}
	}
}

func (s *AuthSession) publish(ctx context.Context, kind domain.SignalKind) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.Signal{Kind: kind, At: s.now().UTC()}); err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to publish signal")
	}
}

// refreshForScheduler adapts Refresh for the background timer: it returns
// the new token lifetime so the scheduler can re-arm itself.
func (s *AuthSession) refreshForScheduler(ctx context.Context) (time.Duration, error) {
	if err := s.Refresh(ctx); err != nil {
		return 0, err
	}
	sess := s.Current(ctx)
	if sess == nil {
		return 0, domain.ErrNotAuthenticated
	}
	return sess.RemainingLifetime(s.now()), nil
}

// terminate is the scheduler's terminal callback: the refresh token itself
// was rejected, so the session ends rather than retrying indefinitely.
func (s *AuthSession) terminate() {
	ctx := context.Background()
	s.clearSession(ctx)
	s.publish(ctx, domain.SignalSessionTerminated)
	s.log.Warn().Msg("session terminated after failed background refresh")
}

func userSubject(sess *domain.Session) string {
	if sess.User == nil {
		return ""
	}
	return sess.User.Subject
}
