package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

// maxRecoveryAttempts caps signature-failure recovery per logical session.
const maxRecoveryAttempts = 3

// RetryFunc re-executes the failed operation with the current token.
type RetryFunc func(ctx context.Context) (*ports.UpstreamResponse, error)

// Recovery attempts bounded recovery for classified failures. Within one
// logical request the steps run strictly sequentially (refresh or reissue,
// then a single retry), so the underlying operation never executes twice
// concurrently.
type Recovery struct {
	mu       sync.Mutex
	attempts int // per logical session, reset on login or explicit reset

	session  *AuthSession
	fallback *FallbackStore
	debounce ports.DebounceStore
	log      zerolog.Logger
}

func NewRecovery(session *AuthSession, fallback *FallbackStore, debounce ports.DebounceStore, log zerolog.Logger) *Recovery {
	r := &Recovery{
		session:  session,
		fallback: fallback,
		debounce: debounce,
		log:      log,
	}
	// A fresh login starts a fresh logical session: stale attempts and
	// debounce stamps must not carry over into it.
	session.RegisterLoginHook(func(ctx context.Context) {
		if err := r.Reset(ctx); err != nil {
			log.Warn().Err(err).Msg("recovery reset on login failed")
		}
	})
	return r
}

// Recover handles a classified failure. It returns the retried response on
// success, domain.ErrFallbackActivated when the session degraded to
// fallback mode, or the terminal error for the caller to surface.
//
// Only signature corruption escalates to fallback automatically: expiry is
// a normal condition, systemic token malformation is not.
func (r *Recovery) Recover(ctx context.Context, kind domain.ClassificationKind, endpoint string, cause error, retry RetryFunc) (*ports.UpstreamResponse, error) {
	switch kind {
	case domain.ClassSignatureInvalid:
		return r.recoverSignature(ctx, endpoint, retry)
	case domain.ClassAuthExpired:
		return r.recoverAuthExpired(ctx, cause, retry)
	default:
		// Transient and server errors are surfaced after a single attempt;
		// retry/backoff for those is the caller's responsibility.
		return nil, cause
	}
}

// Reset clears the per-session attempts counter and the endpoint debounce
// stamps. Called on login and on explicit reconnect/reset.
func (r *Recovery) Reset(ctx context.Context) error {
	r.mu.Lock()
	r.attempts = 0
	r.mu.Unlock()
	return r.debounce.Clear(ctx)
}

func (r *Recovery) recoverSignature(ctx context.Context, endpoint string, retry RetryFunc) (*ports.UpstreamResponse, error) {
	// An endpoint that just produced a signature failure is already known
	// bad; skip straight to fallback instead of feeding the storm.
	if recent, err := r.debounce.Recent(ctx, endpoint); err == nil && recent {
		r.log.Warn().Str("endpoint", endpoint).Msg("signature failure within debounce window, going to fallback")
		return nil, r.degrade(ctx)
	}
	if err := r.debounce.Mark(ctx, endpoint); err != nil {
		r.log.Warn().Err(err).Str("endpoint", endpoint).Msg("failed to mark debounce stamp")
	}

	r.mu.Lock()
	r.attempts++
	attempts := r.attempts
	r.mu.Unlock()

	if attempts >= maxRecoveryAttempts {
		r.log.Warn().Int("attempts", attempts).Msg("signature recovery attempts exhausted")
		return nil, r.degrade(ctx)
	}

	if err := r.session.Refresh(ctx); err == nil {
		if resp, err := retry(ctx); err == nil {
			return resp, nil
		}
	}

	// Refresh cannot fix a malformed token; force a brand-new locally
	// issued one, bypassing the backend, and retry once more.
	if err := r.fallback.IssuePlaceholder(ctx); err != nil {
		r.log.Error().Err(err).Msg("placeholder issuance failed")
		return nil, r.degrade(ctx)
	}
	if resp, err := retry(ctx); err == nil {
		return resp, nil
	}

	return nil, r.degrade(ctx)
}

func (r *Recovery) recoverAuthExpired(ctx context.Context, cause error, retry RetryFunc) (*ports.UpstreamResponse, error) {
	if err := r.session.Refresh(ctx); err == nil {
		if resp, err := retry(ctx); err == nil {
			return resp, nil
		}
	}

	if err := r.fallback.IssuePlaceholder(ctx); err != nil {
		return nil, cause
	}
	if resp, err := retry(ctx); err == nil {
		return resp, nil
	}

	// Plain expiry does not enter fallback silently; surface the error.
	return nil, cause
}

func (r *Recovery) degrade(ctx context.Context) error {
	if err := r.fallback.Activate(ctx); err != nil {
		r.log.Error().Err(err).Msg("fallback activation failed")
		return err
	}
	return domain.ErrFallbackActivated
}
