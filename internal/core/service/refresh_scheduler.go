package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// refreshThreshold is how long before expiry the background refresh runs.
	refreshThreshold = 5 * time.Minute
	// minimumDelay is the floor for the scheduled delay.
	minimumDelay = 10 * time.Second
)

// RefreshScheduler schedules a single background token refresh a fixed
// interval before expiry. Exactly one refresh attempt happens per scheduled
// tick; retry policy for request-triggered refreshes lives in Recovery, not
// here. On failure the terminal expired callback fires instead of retrying.
type RefreshScheduler struct {
	mu    sync.Mutex
	timer *time.Timer

	// refresh performs one refresh and returns the new token lifetime.
	refresh func(ctx context.Context) (time.Duration, error)
	// expired is the terminal session-expired callback.
	expired func()

	threshold time.Duration
	minDelay  time.Duration
	log       zerolog.Logger
}

func NewRefreshScheduler(refresh func(ctx context.Context) (time.Duration, error), expired func(), log zerolog.Logger) *RefreshScheduler {
	return &RefreshScheduler{
		refresh:   refresh,
		expired:   expired,
		threshold: refreshThreshold,
		minDelay:  minimumDelay,
		log:       log,
	}
}

// Start schedules the next refresh. Any previously pending timer is
// cancelled first, so at most one timer is ever pending.
func (s *RefreshScheduler) Start(expiresIn time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	delay := s.nextDelay(expiresIn)
	s.timer = time.AfterFunc(delay, s.fire)
	s.log.Debug().Dur("delay", delay).Dur("expires_in", expiresIn).Msg("refresh scheduled")
}

// Stop cancels any pending refresh. Idempotent.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *RefreshScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// nextDelay clamps "threshold before expiry" to the minimum delay so that
// short-lived tokens still get one scheduled refresh instead of an
// immediate fire loop.
func (s *RefreshScheduler) nextDelay(expiresIn time.Duration) time.Duration {
	delay := expiresIn - s.threshold
	if delay < s.minDelay {
		delay = s.minDelay
	}
	return delay
}

func (s *RefreshScheduler) fire() {
	next, err := s.refresh(context.Background())
	if err != nil {
		s.log.Warn().Err(err).Msg("scheduled refresh failed, terminating session")
		s.expired()
		return
	}
	s.Start(next)
}
