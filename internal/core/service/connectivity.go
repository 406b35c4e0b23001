package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

const (
	keyConnectivityState   = "connectivity:state"
	keyConnectivityChecked = "connectivity:checked-at"

	defaultProbeMinInterval = 5 * time.Second
	defaultRecoverCooldown  = 30 * time.Second
)

// ConnectivityMonitor determines online/offline/degraded status with an
// asymmetric debounce: a transition to a worse state applies immediately,
// a transition back to online requires a successful probe after a cooldown.
// That keeps the UI banner from flickering on blips while still reacting
// fast to real outages.
type ConnectivityMonitor struct {
	mu sync.Mutex

	prober ports.Prober
	store  ports.StateStore

	state      domain.ConnectivityState
	degraded   bool // fallback mode forces degraded regardless of probes
	lastProbe  time.Time
	lastFailed time.Time

	minInterval time.Duration
	cooldown    time.Duration

	listeners []func(domain.ConnectivityState)
	// probeObserver, when set, receives every probe's duration and outcome.
	probeObserver func(time.Duration, error)

	now func() time.Time
	log zerolog.Logger
}

// MonitorOption tunes a ConnectivityMonitor.
type MonitorOption func(*ConnectivityMonitor)

// WithProbeIntervals overrides the probe cache window and recover cooldown.
func WithProbeIntervals(minInterval, cooldown time.Duration) MonitorOption {
	return func(m *ConnectivityMonitor) {
		if minInterval > 0 {
			m.minInterval = minInterval
		}
		if cooldown > 0 {
			m.cooldown = cooldown
		}
	}
}

// WithProbeObserver registers a callback for probe telemetry.
func WithProbeObserver(fn func(time.Duration, error)) MonitorOption {
	return func(m *ConnectivityMonitor) { m.probeObserver = fn }
}

func NewConnectivityMonitor(prober ports.Prober, store ports.StateStore, log zerolog.Logger, opts ...MonitorOption) *ConnectivityMonitor {
	m := &ConnectivityMonitor{
		prober:      prober,
		store:       store,
		state:       domain.ConnectivityState{Status: domain.StatusOnline},
		minInterval: defaultProbeMinInterval,
		cooldown:    defaultRecoverCooldown,
		now:         time.Now,
		log:         log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the cached state without probing.
func (m *ConnectivityMonitor) State() domain.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CheckNow probes the backend unless the previous probe is fresher than the
// minimum interval, in which case the cached state is returned.
func (m *ConnectivityMonitor) CheckNow(ctx context.Context) domain.ConnectivityState {
	m.mu.Lock()

	now := m.now()
	if now.Sub(m.lastProbe) < m.minInterval {
		state := m.state
		m.mu.Unlock()
		return state
	}
	m.lastProbe = now
	m.mu.Unlock()

	start := m.now()
	err := m.prober.Probe(ctx)
	if m.probeObserver != nil {
		m.probeObserver(m.now().Sub(start), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now = m.now()
	if m.degraded {
		// Fallback mode pins the reported state; probes still run so the
		// reconnect action knows whether the backend came back.
		m.commit(ctx, domain.ConnectivityState{Status: domain.StatusDegraded, CheckedAt: now, Reason: m.state.Reason})
		return m.state
	}

	if err != nil {
		m.lastFailed = now
		// Worse state: applied immediately.
		m.commit(ctx, domain.ConnectivityState{Status: domain.StatusOffline, CheckedAt: now, Reason: err.Error()})
		return m.state
	}

	if m.state.Status == domain.StatusOnline {
		m.commit(ctx, domain.ConnectivityState{Status: domain.StatusOnline, CheckedAt: now})
		return m.state
	}

	// Better state: only committed once a probe succeeds after the cooldown.
	if now.Sub(m.lastFailed) < m.cooldown {
		m.commit(ctx, domain.ConnectivityState{Status: m.state.Status, CheckedAt: now, Reason: "recovery pending confirmation"})
		return m.state
	}
	m.commit(ctx, domain.ConnectivityState{Status: domain.StatusOnline, CheckedAt: now})
	return m.state
}

// SetDegraded pins the reported status to degraded-fallback.
func (m *ConnectivityMonitor) SetDegraded(ctx context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = true
	m.commit(ctx, domain.ConnectivityState{Status: domain.StatusDegraded, CheckedAt: m.now(), Reason: reason})
}

// ClearDegraded lifts the degraded pin; the next probe decides the status.
// The cooldown still applies before online is reported again.
func (m *ConnectivityMonitor) ClearDegraded(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = false
	m.lastFailed = time.Time{}
	m.lastProbe = time.Time{}
	m.commit(ctx, domain.ConnectivityState{Status: domain.StatusOffline, CheckedAt: m.now(), Reason: "reconnecting"})
}

// Subscribe registers a listener invoked on every status change.
func (m *ConnectivityMonitor) Subscribe(fn func(domain.ConnectivityState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Run probes periodically until ctx is cancelled.
func (m *ConnectivityMonitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// commit stores the new state, persists it, and broadcasts on change.
// Callers hold m.mu.
func (m *ConnectivityMonitor) commit(ctx context.Context, next domain.ConnectivityState) {
	changed := next.Status != m.state.Status
	m.state = next

	if m.store != nil {
		if err := m.store.Set(ctx, keyConnectivityState, string(next.Status)); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist connectivity state")
		}
		_ = m.store.Set(ctx, keyConnectivityChecked, next.CheckedAt.Format(time.RFC3339Nano))
	}

	if changed {
		m.log.Info().Str("status", string(next.Status)).Str("reason", next.Reason).Msg("connectivity changed")
		for _, fn := range m.listeners {
			fn(next)
		}
	}
}
