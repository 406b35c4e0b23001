package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

// memStore is an in-memory ports.StateStore for tests.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	return nil
}

func (m *memStore) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

// memBus records published signals.
type memBus struct {
	mu      sync.Mutex
	signals []domain.Signal
}

func (b *memBus) Publish(_ context.Context, sig domain.Signal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, sig)
	return nil
}

func (b *memBus) count(kind domain.SignalKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, sig := range b.signals {
		if sig.Kind == kind {
			n++
		}
	}
	return n
}

// memDebounce is an in-memory ports.DebounceStore honoring a window.
type memDebounce struct {
	mu     sync.Mutex
	stamps map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func newMemDebounce(window time.Duration) *memDebounce {
	return &memDebounce{stamps: make(map[string]time.Time), window: window, now: time.Now}
}

func (d *memDebounce) Recent(_ context.Context, endpoint string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.stamps[endpoint]
	return ok && d.now().Sub(at) < d.window, nil
}

func (d *memDebounce) Mark(_ context.Context, endpoint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stamps[endpoint] = d.now()
	return nil
}

func (d *memDebounce) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stamps = make(map[string]time.Time)
	return nil
}

// stubAuthBackend scripts the upstream auth endpoints.
type stubAuthBackend struct {
	mu           sync.Mutex
	loginResult  *ports.LoginResult
	loginErr     error
	refreshToken string
	refreshErr   error
	refreshCalls int
	logoutCalls  int
	logoutErr    error
}

func (s *stubAuthBackend) Login(_ context.Context, _, _ string) (*ports.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginResult, nil
}

func (s *stubAuthBackend) Refresh(_ context.Context, _ string) (*ports.RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return &ports.RefreshResult{Token: s.refreshToken, ExpiresIn: 3600}, nil
}

func (s *stubAuthBackend) Logout(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutCalls++
	return s.logoutErr
}

func (s *stubAuthBackend) calls() (refresh, logout int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls, s.logoutCalls
}

// stubProber replays scripted probe outcomes; the last one repeats.
type stubProber struct {
	mu   sync.Mutex
	errs []error
	idx  int
}

func (p *stubProber) Probe(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.errs) == 0 {
		return nil
	}
	err := p.errs[p.idx]
	if p.idx < len(p.errs)-1 {
		p.idx++
	}
	return err
}

// testToken builds a well-formed JWT with a garbage signature segment; the
// client never verifies signatures, so this is enough for fixtures.
func testToken(sub any, expiresAt time.Time) string {
	header := base64JSON(map[string]any{"alg": "HS256", "typ": "JWT"})
	payload := map[string]any{"iat": time.Now().Add(-time.Minute).Unix()}
	if sub != nil {
		payload["sub"] = sub
	}
	if !expiresAt.IsZero() {
		payload["exp"] = expiresAt.Unix()
	}
	return header + "." + base64JSON(payload) + ".c2lnbmF0dXJl"
}

func base64JSON(v map[string]any) string {
	raw, _ := json.Marshal(v)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
