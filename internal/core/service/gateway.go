package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

const defaultRequestTimeout = 12 * time.Second

// Well-known backend endpoints and the fallback dataset that substitutes
// for each in degraded mode. Endpoints without a substitute fail with
// ErrUpstreamUnavailable while offline.
var (
	EndpointOrdersPending    = ports.Endpoint{Key: "orders/pending", Method: http.MethodGet, Fallback: domain.FallbackOrdersPending}
	EndpointOrdersInProgress = ports.Endpoint{Key: "orders/in-progress", Method: http.MethodGet, Fallback: domain.FallbackOrdersInProgress}
	EndpointOrdersCompleted  = ports.Endpoint{Key: "orders/completed", Method: http.MethodGet, Fallback: domain.FallbackOrdersCompleted}
	EndpointInventory        = ports.Endpoint{Key: "inventory", Method: http.MethodGet, Fallback: domain.FallbackStock}
	EndpointStations         = ports.Endpoint{Key: "stations", Method: http.MethodGet}
	EndpointSMSSend          = ports.Endpoint{Key: "sms/send", Method: http.MethodPost}
)

// Gateway is the single chokepoint for backend calls. It short-circuits to
// the fallback store while degraded, keeps the token fresh, enforces the
// request timeout and hands failures to the recovery coordinator.
type Gateway struct {
	backend  ports.ResourceBackend
	session  *AuthSession
	recovery *Recovery
	fallback *FallbackStore
	monitor  ports.Connectivity

	timeout time.Duration
	log     zerolog.Logger
}

func NewGateway(backend ports.ResourceBackend, session *AuthSession, recovery *Recovery, fallback *FallbackStore, monitor ports.Connectivity, timeout time.Duration, log zerolog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Gateway{
		backend:  backend,
		session:  session,
		recovery: recovery,
		fallback: fallback,
		monitor:  monitor,
		timeout:  timeout,
		log:      log,
	}
}

// Request executes a backend call with the full resilience ladder.
func (g *Gateway) Request(ctx context.Context, ep ports.Endpoint, body []byte, operationID string) (*ports.GatewayResult, error) {
	// While degraded no network I/O happens at all. A tripped breaker
	// degrades the session on the spot: three strikes means stop hammering.
	if g.shortCircuit(ctx) {
		return g.serveFallback(ctx, ep)
	}

	if !g.session.EnsureFresh(ctx) {
		g.log.Debug().Str("endpoint", ep.Key).Msg("no usable token before request")
	}

	resp, err := g.call(ctx, ep, body, operationID)
	if err == nil {
		return &ports.GatewayResult{Status: resp.Status, Body: resp.Body, Source: ports.SourceBackend}, nil
	}

	kind := domain.Classify(err)
	g.log.Warn().Err(err).Str("endpoint", ep.Key).Str("classification", string(kind)).Msg("request failed")

	resp, rerr := g.recovery.Recover(ctx, kind, ep.Key, err, func(ctx context.Context) (*ports.UpstreamResponse, error) {
		return g.call(ctx, ep, body, operationID)
	})
	if rerr == nil {
		return &ports.GatewayResult{Status: resp.Status, Body: resp.Body, Source: ports.SourceBackend}, nil
	}
	if errors.Is(rerr, domain.ErrFallbackActivated) {
		return g.serveFallback(ctx, ep)
	}
	return nil, rerr
}

func (g *Gateway) shortCircuit(ctx context.Context) bool {
	if g.monitor != nil && g.monitor.State().Status == domain.StatusDegraded {
		return true
	}
	if g.fallback.Active(ctx) {
		return true
	}
	if g.session.BreakerTripped(ctx) {
		if err := g.fallback.Activate(ctx); err != nil {
			g.log.Error().Err(err).Msg("breaker tripped but fallback activation failed")
		}
		return true
	}
	return false
}

func (g *Gateway) call(ctx context.Context, ep ports.Endpoint, body []byte, operationID string) (*ports.UpstreamResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	return g.backend.Do(callCtx, ports.UpstreamRequest{
		Method:      ep.Method,
		Key:         ep.Key,
		Body:        body,
		Token:       g.session.AccessToken(ctx),
		OperationID: operationID,
	})
}

func (g *Gateway) serveFallback(ctx context.Context, ep ports.Endpoint) (*ports.GatewayResult, error) {
	if ep.Fallback == "" {
		return nil, fmt.Errorf("%w: no local substitute for %s", domain.ErrUpstreamUnavailable, ep.Key)
	}
	data, err := g.fallback.Read(ctx, ep.Fallback)
	if err != nil {
		return nil, err
	}
	return &ports.GatewayResult{Status: http.StatusOK, Body: data, Source: ports.SourceFallback}, nil
}
