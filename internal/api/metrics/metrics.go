// Package metrics defines and registers all custom Prometheus metrics for
// the pos-edge gateway. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "posedge"

// ── Gateway metrics ───────────────────────────────────────────────────────────

// GatewayRequestsTotal counts proxied backend requests.
// Labels:
//   - endpoint: the backend resource key (e.g. "orders/pending")
//   - outcome: "ok" or "error"
//   - source: "backend" or "fallback"
var GatewayRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Total number of gateway requests, by endpoint, outcome and data source.",
	},
	[]string{"endpoint", "outcome", "source"},
)

// FallbackActivationsTotal counts transitions into fallback mode.
var FallbackActivationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallback_activations_total",
		Help:      "Total number of transitions into degraded fallback mode.",
	},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthLoginsTotal counts login attempts through the gateway.
// Label:
//   - outcome: "ok", "invalid_credentials" or "error"
var AuthLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// TokenRefreshesTotal counts token refresh attempts against the backend.
// Label:
//   - outcome: "ok" or "error"
var TokenRefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of token refresh attempts, by outcome.",
	},
	[]string{"outcome"},
)

// ── Signal metrics ────────────────────────────────────────────────────────────

// SignalsTotal counts session signals seen on the bus.
// Label:
//   - kind: the signal kind (e.g. "session-terminated", "fallback-enabled")
var SignalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_total",
		Help:      "Total number of session signals observed on the signal bus.",
	},
	[]string{"kind"},
)

// ── Connectivity metrics ──────────────────────────────────────────────────────

// ConnectivityState reports the current connectivity status as a one-hot
// gauge.
// Label:
//   - status: "online", "offline" or "degraded-fallback"
var ConnectivityState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connectivity_state",
		Help:      "Current connectivity status (1 for the active status, 0 otherwise).",
	},
	[]string{"status"},
)

// ProbeDuration measures backend health probe round trips.
// Label:
//   - outcome: "ok" or "error"
var ProbeDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_duration_seconds",
		Help:      "Duration of backend health probes.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"outcome"},
)
