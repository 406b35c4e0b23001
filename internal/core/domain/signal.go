package domain

import "time"

// SignalKind names a cross-process session event. Signals are advisory:
// consumers re-read authoritative state from the state store rather than
// trusting payloads.
type SignalKind string

const (
	SignalSessionTerminated SignalKind = "session-terminated"
	SignalFallbackEnabled   SignalKind = "fallback-enabled"
	SignalFallbackDisabled  SignalKind = "fallback-disabled"
	SignalTokenRefreshed    SignalKind = "token-refreshed"
	SignalStorageKeyChanged SignalKind = "storage-key-changed"
)

// Signal is the envelope published on the shared signal bus.
type Signal struct {
	Kind SignalKind `json:"kind"`
	Key  string     `json:"key,omitempty"` // storage key, for storage-key-changed
	At   time.Time  `json:"at"`
}
