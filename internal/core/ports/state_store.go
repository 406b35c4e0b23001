package ports

import (
	"context"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

// StateStore is the durable key-value surface for client state: tokens,
// breaker counters, fallback flags and datasets. Writes are immediately
// visible to subsequent reads and survive process restarts. No validation
// happens here.
type StateStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key in the namespace.
	Clear(ctx context.Context) error
	// Increment atomically bumps a counter key and returns the new value.
	// Counters are monotonic until explicitly deleted.
	Increment(ctx context.Context, key string) (int64, error)
}

// SignalBus propagates session events across processes sharing the state
// store. Delivery is eventually consistent; consumers re-read authoritative
// state rather than trusting the payload.
type SignalBus interface {
	Publish(ctx context.Context, sig domain.Signal) error
}

// DedupStore remembers operation ids whose side effect already completed,
// so a client retrying a delivered notification does not send it twice.
type DedupStore interface {
	// Seen reports whether the operation id was already marked done.
	Seen(ctx context.Context, id string) (bool, error)
	// MarkDone records the operation id as completed.
	MarkDone(ctx context.Context, id string) error
}

// DebounceStore records recent signature failures per endpoint so a
// cascading auth failure does not trigger a storm of recovery attempts.
type DebounceStore interface {
	// Recent reports whether the endpoint failed within the debounce window.
	Recent(ctx context.Context, endpoint string) (bool, error)
	// Mark stamps the endpoint as recently failed.
	Mark(ctx context.Context, endpoint string) error
	// Clear drops all debounce stamps (explicit reset or full recovery).
	Clear(ctx context.Context) error
}
