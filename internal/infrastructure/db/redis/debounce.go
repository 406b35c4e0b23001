package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDebounceWindow = 30 * time.Second

// DebounceStore records recent signature failures per endpoint, backed by
// Redis key TTLs. Key format: <namespace>:debounce:endpoint:<key>
type DebounceStore struct {
	client *redis.Client
	ns     string
	window time.Duration
}

// NewDebounceStore creates a DebounceStore wrapping the given Redis client.
// A window of zero falls back to the 30-second default.
func NewDebounceStore(client *redis.Client, namespace string, window time.Duration) *DebounceStore {
	if window <= 0 {
		window = defaultDebounceWindow
	}
	return &DebounceStore{client: client, ns: namespace, window: window}
}

// Recent reports whether the endpoint produced a signature failure within
// the debounce window.
func (d *DebounceStore) Recent(ctx context.Context, endpoint string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(endpoint)).Result()
	if err != nil {
		return false, fmt.Errorf("debounce check: %w", err)
	}
	return n > 0, nil
}

// Mark stamps the endpoint as recently failed (expires after the window).
func (d *DebounceStore) Mark(ctx context.Context, endpoint string) error {
	return d.client.Set(ctx, d.key(endpoint), "1", d.window).Err()
}

// Clear drops every debounce stamp in the namespace.
func (d *DebounceStore) Clear(ctx context.Context) error {
	pattern := fmt.Sprintf("%s:debounce:endpoint:*", d.ns)
	iter := d.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := d.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("debounce clear: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("debounce clear: %w", err)
	}
	return nil
}

func (d *DebounceStore) key(endpoint string) string {
	return fmt.Sprintf("%s:debounce:endpoint:%s", d.ns, endpoint)
}
