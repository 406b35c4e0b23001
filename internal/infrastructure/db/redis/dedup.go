package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupRetention = 10 * time.Minute

// DedupStore remembers completed operation ids, backed by Redis key TTLs.
// Key format: <namespace>:dedup:op:<id>
type DedupStore struct {
	client    *redis.Client
	ns        string
	retention time.Duration
}

// NewDedupStore creates a DedupStore wrapping the given Redis client.
// A retention of zero falls back to the 10-minute default.
func NewDedupStore(client *redis.Client, namespace string, retention time.Duration) *DedupStore {
	if retention <= 0 {
		retention = defaultDedupRetention
	}
	return &DedupStore{client: client, ns: namespace, retention: retention}
}

// Seen reports whether the operation id was already marked done.
func (d *DedupStore) Seen(ctx context.Context, id string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// MarkDone records the operation id as completed (expires after retention).
func (d *DedupStore) MarkDone(ctx context.Context, id string) error {
	return d.client.Set(ctx, d.key(id), "1", d.retention).Err()
}

func (d *DedupStore) key(id string) string {
	return fmt.Sprintf("%s:dedup:op:%s", d.ns, id)
}
