package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

// StateStore is the durable key-value surface for session and fallback
// state, shared by every gateway process in the shop. Every write publishes
// a storage-key-changed signal so peer processes can re-read authoritative
// state instead of polling.
type StateStore struct {
	client *redis.Client
	ns     string
	bus    ports.SignalBus // optional; nil disables change signals
}

// NewStateStore wraps a Redis client with a key namespace. bus may be nil.
func NewStateStore(client *redis.Client, namespace string, bus ports.SignalBus) *StateStore {
	return &StateStore{client: client, ns: namespace, bus: bus}
}

// Get returns the stored value and whether the key exists.
func (s *StateStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("state get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes the value with no expiry and notifies other processes.
func (s *StateStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("state set %s: %w", key, err)
	}
	s.notify(ctx, key)
	return nil
}

// Delete removes the key and notifies other processes.
func (s *StateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("state delete %s: %w", key, err)
	}
	s.notify(ctx, key)
	return nil
}

// Clear removes every key in the namespace.
func (s *StateStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.ns+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("state clear: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("state clear: %w", err)
	}
	return nil
}

// Increment atomically bumps a counter key and returns the new value.
func (s *StateStore) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("state incr %s: %w", key, err)
	}
	s.notify(ctx, key)
	return n, nil
}

func (s *StateStore) notify(ctx context.Context, key string) {
	if s.bus == nil {
		return
	}
	// Change signals are advisory; a publish failure must not fail the write.
	_ = s.bus.Publish(ctx, domain.Signal{
		Kind: domain.SignalStorageKeyChanged,
		Key:  key,
		At:   time.Now().UTC(),
	})
}

func (s *StateStore) key(key string) string {
	return s.ns + ":" + key
}
