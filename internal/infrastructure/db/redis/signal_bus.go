package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

// SignalBus propagates session signals across gateway processes via Redis
// pub/sub. Delivery is at-most-once and eventually consistent: consumers
// treat signals as advisory and re-read authoritative state.
type SignalBus struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// NewSignalBus creates a bus publishing on "<namespace>:signals".
func NewSignalBus(client *redis.Client, namespace string, log zerolog.Logger) *SignalBus {
	return &SignalBus{
		client:  client,
		channel: namespace + ":signals",
		log:     log,
	}
}

// Publish broadcasts a signal to every subscribed process, including this one.
func (b *SignalBus) Publish(ctx context.Context, sig domain.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("signal marshal: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("signal publish: %w", err)
	}
	return nil
}

// Run subscribes to the signal channel and invokes handler for every signal
// until ctx is cancelled. Malformed payloads are logged and skipped.
func (b *SignalBus) Run(ctx context.Context, handler func(domain.Signal)) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var sig domain.Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				b.log.Warn().Err(err).Str("payload", msg.Payload).Msg("dropping malformed signal")
				continue
			}
			handler(sig)
		}
	}
}
