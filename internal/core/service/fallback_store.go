package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/ports"
)

const (
	keyFallbackActive = "fallback:active"
	keyFallbackSeeded = "fallback:seeded"

	fallbackDataPrefix = "fallback:data:"

	placeholderSubject  = "local-offline"
	placeholderLifetime = 24 * time.Hour
)

// FallbackStore holds the locally generated dataset served while the
// backend is unreachable or authentication is unrecoverable. Seeding is
// idempotent: once a dataset is persisted it is reused, never regenerated.
type FallbackStore struct {
	store ports.StateStore
	bus   ports.SignalBus

	// signingKey is a throwaway per-process key for placeholder tokens.
	// Placeholders exist to keep token-expecting code paths alive; they are
	// never trusted for server calls.
	signingKey []byte
	now        func() time.Time
	log        zerolog.Logger
}

func NewFallbackStore(store ports.StateStore, bus ports.SignalBus, log zerolog.Logger) *FallbackStore {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &FallbackStore{
		store:      store,
		bus:        bus,
		signingKey: key,
		now:        time.Now,
		log:        log,
	}
}

// Active reports whether fallback mode is on (durable flag).
func (f *FallbackStore) Active(ctx context.Context) bool {
	val, ok, err := f.store.Get(ctx, keyFallbackActive)
	return err == nil && ok && val == "true"
}

// Activate idempotently seeds the sample dataset, sets the durable fallback
// flag and issues a local placeholder credential. Re-activating while
// already active is a no-op beyond refreshing the placeholder.
func (f *FallbackStore) Activate(ctx context.Context) error {
	if err := f.seedIfAbsent(ctx); err != nil {
		return err
	}

	wasActive := f.Active(ctx)
	if err := f.store.Set(ctx, keyFallbackActive, "true"); err != nil {
		return err
	}

	if err := f.IssuePlaceholder(ctx); err != nil {
		return err
	}

	if !wasActive {
		f.publish(ctx, domain.SignalFallbackEnabled)
		f.log.Warn().Msg("fallback mode activated")
	}
	return nil
}

// Deactivate clears the fallback flag and removes the placeholder token.
// The seeded dataset is kept: it is cheap and useful if fallback re-enters.
func (f *FallbackStore) Deactivate(ctx context.Context) error {
	if !f.Active(ctx) {
		return nil
	}
	if err := f.store.Delete(ctx, keyFallbackActive); err != nil {
		return err
	}

	// Only a placeholder credential is dropped; a backend-issued session
	// that arrived meanwhile stays untouched.
	if src, ok, _ := f.store.Get(ctx, keySource); ok && src == string(domain.CredentialLocalPlaceholder) {
		for _, key := range []string{keyAccessToken, keyRefreshToken, keyExpiresAt, keyUser, keySource} {
			if err := f.store.Delete(ctx, key); err != nil {
				f.log.Warn().Err(err).Str("key", key).Msg("failed to drop placeholder key")
			}
		}
	}

	f.publish(ctx, domain.SignalFallbackDisabled)
	f.log.Info().Msg("fallback mode deactivated")
	return nil
}

// Read returns the raw dataset for a category.
func (f *FallbackStore) Read(ctx context.Context, category domain.FallbackCategory) ([]byte, error) {
	if !category.Known() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCategory, category)
	}
	if err := f.seedIfAbsent(ctx); err != nil {
		return nil, err
	}
	raw, ok, err := f.store.Get(ctx, fallbackDataPrefix+string(category))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte("[]"), nil
	}
	return []byte(raw), nil
}

// Write replaces the dataset for a category with a local mutation, e.g. a
// barista completing an order while offline.
func (f *FallbackStore) Write(ctx context.Context, category domain.FallbackCategory, data []byte) error {
	if !category.Known() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCategory, category)
	}
	return f.store.Set(ctx, fallbackDataPrefix+string(category), string(data))
}

// CompleteOrder moves an order from pending or in-progress to completed in
// the local copy only.
func (f *FallbackStore) CompleteOrder(ctx context.Context, orderID string) error {
	for _, category := range []domain.FallbackCategory{domain.FallbackOrdersPending, domain.FallbackOrdersInProgress} {
		orders, err := f.readOrders(ctx, category)
		if err != nil {
			return err
		}
		for i, order := range orders {
			if order.ID != orderID {
				continue
			}

			order.Status = domain.OrderCompleted
			completed, err := f.readOrders(ctx, domain.FallbackOrdersCompleted)
			if err != nil {
				return err
			}
			completed = append(completed, order)
			remaining := append(orders[:i:i], orders[i+1:]...)

			if err := f.writeOrders(ctx, category, remaining); err != nil {
				return err
			}
			return f.writeOrders(ctx, domain.FallbackOrdersCompleted, completed)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
}

// IssuePlaceholder re-issues a locally signed token satisfying the
// subject-must-be-string rule. This is re-issuance in the offline sense:
// the backend is bypassed entirely.
func (f *FallbackStore) IssuePlaceholder(ctx context.Context) error {
	now := f.now()

	// Keep the current user's role so the UI keeps its layout offline.
	user := domain.UserIdentity{Subject: placeholderSubject, DisplayName: "Offline Mode", Role: domain.RoleGuest}
	if raw, ok, _ := f.store.Get(ctx, keyUser); ok {
		var existing domain.UserIdentity
		if err := json.Unmarshal([]byte(raw), &existing); err == nil && existing.Role.Valid() {
			user.Role = existing.Role
		}
	}

	claims := jwt.MapClaims{
		"sub":  placeholderSubject,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(placeholderLifetime).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.signingKey)
	if err != nil {
		return fmt.Errorf("issue placeholder: %w", err)
	}

	userJSON, err := json.Marshal(&user)
	if err != nil {
		return fmt.Errorf("issue placeholder: %w", err)
	}

	writes := map[string]string{
		keyAccessToken: token,
		keyExpiresAt:   now.Add(placeholderLifetime).Format(time.RFC3339Nano),
		keyUser:        string(userJSON),
		keySource:      string(domain.CredentialLocalPlaceholder),
	}
	for key, value := range writes {
		if err := f.store.Set(ctx, key, value); err != nil {
			return fmt.Errorf("issue placeholder: %w", err)
		}
	}
	// A placeholder has no refresh token.
	if err := f.store.Delete(ctx, keyRefreshToken); err != nil {
		f.log.Warn().Err(err).Msg("failed to drop refresh token for placeholder")
	}

	f.log.Info().Str("role", string(user.Role)).Msg("local placeholder credential issued")
	return nil
}

// seedIfAbsent persists the deterministic sample dataset once. The seeded
// flag guards regeneration, keeping the persisted bytes stable.
func (f *FallbackStore) seedIfAbsent(ctx context.Context) error {
	if val, ok, err := f.store.Get(ctx, keyFallbackSeeded); err != nil {
		return err
	} else if ok && val == "true" {
		return nil
	}

	dataset := domain.SeedFallbackDataset(f.now())
	writes := map[domain.FallbackCategory]any{
		domain.FallbackOrdersPending:    dataset.Pending,
		domain.FallbackOrdersInProgress: dataset.InProg,
		domain.FallbackOrdersCompleted:  dataset.Done,
		domain.FallbackStock:            dataset.Stock,
	}
	for category, data := range writes {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("seed fallback: %w", err)
		}
		if err := f.store.Set(ctx, fallbackDataPrefix+string(category), string(raw)); err != nil {
			return fmt.Errorf("seed fallback: %w", err)
		}
	}
	if err := f.store.Set(ctx, keyFallbackSeeded, "true"); err != nil {
		return err
	}
	f.log.Info().Int("version", dataset.Version).Msg("fallback dataset seeded")
	return nil
}

func (f *FallbackStore) readOrders(ctx context.Context, category domain.FallbackCategory) ([]domain.Order, error) {
	raw, err := f.Read(ctx, category)
	if err != nil {
		return nil, err
	}
	var orders []domain.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("fallback %s: %w", category, err)
	}
	return orders, nil
}

func (f *FallbackStore) writeOrders(ctx context.Context, category domain.FallbackCategory, orders []domain.Order) error {
	raw, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("fallback %s: %w", category, err)
	}
	return f.Write(ctx, category, raw)
}

func (f *FallbackStore) publish(ctx context.Context, kind domain.SignalKind) {
	if f.bus == nil {
		return
	}
	if err := f.bus.Publish(ctx, domain.Signal{Kind: kind, At: f.now().UTC()}); err != nil {
		f.log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to publish signal")
	}
}
