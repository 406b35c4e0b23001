package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

func newFallbackFixture() (*FallbackStore, *memStore, *memBus) {
	store := newMemStore()
	bus := &memBus{}
	return NewFallbackStore(store, bus, testLogger()), store, bus
}

func TestActivate_SeedsOnceAndFlagsDurably(t *testing.T) {
	f, store, bus := newFallbackFixture()
	ctx := context.Background()

	if err := f.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if !f.Active(ctx) {
		t.Fatalf("fallback flag not set")
	}
	if bus.count(domain.SignalFallbackEnabled) != 1 {
		t.Fatalf("expected one fallback-enabled signal")
	}

	first, err := f.Read(ctx, domain.FallbackOrdersPending)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	// Re-activating must not regenerate the dataset nor re-signal.
	if err := f.Activate(ctx); err != nil {
		t.Fatalf("second activate failed: %v", err)
	}
	second, err := f.Read(ctx, domain.FallbackOrdersPending)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("seeded dataset changed across activations")
	}
	if bus.count(domain.SignalFallbackEnabled) != 1 {
		t.Fatalf("re-activation must not re-signal")
	}

	// A fresh instance over the same store must reuse the persisted bytes.
	f2 := NewFallbackStore(store, bus, testLogger())
	third, err := f2.Read(ctx, domain.FallbackOrdersPending)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(first, third) {
		t.Fatalf("restart regenerated the seeded dataset")
	}
}

func TestActivate_IssuesStringSubjectPlaceholder(t *testing.T) {
	f, store, _ := newFallbackFixture()
	ctx := context.Background()

	if err := f.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	token, ok, _ := store.Get(ctx, keyAccessToken)
	if !ok || token == "" {
		t.Fatalf("no placeholder token stored")
	}
	check := NewTokenValidator().ValidateFormat(token)
	if !check.Valid() {
		t.Fatalf("placeholder token rejected by validator: %s", check.Verdict)
	}
	if check.Claims.Subject != "local-offline" {
		t.Fatalf("subject = %q", check.Claims.Subject)
	}

	if src, _, _ := store.Get(ctx, keySource); src != string(domain.CredentialLocalPlaceholder) {
		t.Fatalf("source = %q", src)
	}
	if _, ok, _ := store.Get(ctx, keyRefreshToken); ok {
		t.Fatalf("placeholder must not carry a refresh token")
	}
}

func TestIssuePlaceholder_KeepsExistingRole(t *testing.T) {
	f, store, _ := newFallbackFixture()
	ctx := context.Background()

	user, _ := json.Marshal(domain.UserIdentity{Subject: "u1", Role: domain.RoleBarista})
	_ = store.Set(ctx, keyUser, string(user))

	if err := f.IssuePlaceholder(ctx); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	raw, _, _ := store.Get(ctx, keyUser)
	var stored domain.UserIdentity
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	if stored.Role != domain.RoleBarista {
		t.Fatalf("role = %s, want barista preserved", stored.Role)
	}
}

func TestDeactivate_DropsPlaceholderKeepsBackendSession(t *testing.T) {
	f, store, bus := newFallbackFixture()
	ctx := context.Background()

	if err := f.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if err := f.Deactivate(ctx); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if f.Active(ctx) {
		t.Fatalf("fallback still active")
	}
	if _, ok, _ := store.Get(ctx, keyAccessToken); ok {
		t.Fatalf("placeholder credential must be dropped")
	}
	if bus.count(domain.SignalFallbackDisabled) != 1 {
		t.Fatalf("expected one fallback-disabled signal")
	}

	// Dataset survives for the next offline episode.
	if _, ok, _ := store.Get(ctx, keyFallbackSeeded); !ok {
		t.Fatalf("seeded dataset must be kept")
	}

	// A backend-issued session that arrived meanwhile stays untouched.
	_ = f.Activate(ctx)
	_ = store.Set(ctx, keyAccessToken, testToken("u1", time.Now().Add(time.Hour)))
	_ = store.Set(ctx, keySource, string(domain.CredentialBackend))
	if err := f.Deactivate(ctx); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, keyAccessToken); !ok {
		t.Fatalf("backend session must survive deactivation")
	}
}

func TestDeactivate_NoopWhenInactive(t *testing.T) {
	f, _, bus := newFallbackFixture()
	if err := f.Deactivate(context.Background()); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if bus.count(domain.SignalFallbackDisabled) != 0 {
		t.Fatalf("inactive deactivate must not signal")
	}
}

func TestRead_UnknownCategory(t *testing.T) {
	f, _, _ := newFallbackFixture()
	if _, err := f.Read(context.Background(), "espresso_machines"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestCompleteOrder_MovesAcrossCategories(t *testing.T) {
	f, _, _ := newFallbackFixture()
	ctx := context.Background()

	pending, err := f.readOrders(ctx, domain.FallbackOrdersPending)
	if err != nil {
		t.Fatalf("read pending: %v", err)
	}
	if len(pending) == 0 {
		t.Fatalf("seed has no pending orders")
	}
	target := pending[0]
	doneBefore, _ := f.readOrders(ctx, domain.FallbackOrdersCompleted)

	if err := f.CompleteOrder(ctx, target.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	pendingAfter, _ := f.readOrders(ctx, domain.FallbackOrdersPending)
	if len(pendingAfter) != len(pending)-1 {
		t.Fatalf("pending count = %d, want %d", len(pendingAfter), len(pending)-1)
	}
	doneAfter, _ := f.readOrders(ctx, domain.FallbackOrdersCompleted)
	if len(doneAfter) != len(doneBefore)+1 {
		t.Fatalf("completed count = %d, want %d", len(doneAfter), len(doneBefore)+1)
	}
	moved := doneAfter[len(doneAfter)-1]
	if moved.ID != target.ID || moved.Status != domain.OrderCompleted {
		t.Fatalf("moved order = %+v", moved)
	}
}

func TestCompleteOrder_Unknown(t *testing.T) {
	f, _, _ := newFallbackFixture()
	if err := f.CompleteOrder(context.Background(), "no-such-order"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
