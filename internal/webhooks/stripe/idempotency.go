package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// GuardScope namespaces processed Stripe event ids in Redis.
const GuardScope = "stripe_webhook"

const (
	claimInFlight = "processing"
	claimDone     = "done"

	// defaultClaimTTL bounds how long a crashed handler can shadow redeliveries.
	defaultClaimTTL = 5 * time.Minute
)

type guardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// IdempotencyGuard claims Stripe event ids in two steps. A claim is short lived
// while the event is being applied. Complete swaps it for a marker that lasts
// for the full retention so later redeliveries are acknowledged without work.
type IdempotencyGuard struct {
	store    guardStore
	ttl      time.Duration
	claimTTL time.Duration
	scope    string
}

func NewIdempotencyGuard(store guardStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if scope == "" {
		scope = GuardScope
	}
	claimTTL := defaultClaimTTL
	if ttl < claimTTL {
		claimTTL = ttl
	}
	return &IdempotencyGuard{store: store, ttl: ttl, claimTTL: claimTTL, scope: scope}, nil
}

// CheckAndMark claims the event id and reports true when it was already claimed
// or completed by another delivery.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, claimInFlight, g.claimTTL)
	if err != nil {
		return false, fmt.Errorf("claim webhook event: %w", err)
	}
	return !claimed, nil
}

// Complete records the event as handled for the full retention window.
func (g *IdempotencyGuard) Complete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, key, claimDone, g.ttl); err != nil {
		return fmt.Errorf("complete webhook event: %w", err)
	}
	return nil
}

// Release drops the claim so Stripe's next retry is processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
