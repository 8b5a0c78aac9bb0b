package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/courseworks/fulfillment-backend/pkg/redis"
)

// DuplicateGuard is the Redis fast path in front of the durable claim table.
// Keys are written only after an event's processing record commits as done,
// so a hit always corresponds to durable state. The claim table stays
// authoritative when Redis is empty or unavailable.
type DuplicateGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewDuplicateGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*DuplicateGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &DuplicateGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// Seen reports whether the event id was already marked done. A cache miss is
// not authoritative; callers fall through to the claim table.
func (g *DuplicateGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	_, err := g.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get idempotency key: %w", err)
	}
	return true, nil
}

// MarkDone records the event id after its processing record has committed.
func (g *DuplicateGuard) MarkDone(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	if _, err := g.store.SetNX(ctx, key, "1", g.ttl); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
