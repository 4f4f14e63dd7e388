package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/banking/compliance-engine/internal/pkg/logger"
)

// ErrInProgress is returned when another worker currently holds the key.
var ErrInProgress = errors.New("event is already being processed")

// Store persists idempotency claims. Claim must be atomic: exactly one
// caller wins a given key.
type Store interface {
	// Claim attempts to take the key. Returns false when the key is already
	// held or completed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// MarkComplete records that processing finished so replays are skipped
	// for the retention period.
	MarkComplete(ctx context.Context, key string, retention time.Duration) error
	// Release frees the key after a failed attempt so a retry can claim it.
	Release(ctx context.Context, key string) error
}

// Guard enforces exactly-once evaluation per event. Callers bracket work
// with Start and then either Complete or Fail.
type Guard struct {
	store     Store
	claimTTL  time.Duration
	retention time.Duration
	log       *logger.Logger
}

// NewGuard creates an idempotency guard over the given store.
func NewGuard(store Store, claimTTL, retention time.Duration, log *logger.Logger) *Guard {
	return &Guard{
		store:     store,
		claimTTL:  claimTTL,
		retention: retention,
		log:       log.Named("idempotency"),
	}
}

// Start claims the key. The second return is false when the event is a
// duplicate and must be skipped.
func (g *Guard) Start(ctx context.Context, key string) (bool, error) {
	ok, err := g.store.Claim(ctx, key, g.claimTTL)
	if err != nil {
		return false, err
	}
	if !ok {
		g.log.DuplicateEvent(key)
	}
	return ok, nil
}

// Complete marks the key as processed. The claim is retained so replays of
// the same event are recognized as duplicates.
func (g *Guard) Complete(ctx context.Context, key string) error {
	return g.store.MarkComplete(ctx, key, g.retention)
}

// Fail releases the key so the event can be retried.
func (g *Guard) Fail(ctx context.Context, key string) error {
	return g.store.Release(ctx, key)
}
