package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/compliance-engine/internal/pkg/logger"
)

func newTestGuard() *Guard {
	return NewGuard(NewMemoryStore(), time.Minute, time.Hour, logger.Nop())
}

func TestStartClaimsOnce(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	first, err := g.Start(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := g.Start(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, second, "a second start on the same key is a duplicate")
}

func TestCompleteKeepsDuplicatesOut(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	ok, err := g.Start(ctx, "evt-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, g.Complete(ctx, "evt-2"))

	replay, err := g.Start(ctx, "evt-2")
	require.NoError(t, err)
	assert.False(t, replay, "a completed event stays claimed for the retention period")
}

func TestFailAllowsRetry(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	ok, err := g.Start(ctx, "evt-3")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, g.Fail(ctx, "evt-3"))

	retry, err := g.Start(ctx, "evt-3")
	require.NoError(t, err)
	assert.True(t, retry, "a failed attempt releases the key for retry")
}

func TestDistinctKeysIndependent(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	a, err := g.Start(ctx, "evt-a")
	require.NoError(t, err)
	b, err := g.Start(ctx, "evt-b")
	require.NoError(t, err)
	assert.True(t, a)
	assert.True(t, b)
}

func TestExpiredClaimCanBeRetaken(t *testing.T) {
	g := NewGuard(NewMemoryStore(), time.Millisecond, time.Hour, logger.Nop())
	ctx := context.Background()

	ok, err := g.Start(ctx, "evt-4")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	again, err := g.Start(ctx, "evt-4")
	require.NoError(t, err)
	assert.True(t, again, "a stalled claim expires and can be retaken")
}
