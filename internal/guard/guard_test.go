package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseGuard runs the behaviour every Guard implementation shares.
func exerciseGuard(t *testing.T, g Guard) {
	t.Helper()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "iv-1:u-1", time.Minute)
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "iv-1:u-1", time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	other, err := g.Acquire(ctx, "iv-2:u-1", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := g.Acquire(ctx, "iv-1:u-1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestMemoryGuard(t *testing.T) {
	exerciseGuard(t, NewMemory())
}

func TestMemoryGuardExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewMemory()
	g.clock = func() time.Time { return now }

	stale, err := g.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := g.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	// Releasing the expired lease must not free the new holder's key.
	stale()
	_, err = g.Acquire(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, ErrHeld)
	fresh()
}

func TestMemoryGuardCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
