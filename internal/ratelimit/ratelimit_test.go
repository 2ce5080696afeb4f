package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitBlocksUntilWindowAdmits(t *testing.T) {
	l := New(2, time.Second)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	require.Less(t, time.Since(start), 500*time.Millisecond)

	require.NoError(t, l.Wait(ctx))
	require.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestWaitHonorsContext(t *testing.T) {
	l := New(1, time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestRemaining(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(3, time.Minute)
	l.now = func() time.Time { return now }

	require.Equal(t, 3, l.Remaining())
	require.NoError(t, l.Wait(context.Background()))
	require.NoError(t, l.Wait(context.Background()))
	require.Equal(t, 1, l.Remaining())

	now = now.Add(time.Minute)
	require.Equal(t, 3, l.Remaining())
}

func TestDisabled(t *testing.T) {
	l := New(0, time.Second)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	var nilLimiter *Limiter
	require.NoError(t, nilLimiter.Wait(context.Background()))
}
