package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AdmitsUpToMaxImmediately(t *testing.T) {
	l := NewLimiter(3, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 3, l.Pending())
}

func TestLimiter_DelaysOverflowUntilWindowSlides(t *testing.T) {
	window := 300 * time.Millisecond
	l := NewLimiter(2, window)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx)) // third must wait for the first to expire
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, window-10*time.Millisecond)
	assert.Less(t, elapsed, window+500*time.Millisecond)
}

func TestLimiter_WaitHonorsCancellation(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_ResetClearsWindow(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	require.NoError(t, l.Wait(context.Background()))
	require.Equal(t, 1, l.Pending())

	l.Reset()
	assert.Equal(t, 0, l.Pending())

	// Slot is immediately available again.
	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiter_PruneDropsExpiredStamps(t *testing.T) {
	l := NewLimiter(5, 50*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	require.Eventually(t, func() bool {
		return l.Pending() == 0
	}, time.Second, 10*time.Millisecond)
}
