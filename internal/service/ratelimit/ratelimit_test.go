package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassLimiterSpacesRequests(t *testing.T) {
	lim := NewClassLimiter(map[string]time.Duration{
		"sheet_read": 30 * time.Millisecond,
	})

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Wait(ctx, "sheet_read"))
	}

	// First call is immediate, the next two are spaced.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestClassLimiterUnknownClassPassesThrough(t *testing.T) {
	lim := NewClassLimiter(map[string]time.Duration{})

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, lim.Wait(context.Background(), "unconfigured"))
	}
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestClassLimiterRespectsContext(t *testing.T) {
	lim := NewClassLimiter(map[string]time.Duration{
		"drive_upload": time.Hour,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, lim.Wait(ctx, "drive_upload"))
	assert.Error(t, lim.Wait(ctx, "drive_upload"))
}

func TestUserLimiterIsPerUserAndAction(t *testing.T) {
	lim := NewUserLimiter(map[string]ActionPolicy{
		"order_start": {Per: time.Hour, Burst: 1},
	})

	assert.True(t, lim.Allow(1, "order_start"))
	assert.False(t, lim.Allow(1, "order_start"))

	// A different user or action class is unaffected.
	assert.True(t, lim.Allow(2, "order_start"))
	assert.True(t, lim.Allow(1, "message"))
}
