package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBudget(t *testing.T) {
	now := time.Now()
	lim := NewMemoryLimiter(10*time.Second, 3)
	lim.nowFn = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := lim.Admit(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := lim.Admit(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestMemoryLimiterWindowSlides(t *testing.T) {
	now := time.Now()
	lim := NewMemoryLimiter(10*time.Second, 2)
	lim.nowFn = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := lim.Admit(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := lim.Admit(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Once the earliest hit ages out a new request is admitted again.
	now = now.Add(11 * time.Second)
	res, err = lim.Admit(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterIsolatesIdentities(t *testing.T) {
	lim := NewMemoryLimiter(10*time.Second, 1)
	ctx := context.Background()

	res, err := lim.Admit(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = lim.Admit(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = lim.Admit(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
