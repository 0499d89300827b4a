// limiter_test.go - Tests for login throttling against miniredis

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewLoginLimiter(rdb, Config{MaxAttempts: max, Cooldown: time.Minute}), mr
}

func TestLimiterBlocksAfterMaxFailures(t *testing.T) {
	l, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, "a@example.com", "10.0.0.1"))
		require.NoError(t, l.Fail(ctx, "a@example.com", "10.0.0.1"))
	}
	assert.ErrorIs(t, l.Check(ctx, "a@example.com", "10.0.0.1"), ErrRateLimited)
	assert.ErrorIs(t, l.Check(ctx, "A@Example.com ", ""), ErrRateLimited, "email key is normalised")
	assert.ErrorIs(t, l.Check(ctx, "other@example.com", "10.0.0.1"), ErrRateLimited, "ip is limited too")
	assert.NoError(t, l.Check(ctx, "other@example.com", "10.0.0.2"))
}

func TestLimiterWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, 1)
	ctx := context.Background()

	require.NoError(t, l.Fail(ctx, "a@example.com", ""))
	assert.ErrorIs(t, l.Check(ctx, "a@example.com", ""), ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, l.Check(ctx, "a@example.com", ""))
}

func TestLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	require.NoError(t, l.Fail(ctx, "a@example.com", ""))
	require.NoError(t, l.Fail(ctx, "a@example.com", ""))
	require.ErrorIs(t, l.Check(ctx, "a@example.com", ""), ErrRateLimited)

	require.NoError(t, l.Reset(ctx, "a@example.com"))
	assert.NoError(t, l.Check(ctx, "a@example.com", ""))
}

func TestNilLimiterNeverLimits(t *testing.T) {
	var l *LoginLimiter
	ctx := context.Background()
	assert.NoError(t, l.Fail(ctx, "a@example.com", "1.1.1.1"))
	assert.NoError(t, l.Check(ctx, "a@example.com", "1.1.1.1"))
	assert.NoError(t, l.Reset(ctx, "a@example.com"))
}

func TestLimiterRedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, 2)
	mr.Close()

	assert.ErrorIs(t, l.Check(context.Background(), "a@example.com", ""), ErrRedisUnavailable)
}
