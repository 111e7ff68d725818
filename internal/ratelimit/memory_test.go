package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedClock lets tests move time forward deterministically.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(policy Policy) (*MemoryLimiter, *fixedClock) {
	clock := &fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(policy)
	l.now = func() time.Time { return clock.now }
	return l, clock
}

func TestMemoryLimiterDeniesOverMax(t *testing.T) {
	policy := Policy{Name: "test", Max: 5, Window: 15 * time.Minute}
	l, _ := newTestLimiter(policy)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Check(ctx, "1.2.3.4")
		assert.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 4-i, res.Remaining)
	}

	// The (max+1)th request within the window is denied.
	res, err := l.Check(ctx, "1.2.3.4")
	assert.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Positive(t, res.RetryAfter(l.now()))
}

func TestMemoryLimiterResetsAfterWindow(t *testing.T) {
	policy := Policy{Name: "test", Max: 2, Window: time.Minute}
	l, clock := newTestLimiter(policy)
	ctx := context.Background()

	l.Check(ctx, "k")
	l.Check(ctx, "k")
	res, _ := l.Check(ctx, "k")
	assert.False(t, res.Allowed)

	clock.advance(time.Minute + time.Second)

	// First request after resetAt is allowed and the counter restarts at 1.
	res, err := l.Check(ctx, "k")
	assert.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, policy.Max-1, res.Remaining)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	policy := Policy{Name: "test", Max: 1, Window: time.Minute}
	l, _ := newTestLimiter(policy)
	ctx := context.Background()

	res, _ := l.Check(ctx, "a")
	assert.True(t, res.Allowed)
	res, _ = l.Check(ctx, "a")
	assert.False(t, res.Allowed)

	res, _ = l.Check(ctx, "b")
	assert.True(t, res.Allowed, "a different key has its own budget")
}

func TestMemoryLimiterSweepDropsStaleEntries(t *testing.T) {
	policy := Policy{Name: "test", Max: 3, Window: time.Minute}
	l, clock := newTestLimiter(policy)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		l.Check(ctx, string(rune('a'+i%26))+string(rune('0'+i%10)))
	}

	clock.advance(sweepInterval + time.Minute)
	l.Check(ctx, "fresh")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.entries, 1, "expired counters are swept to bound memory")
}

func TestResultRetryAfter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	denied := Result{Allowed: false, ResetAt: now.Add(30 * time.Second)}
	assert.Equal(t, 30*time.Second, denied.RetryAfter(now))

	allowed := Result{Allowed: true, ResetAt: now.Add(30 * time.Second)}
	assert.Equal(t, time.Duration(0), allowed.RetryAfter(now))
}
