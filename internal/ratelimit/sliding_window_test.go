package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinLimit(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 3)

	for i := 0; i < 3; i++ {
		allowed, _ := sw.Allow("client")
		assert.True(t, allowed)
	}

	allowed, retryAfter := sw.Allow("client")
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, retryAfter, 1)
}

func TestIdentifiersAreIndependent(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 1)

	allowed, _ := sw.Allow("a")
	assert.True(t, allowed)
	allowed, _ = sw.Allow("b")
	assert.True(t, allowed)
	allowed, _ = sw.Allow("a")
	assert.False(t, allowed)
}

func TestWindowSlides(t *testing.T) {
	sw := NewSlidingWindow(50*time.Millisecond, 1)

	allowed, _ := sw.Allow("client")
	assert.True(t, allowed)
	allowed, _ = sw.Allow("client")
	assert.False(t, allowed)

	time.Sleep(60 * time.Millisecond)

	allowed, _ = sw.Allow("client")
	assert.True(t, allowed)
}

func TestPruneIdle(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 5)

	sw.Allow("stale")
	sw.buckets["stale"].lastAccess = time.Now().Add(-time.Hour)
	sw.Allow("fresh")

	assert.Equal(t, 1, sw.PruneIdle(30*time.Minute))
	assert.Len(t, sw.buckets, 1)
}
