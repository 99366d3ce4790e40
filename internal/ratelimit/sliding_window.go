// Package ratelimit provides sliding window rate limiting for the chat
// endpoint, keyed by session or client address.
package ratelimit

import (
	"sync"
	"time"
)

// bucket tracks request timestamps within the window for one identifier.
type bucket struct {
	timestamps []time.Time
	lastAccess time.Time
}

// SlidingWindow implements the sliding window rate limiting algorithm.
type SlidingWindow struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	windowDur time.Duration
	limit     int
}

// NewSlidingWindow creates a limiter allowing limit requests per window.
func NewSlidingWindow(window time.Duration, limit int) *SlidingWindow {
	return &SlidingWindow{
		buckets:   make(map[string]*bucket),
		windowDur: window,
		limit:     limit,
	}
}

// Allow reports whether a request from identifier is within the limit.
// When denied, retryAfter is the whole number of seconds until the oldest
// request leaves the window, always at least 1.
func (sw *SlidingWindow) Allow(identifier string) (allowed bool, retryAfter int) {
	now := time.Now()

	sw.mu.Lock()
	defer sw.mu.Unlock()

	b, ok := sw.buckets[identifier]
	if !ok {
		b = &bucket{}
		sw.buckets[identifier] = b
	}
	b.lastAccess = now

	// Drop timestamps outside the window.
	cutoff := now.Add(-sw.windowDur)
	valid := b.timestamps[:0]
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	b.timestamps = valid

	if len(b.timestamps) >= sw.limit {
		oldest := b.timestamps[0]
		retry := int(time.Until(oldest.Add(sw.windowDur)).Seconds())
		if retry <= 0 {
			retry = 1
		}
		return false, retry
	}

	b.timestamps = append(b.timestamps, now)
	return true, 0
}

// PruneIdle removes buckets untouched for at least ttl and returns the count
// removed. Run periodically by the maintenance scheduler.
func (sw *SlidingWindow) PruneIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	sw.mu.Lock()
	defer sw.mu.Unlock()

	pruned := 0
	for id, b := range sw.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(sw.buckets, id)
			pruned++
		}
	}
	return pruned
}
