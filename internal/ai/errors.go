package ai

import "errors"

// Sentinel errors for upstream failures. Every error a provider or embedder
// returns for a failed call wraps one of these; callers distinguish them
// with errors.Is.
var (
	// ErrRateLimited indicates the upstream reported quota or rate exhaustion.
	ErrRateLimited = errors.New("ai: upstream rate limited")

	// ErrUnavailable indicates the upstream is unreachable, misconfigured,
	// or returned a non-retryable error.
	ErrUnavailable = errors.New("ai: upstream unavailable")
)
