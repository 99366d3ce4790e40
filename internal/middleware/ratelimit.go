package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"grounder/internal/ratelimit"
)

// RateLimit limits requests per client using the sliding window limiter.
// The identifier is the session header when present, otherwise the client
// address, so session-less callers share a per-IP budget.
func RateLimit(limiter *ratelimit.SlidingWindow, sessionHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := r.Header.Get(sessionHeader)
			if identifier == "" {
				identifier = clientAddr(r)
			}

			allowed, retryAfter := limiter.Allow(identifier)
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr strips the port from the remote address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
