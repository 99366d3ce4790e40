package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"grounder/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuthMissingToken(t *testing.T) {
	handler := AdminAuth("secret")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/knowledge", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())
}

func TestAdminAuthWrongToken(t *testing.T) {
	handler := AdminAuth("secret")(okHandler())

	req := httptest.NewRequest("GET", "/knowledge", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())
}

func TestAdminAuthBearerToken(t *testing.T) {
	handler := AdminAuth("secret")(okHandler())

	req := httptest.NewRequest("GET", "/knowledge", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthHeaderToken(t *testing.T) {
	handler := AdminAuth("secret")(okHandler())

	req := httptest.NewRequest("GET", "/knowledge", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthMalformedAuthorization(t *testing.T) {
	handler := AdminAuth("secret")(okHandler())

	req := httptest.NewRequest("GET", "/knowledge", nil)
	req.Header.Set("Authorization", "Basic secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(time.Minute, 2)
	handler := RateLimit(limiter, "X-Session-ID")(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/chat", nil)
		req.Header.Set("X-Session-ID", "alice")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("X-Session-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different session is unaffected.
	req = httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("X-Session-ID", "bob")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
