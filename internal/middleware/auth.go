// Package middleware provides HTTP middleware for the grounder gateway.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// AuthError represents an authentication error response body.
// Messages are generic to avoid information leakage.
type AuthError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

var (
	errMissingToken = AuthError{Code: http.StatusUnauthorized, Message: "Authentication required"}
	errInvalidToken = AuthError{Code: http.StatusForbidden, Message: "Access denied"}
)

// AdminAuth guards admin endpoints with a static bearer token. The token is
// accepted from "Authorization: Bearer <token>" or the "X-Admin-Token"
// header. Missing credentials yield 401, wrong credentials 403.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := extractToken(r)
			if presented == "" {
				writeAuthError(w, errMissingToken)
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeAuthError(w, errInvalidToken)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		return ""
	}
	return r.Header.Get("X-Admin-Token")
}

func writeAuthError(w http.ResponseWriter, authErr AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.Code)
	json.NewEncoder(w).Encode(authErr)
}
