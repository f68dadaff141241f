// Package api implements the recall REST API using chi.
package api

import (
	"net/http"

	"github.com/starford/recall/internal/gateway"
)

// RequireOp returns middleware that rejects callers whose AuthContext does
// not permit op. It must run behind the gateway middleware.
func RequireOp(op gateway.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, _ := gateway.FromContext(r.Context())
			if err := gateway.RequirePermission(ac, op); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects API-key callers. Key management is session-only.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, _ := gateway.FromContext(r.Context())
		if err := gateway.RequireSession(ac); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
