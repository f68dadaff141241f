package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/session"
)

// CredentialsFromRequest collects the session cookie and bearer header.
func CredentialsFromRequest(r *http.Request, cookieName string) Credentials {
	var c Credentials
	if cookieName != "" {
		if ck, err := r.Cookie(cookieName); err == nil {
			c.SessionToken = ck.Value
		}
	}
	c.Bearer = session.BearerToken(r.Header.Get("Authorization"))
	return c
}

// Middleware authenticates every request and stores the AuthContext in the
// request context. Failures end the request with a JSON error.
func (g *Gateway) Middleware(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := g.Authenticate(r.Context(), CredentialsFromRequest(r, cookieName))
			if err != nil {
				status, msg := http.StatusInternalServerError, "internal error"
				switch {
				case errors.Is(err, apperr.ErrUnauthorized):
					status, msg = http.StatusUnauthorized, "unauthorized"
					w.Header().Set("WWW-Authenticate", `Bearer realm="recall"`)
				case errors.Is(err, apperr.ErrRateLimited):
					status, msg = http.StatusTooManyRequests, "rate limit exceeded"
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), ac)))
		})
	}
}

// Forget drops per-key state for a revoked credential.
func (g *Gateway) Forget(credentialID string) {
	g.limiter.forget(credentialID)
}
