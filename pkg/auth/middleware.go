package auth

import (
	"context"
	"net/http"
	"strings"

	"esupchat/pkg/logger"
	"esupchat/pkg/utils"
)

type ctxUserKey struct{}

// RequireSession verifies the caller's session token and injects the
// verified user id into the request context. Tokens are accepted from the
// Authorization header (Bearer) or the `session` cookie.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogRequest(r)
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie("session"); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			logger.Warn("missing_session_token", "path", r.URL.Path, "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		userID, err := VerifySession(token)
		if err != nil {
			logger.Warn("invalid_session_token", "path", r.URL.Path, "error", err)
			utils.JSONError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the verified user id injected by
// RequireSession, or empty when the request is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserKey{}).(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
