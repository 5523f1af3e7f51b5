package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"example.com/minitweet/internal/apperr"
)

type contextKey string

const UserCtxKey = contextKey("user_id")

// Verifier turns a bearer token into a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the verified
// user id in the request context.
func JWTAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, msg := authenticate(v, r.Header.Get("Authorization"))
			if msg != "" {
				unauthorized(w, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalJWTAuth stores the user id when the request carries a valid bearer token and
// otherwise serves the request anonymously.
func OptionalJWTAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, msg := authenticate(v, r.Header.Get("Authorization")); msg == "" {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate returns the verified user id, or the client-facing reason it has none.
func authenticate(v Verifier, authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing Authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid Authorization header"
	}

	userID, err := v.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, apperr.ErrTokenExpired) {
			return "", "token expired"
		}
		return "", "invalid token"
	}
	return userID, ""
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserCtxKey, userID)
}

// Extracting user_id in handler
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserCtxKey).(string)
	return id, ok && id != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
