package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vasapolrittideah/glucosense-api/shared/response"
)

type contextKey struct{}

var userIDKey = contextKey{}

// SessionVerifier resolves a session token to a user ID.
type SessionVerifier interface {
	Verify(token string) (string, error)
}

// RequireSession rejects requests without a valid bearer session token and
// stores the authenticated user ID in the request context.
func RequireSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				response.Error(w, response.Unauthorized, "No token provided")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				response.Error(w, response.Unauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func bearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("missing bearer token")
	}

	return token, nil
}
