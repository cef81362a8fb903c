package auth

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
)

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// ErrorWriter writes an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// OptionalAuth attaches the token subject to the request context when an
// Authorization header is present. Requests without the header pass through
// anonymously; a present but invalid token is rejected with 401.
func OptionalAuth(v *Validator, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || v == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.ValidateToken(header)
			if err != nil {
				msg := "Invalid token"
				switch {
				case errors.Is(err, ErrExpiredToken):
					msg = "Token has expired"
				case errors.Is(err, ErrInvalidSignature):
					msg = "Invalid token signature"
				}
				writeError(w, r, apperrors.NewUnauthorizedError(msg).WithCause(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID())))
		})
	}
}
