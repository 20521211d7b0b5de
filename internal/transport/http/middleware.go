package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"slotbook/internal/token"
)

// TokenValidator is the seam between the HTTP layer and JWT mechanics.
type TokenValidator interface {
	ValidateToken(tokenString string) (*token.Claims, error)
}

type contextKeyUserID struct{}
type contextKeyRole struct{}

// UserID retrieves the authenticated user ID from the context.
func UserID(ctx context.Context) int64 {
	userID, ok := ctx.Value(contextKeyUserID{}).(int64)
	if !ok {
		return 0
	}
	return userID
}

// Role retrieves the authenticated role from the context.
func Role(ctx context.Context) string {
	role, ok := ctx.Value(contextKeyRole{}).(string)
	if !ok {
		return ""
	}
	return role
}

// RequireAuth validates the bearer token and injects user ID and role claims.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token", "error", err)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, contextKeyUserID{}, claims.UserID)
			ctx = context.WithValue(ctx, contextKeyRole{}, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree to one role; must run after RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Role(r.Context()) != role {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
