package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"matchlink/internal/auth"
	"matchlink/internal/models"
)

// contextKey is a private type for context values to avoid key collisions.
type contextKey string

// UserIDKey is the context key holding the authenticated user's ID.
const UserIDKey contextKey = "userID"

// UsernameKey is the context key holding the authenticated user's username.
const UsernameKey contextKey = "username"

// RoleKey is the context key holding the authenticated user's role.
const RoleKey contextKey = "role"

// ClaimsKey is the context key holding the full validated JWT claims.
const ClaimsKey contextKey = "claims"

// AuthMiddleware validates the bearer JWT and stores the caller's identity
// and role in the request context. Requests without a valid identity are
// rejected with 401 before reaching any handler.
func AuthMiddleware(jwtKey string, blacklist auth.TokenBlacklist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "missing authorization token")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				writeAuthError(w, "invalid authorization header, expected Bearer {token}")
				return
			}

			claims, err := auth.ValidateToken(r.Context(), headerParts[1], jwtKey, blacklist)
			if err != nil {
				writeAuthError(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserIDFromContext returns the authenticated user's ID from the context.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetUsernameFromContext returns the authenticated username from the context.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// GetRoleFromContext returns the authenticated user's role from the context.
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// GetClaimsFromContext returns the full validated JWT claims from the context.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

// IsAdminFromContext reports whether the authenticated caller is an admin.
func IsAdminFromContext(ctx context.Context) bool {
	role, ok := GetRoleFromContext(ctx)
	return ok && role == models.RoleAdmin
}
