package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const ctxUserKey contextKey = "user"

// AuthedUser is the identity extracted from a validated bearer token.
type AuthedUser struct {
	ID    uuid.UUID
	Roles []string
}

func (u *AuthedUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenValidator checks a bearer token and returns the caller's identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, []string, error)
}

// JWTAuth authenticates requests by validating the Bearer token and putting
// the caller's identity into the request context.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			userID, roles, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey, &AuthedUser{ID: userID, Roles: roles})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromCtx returns the authenticated user or nil.
func UserFromCtx(ctx context.Context) *AuthedUser {
	u, _ := ctx.Value(ctxUserKey).(*AuthedUser)
	return u
}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, u *AuthedUser) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
