package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/model"
)

// TokenVerifier resolves a directory access token to a user id
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// RoleChecker reports whether a directory user holds a role
type RoleChecker interface {
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
}

// AdminOnly admits callers whose directory token is valid and whose user holds the admin role.
func AdminOnly(tokens TokenVerifier, roles RoleChecker, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			isAdmin, err := roles.HasRole(r.Context(), userID, model.RoleAdmin)
			if err != nil {
				log.Error("role lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
				respondWithError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
			if !isAdmin {
				log.Warn("non-admin denied", zap.String("user_id", userID.String()))
				respondWithError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}

			ctx := context.WithValue(r.Context(), adminIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
