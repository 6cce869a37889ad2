package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/auth"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
)

// SessionValidator resolves a session token
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (model.Session, error)
}

// RequireSession rejects requests without a live wholesale session token and attaches the
// session to the request context.
func RequireSession(sessions SessionValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "invalid_session", "missing session token")
				return
			}

			session, err := sessions.ValidateSession(r.Context(), token)
			if errors.Is(err, auth.ErrInvalidSession) {
				respondWithError(w, http.StatusUnauthorized, "invalid_session", "session is invalid or expired")
				return
			}
			if err != nil {
				log.Error("session validation failed", zap.Error(err))
				respondWithError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
