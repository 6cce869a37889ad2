package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/auth"
	"github.com/yusf-1/zagrosexpress-main/internal/middleware"
)

// SessionService is what the wholesale endpoints need from auth.SessionService
type SessionService interface {
	CreateSession(ctx context.Context, deviceID, password string) (auth.IssuedSession, error)
	Logout(ctx context.Context, token string) error
}

// WholesaleHandler serves the catalog's password gate
type WholesaleHandler struct {
	sessions SessionService
	log      *zap.Logger
}

// NewWholesaleHandler creates a new wholesale handler
func NewWholesaleHandler(sessions SessionService, log *zap.Logger) *WholesaleHandler {
	return &WholesaleHandler{sessions: sessions, log: log}
}

type createSessionRequest struct {
	DeviceID string `json:"device_id"`
	Password string `json:"password"`
}

type createSessionResponse struct {
	SessionToken string    `json:"session_token"`
	OwnerLabel   string    `json:"owner_label"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type sessionStatusResponse struct {
	Valid      bool      `json:"valid"`
	OwnerLabel string    `json:"owner_label"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// HandleCreateSession handles POST /wholesale/sessions
func (h *WholesaleHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "device_id is required")
		return
	}

	issued, err := h.sessions.CreateSession(r.Context(), req.DeviceID, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredential), errors.Is(err, auth.ErrInactive):
		// Deactivated passwords look exactly like unknown ones.
		respondWithError(w, http.StatusUnauthorized, "wrong_password", "wrong password")
		return
	case errors.Is(err, auth.ErrBoundToOtherDevice):
		respondWithError(w, http.StatusForbidden, "device_conflict", "this password is already in use on another device")
		return
	case errors.Is(err, auth.ErrDeviceRequired):
		respondWithError(w, http.StatusBadRequest, "invalid_request", "device_id is required")
		return
	default:
		h.log.Error("create session failed", zap.Error(err))
		respondInternal(w)
		return
	}

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionToken: issued.Token,
		OwnerLabel:   issued.OwnerLabel,
		ExpiresAt:    issued.ExpiresAt,
	})
}

// HandleSessionStatus handles GET /wholesale/session. It runs behind middleware.RequireSession.
func (h *WholesaleHandler) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "invalid_session", "session is invalid or expired")
		return
	}
	respondJSON(w, http.StatusOK, sessionStatusResponse{
		Valid:      true,
		OwnerLabel: session.OwnerLabel,
		ExpiresAt:  session.ExpiresAt,
	})
}

// HandleLogout handles DELETE /wholesale/session
func (h *WholesaleHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "session token is required")
		return
	}
	if err := h.sessions.Logout(r.Context(), token); err != nil {
		h.log.Error("logout failed", zap.Error(err))
		respondInternal(w)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged_out"})
}
