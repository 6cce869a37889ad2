package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/auth"
	"github.com/yusf-1/zagrosexpress-main/internal/middleware"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

// CredentialService is the back-office surface of auth.CredentialService
type CredentialService interface {
	CreateCredential(ctx context.Context, ownerLabel string, isShared bool) (model.Credential, error)
	ListCredentials(ctx context.Context) ([]model.Credential, error)
	ResetCredential(ctx context.Context, id uuid.UUID) error
	ActivateCredential(ctx context.Context, id uuid.UUID) error
	DeactivateCredential(ctx context.Context, id uuid.UUID) error
	DeleteCredential(ctx context.Context, id uuid.UUID) error
}

// SessionRevoker deletes every session issued under a credential
type SessionRevoker interface {
	RevokeCredentialSessions(ctx context.Context, credentialID uuid.UUID) (int64, error)
}

// AdminHandler serves credential administration. Routes run behind middleware.AdminOnly.
type AdminHandler struct {
	credentials CredentialService
	sessions    SessionRevoker
	log         *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(credentials CredentialService, sessions SessionRevoker, log *zap.Logger) *AdminHandler {
	return &AdminHandler{credentials: credentials, sessions: sessions, log: log}
}

type createCredentialRequest struct {
	OwnerLabel string `json:"owner_label"`
	IsShared   bool   `json:"is_shared"`
}

type credentialResponse struct {
	ID          string     `json:"id"`
	Password    string     `json:"password"`
	OwnerLabel  string     `json:"owner_label"`
	IsShared    bool       `json:"is_shared"`
	IsActive    bool       `json:"is_active"`
	BoundDevice *string    `json:"bound_device"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toCredentialResponse(c model.Credential) credentialResponse {
	return credentialResponse{
		ID:          c.ID.String(),
		Password:    c.Password,
		OwnerLabel:  c.OwnerLabel,
		IsShared:    c.IsShared,
		IsActive:    c.IsActive,
		BoundDevice: c.BoundDevice,
		LastUsedAt:  c.LastUsedAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// HandleList handles GET /admin/credentials
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentials.ListCredentials(r.Context())
	if err != nil {
		h.log.Error("list credentials failed", zap.Error(err))
		respondInternal(w)
		return
	}
	out := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, toCredentialResponse(c))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"credentials": out})
}

// HandleCreate handles POST /admin/credentials
func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	cred, err := h.credentials.CreateCredential(r.Context(), req.OwnerLabel, req.IsShared)
	switch {
	case err == nil:
		h.log.Info("admin created credential",
			adminField(r),
			zap.String("credential_id", cred.ID.String()),
		)
		respondJSON(w, http.StatusCreated, toCredentialResponse(cred))
	case errors.Is(err, auth.ErrLabelRequired):
		respondWithError(w, http.StatusBadRequest, "owner_label_required", "owner_label is required for exclusive passwords")
	case errors.Is(err, repo.ErrDuplicatePassword):
		respondWithError(w, http.StatusConflict, "duplicate_password", "could not generate a unique password, try again")
	default:
		h.log.Error("create credential failed", zap.Error(err))
		respondInternal(w)
	}
}

// HandleReset handles POST /admin/credentials/{id}/reset
func (h *AdminHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "reset", h.credentials.ResetCredential)
}

// HandleActivate handles POST /admin/credentials/{id}/activate
func (h *AdminHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "activate", h.credentials.ActivateCredential)
}

// HandleDeactivate handles POST /admin/credentials/{id}/deactivate
func (h *AdminHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "deactivate", h.credentials.DeactivateCredential)
}

// HandleDelete handles DELETE /admin/credentials/{id}
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "delete", h.credentials.DeleteCredential)
}

func (h *AdminHandler) mutate(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, uuid.UUID) error) {
	id, ok := credentialID(w, r)
	if !ok {
		return
	}
	err := fn(r.Context(), id)
	switch {
	case err == nil:
		h.log.Info("admin credential "+action,
			adminField(r),
			zap.String("credential_id", id.String()),
		)
		respondJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": action})
	case errors.Is(err, repo.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", "credential not found")
	default:
		h.log.Error("credential "+action+" failed", zap.String("credential_id", id.String()), zap.Error(err))
		respondInternal(w)
	}
}

// HandleRevokeSessions handles DELETE /admin/credentials/{id}/sessions
func (h *AdminHandler) HandleRevokeSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := credentialID(w, r)
	if !ok {
		return
	}
	n, err := h.sessions.RevokeCredentialSessions(r.Context(), id)
	if err != nil {
		h.log.Error("revoke sessions failed", zap.String("credential_id", id.String()), zap.Error(err))
		respondInternal(w)
		return
	}
	h.log.Info("admin revoked sessions",
		adminField(r),
		zap.String("credential_id", id.String()),
		zap.Int64("count", n),
	)
	respondJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

// adminField tags back-office audit lines with the acting directory user
func adminField(r *http.Request) zap.Field {
	if id, ok := middleware.GetAdminID(r.Context()); ok {
		return zap.String("admin_id", id.String())
	}
	return zap.Skip()
}

const exportSheet = "Credentials"

var exportHeader = []interface{}{
	"Password", "Owner", "Shared", "Active", "Bound device", "Last used", "Created",
}

// HandleExport handles GET /admin/credentials/export.xlsx
func (h *AdminHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentials.ListCredentials(r.Context())
	if err != nil {
		h.log.Error("list credentials for export failed", zap.Error(err))
		respondInternal(w)
		return
	}

	f, err := buildCredentialSheet(creds)
	if err != nil {
		h.log.Error("build credential sheet failed", zap.Error(err))
		respondInternal(w)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.log.Error("write credential sheet failed", zap.Error(err))
		respondInternal(w)
		return
	}

	filename := fmt.Sprintf("credentials-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func buildCredentialSheet(creds []model.Credential) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, c := range creds {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		row := []interface{}{
			c.Password,
			c.OwnerLabel,
			yesNo(c.IsShared),
			yesNo(c.IsActive),
			derefOr(c.BoundDevice, ""),
			formatTime(c.LastUsedAt),
			c.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func credentialID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "invalid credential id")
		return uuid.Nil, false
	}
	return id, true
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
