package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/auth"
	"github.com/yusf-1/zagrosexpress-main/internal/middleware"
)

// CodeService is what the verification endpoints need from auth.CodeService
type CodeService interface {
	SendCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone, code string) error
	DevMode() bool
}

// OTCHandler serves phone verification by one-time code
type OTCHandler struct {
	codes        CodeService
	sendLimiter  middleware.Limiter
	checkLimiter middleware.Limiter
	log          *zap.Logger
}

// NewOTCHandler creates a new OTC handler. The limiters are keyed by normalized phone number.
func NewOTCHandler(codes CodeService, sendLimiter, checkLimiter middleware.Limiter, log *zap.Logger) *OTCHandler {
	return &OTCHandler{
		codes:        codes,
		sendLimiter:  sendLimiter,
		checkLimiter: checkLimiter,
		log:          log,
	}
}

type sendCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type sendCodeResponse struct {
	Message string `json:"message"`
	DevCode string `json:"dev_code,omitempty"`
}

type verifyCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type mismatchResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	AttemptsRemaining int    `json:"attempts_remaining"`
}

// HandleSend handles POST /otc/send
func (h *OTCHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_phone", "phone_number is required")
		return
	}
	if !h.sendLimiter.Allow(r.Context(), middleware.GetPhoneKey(phone)) {
		respondWithError(w, http.StatusTooManyRequests, "rate_limited", "too many codes requested for this number")
		return
	}

	err = h.codes.SendCode(r.Context(), phone)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrDeliveryFailed):
		respondWithError(w, http.StatusBadGateway, "delivery_failed", "could not deliver the verification code")
		return
	default:
		h.log.Error("send code failed", zap.String("phone", auth.MaskPhone(phone)), zap.Error(err))
		respondInternal(w)
		return
	}

	resp := sendCodeResponse{Message: "code_sent"}
	if h.codes.DevMode() {
		resp.DevCode = auth.DevCode
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleVerify handles POST /otc/verify
func (h *OTCHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_phone", "phone_number is required")
		return
	}
	if req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}
	if !h.checkLimiter.Allow(r.Context(), middleware.GetPhoneKey(phone)) {
		respondWithError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts for this number")
		return
	}

	err = h.codes.VerifyCode(r.Context(), phone, req.Code)
	var mismatch *auth.MismatchError
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
	case errors.Is(err, auth.ErrNoSuchCode):
		respondWithError(w, http.StatusBadRequest, "no_code", "no pending code for this number, request a new one")
	case errors.Is(err, auth.ErrCodeExpired):
		respondWithError(w, http.StatusBadRequest, "code_expired", "the code has expired, request a new one")
	case errors.Is(err, auth.ErrCodeLocked):
		respondWithError(w, http.StatusBadRequest, "too_many_attempts", "too many wrong attempts, request a new code")
	case errors.As(err, &mismatch):
		respondJSON(w, http.StatusBadRequest, mismatchResponse{
			Error:             "invalid_code",
			Message:           "the code is incorrect",
			AttemptsRemaining: mismatch.Remaining,
		})
	default:
		h.log.Error("verify code failed", zap.String("phone", auth.MaskPhone(phone)), zap.Error(err))
		respondInternal(w)
	}
}
