// Package handler lets an operator confirm a verification token with the
// code delivered over the second channel.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"votum/internal/verification/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/httputil"
	"votum/pkg/requestcontext"
)

type Service interface {
	Confirm(ctx context.Context, tokenID id.VerificationTokenID, code string) (*models.Token, error)
	Lookup(ctx context.Context, tokenID id.VerificationTokenID) (*models.Token, error)
}

type Handler struct {
	verification Service
	logger       *slog.Logger
}

func New(verification Service, logger *slog.Logger) *Handler {
	return &Handler{verification: verification, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/verifications/{tokenID}", h.handleGet)
	r.Post("/verifications/{tokenID}/confirm", h.handleConfirm)
}

type ConfirmRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TokenResponse never carries the code hash.
type TokenResponse struct {
	ID         string        `json:"id"`
	BusinessID string        `json:"political_business_id"`
	Action     models.Action `json:"action"`
	Confirmed  bool          `json:"confirmed"`
	ExpiresAt  string        `json:"expires_at"`
}

func toResponse(t *models.Token) TokenResponse {
	return TokenResponse{
		ID:         t.ID.String(),
		BusinessID: t.BusinessID.String(),
		Action:     t.Action,
		Confirmed:  t.Confirmed,
		ExpiresAt:  t.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseVerificationTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.verification.Lookup(r.Context(), tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(token))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := id.ParseVerificationTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	token, err := h.verification.Confirm(ctx, tokenID, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(token))
}
