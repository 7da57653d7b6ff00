// Package handler exposes the contest configuration read and write API used
// by the configuration owner and by operators.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"votum/internal/contest/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/httputil"
	"votum/pkg/requestcontext"
)

type Service interface {
	SaveContest(ctx context.Context, contest *models.Contest) error
	SaveBusiness(ctx context.Context, business *models.PoliticalBusiness) error
	Contest(ctx context.Context, contestID id.ContestID) (*models.Contest, error)
	Business(ctx context.Context, businessID id.PoliticalBusinessID) (*models.PoliticalBusiness, error)
	ListBusinesses(ctx context.Context) ([]models.PoliticalBusiness, error)
}

type Handler struct {
	contests Service
	logger   *slog.Logger
}

func New(contests Service, logger *slog.Logger) *Handler {
	return &Handler{contests: contests, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Put("/contests/{contestID}", h.handlePutContest)
	r.Get("/contests/{contestID}", h.handleGetContest)
	r.Get("/businesses", h.handleListBusinesses)
	r.Put("/businesses/{businessID}", h.handlePutBusiness)
	r.Get("/businesses/{businessID}", h.handleGetBusiness)
}

func (h *Handler) handlePutContest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contestID, err := id.ParseContestID(chi.URLParam(r, "contestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.Contest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	req.ID = contestID
	if err := h.contests.SaveContest(ctx, req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleGetContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := id.ParseContestID(chi.URLParam(r, "contestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	contest, err := h.contests.Contest(r.Context(), contestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contest)
}

func (h *Handler) handlePutBusiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	businessID, err := id.ParsePoliticalBusinessID(chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.PoliticalBusiness](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	req.ID = businessID
	if err := h.contests.SaveBusiness(ctx, req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleGetBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, err := id.ParsePoliticalBusinessID(chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	business, err := h.contests.Business(r.Context(), businessID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, business)
}

func (h *Handler) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	businesses, err := h.contests.ListBusinesses(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, businesses)
}
