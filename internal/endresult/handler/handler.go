// Package handler exposes end results, lot decisions and the two-phase
// finalization over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"votum/internal/endresult/lotdecision"
	"votum/internal/endresult/models"
	verification "votum/internal/verification/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	"votum/pkg/platform/httputil"
	"votum/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error)
	Recompute(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error)
	GetAvailableLotDecisions(ctx context.Context, businessID id.PoliticalBusinessID) (lotdecision.Available, error)
	UpdateLotDecisions(ctx context.Context, businessID id.PoliticalBusinessID, update models.LotDecisionsUpdated) (*models.EndResult, error)
	UpdateSecondaryLotDecisions(ctx context.Context, businessID id.PoliticalBusinessID, update models.SecondaryLotDecisionsUpdated) (*models.EndResult, error)
	PrepareFinalize(ctx context.Context, businessID id.PoliticalBusinessID) (*verification.Token, error)
	Finalize(ctx context.Context, businessID id.PoliticalBusinessID, tokenID *id.VerificationTokenID) (*models.EndResult, error)
	PrepareRevertFinalization(ctx context.Context, businessID id.PoliticalBusinessID) (*verification.Token, error)
	RevertFinalization(ctx context.Context, businessID id.PoliticalBusinessID, tokenID *id.VerificationTokenID) (*models.EndResult, error)
}

type Handler struct {
	endResults Service
	logger     *slog.Logger
}

func New(endResults Service, logger *slog.Logger) *Handler {
	return &Handler{endResults: endResults, logger: logger}
}

type lotDecisionsRequest struct {
	Candidates []candidateDecision `json:"candidates" validate:"dive"`
	Lists      []listDecision      `json:"lists" validate:"dive"`
}

type candidateDecision struct {
	CandidateID id.CandidateID `json:"candidate_id"`
	Rank        int            `json:"rank" validate:"gte=1"`
}

type listDecision struct {
	ListID id.ListID `json:"list_id"`
	Rank   int       `json:"rank" validate:"gte=1"`
}

type secondaryLotDecisionsRequest struct {
	Decisions []secondaryDecision `json:"decisions" validate:"required,min=1,dive"`
}

type secondaryDecision struct {
	SecondaryElectionID id.SecondaryElectionID `json:"secondary_election_id"`
	CandidateID         id.CandidateID         `json:"candidate_id"`
	Rank                int                    `json:"rank" validate:"gte=1"`
}

// finalizeRequest names the confirmed verification token. Owners may omit it.
type finalizeRequest struct {
	VerificationTokenID string `json:"verification_token_id,omitempty" validate:"omitempty,uuid"`
}

type preparedResponse struct {
	VerificationTokenID string              `json:"verification_token_id"`
	Action              verification.Action `json:"action"`
	ExpiresAt           string              `json:"expires_at"`
}

// Register mounts the routes under /businesses/{businessID}/end-result.
func (h *Handler) Register(r chi.Router) {
	r.Route("/businesses/{businessID}/end-result", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/recompute", h.handleRecompute)
		r.Get("/lot-decisions", h.handleAvailableLotDecisions)
		r.Post("/lot-decisions", h.handleUpdateLotDecisions)
		r.Post("/secondary-lot-decisions", h.handleUpdateSecondaryLotDecisions)
		r.Post("/prepare-finalize", h.prepare(h.endResults.PrepareFinalize))
		r.Post("/finalize", h.finalize("finalize", h.endResults.Finalize))
		r.Post("/prepare-revert-finalization", h.prepare(h.endResults.PrepareRevertFinalization))
		r.Post("/revert-finalization", h.finalize("revert_finalization", h.endResults.RevertFinalization))
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	er, err := h.endResults.Get(r.Context(), businessID)
	h.respond(w, r, "get", er, err)
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	er, err := h.endResults.Recompute(r.Context(), businessID)
	h.respond(w, r, "recompute", er, err)
}

func (h *Handler) handleAvailableLotDecisions(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	available, err := h.endResults.GetAvailableLotDecisions(r.Context(), businessID)
	if err != nil {
		h.fail(w, r, "available_lot_decisions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, available)
}

func (h *Handler) handleUpdateLotDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[lotDecisionsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	update := models.LotDecisionsUpdated{}
	for _, d := range req.Candidates {
		update.Candidates = append(update.Candidates, models.CandidateLotDecision{CandidateID: d.CandidateID, Rank: d.Rank})
	}
	for _, d := range req.Lists {
		update.Lists = append(update.Lists, models.ListLotDecision{ListID: d.ListID, Rank: d.Rank})
	}
	er, err := h.endResults.UpdateLotDecisions(ctx, businessID, update)
	h.respond(w, r, "update_lot_decisions", er, err)
}

func (h *Handler) handleUpdateSecondaryLotDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[secondaryLotDecisionsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	update := models.SecondaryLotDecisionsUpdated{}
	for _, d := range req.Decisions {
		update.Decisions = append(update.Decisions, models.SecondaryLotDecision{
			SecondaryElectionID: d.SecondaryElectionID,
			CandidateID:         d.CandidateID,
			Rank:                d.Rank,
		})
	}
	er, err := h.endResults.UpdateSecondaryLotDecisions(ctx, businessID, update)
	h.respond(w, r, "update_secondary_lot_decisions", er, err)
}

func (h *Handler) prepare(fn func(ctx context.Context, businessID id.PoliticalBusinessID) (*verification.Token, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, ok := h.businessID(w, r)
		if !ok {
			return
		}
		token, err := fn(r.Context(), businessID)
		if err != nil {
			h.fail(w, r, "prepare", err)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, preparedResponse{
			VerificationTokenID: token.ID.String(),
			Action:              token.Action,
			ExpiresAt:           token.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

func (h *Handler) finalize(command string, fn func(ctx context.Context, businessID id.PoliticalBusinessID, tokenID *id.VerificationTokenID) (*models.EndResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		businessID, ok := h.businessID(w, r)
		if !ok {
			return
		}
		req, ok := httputil.DecodeAndPrepare[finalizeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
		var tokenID *id.VerificationTokenID
		if req.VerificationTokenID != "" {
			parsed, err := id.ParseVerificationTokenID(req.VerificationTokenID)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			tokenID = &parsed
		}
		er, err := fn(ctx, businessID, tokenID)
		h.respond(w, r, command, er, err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, command string, er *models.EndResult, err error) {
	if err != nil {
		h.fail(w, r, command, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, er)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, command string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "end result command failed",
			"request_id", requestcontext.RequestID(ctx),
			"command", command,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) businessID(w http.ResponseWriter, r *http.Request) (id.PoliticalBusinessID, bool) {
	businessID, err := id.ParsePoliticalBusinessID(chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PoliticalBusinessID{}, false
	}
	return businessID, true
}
