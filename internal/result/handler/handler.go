package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"votum/internal/result/models"
	"votum/internal/result/service"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	"votum/pkg/platform/httputil"
	"votum/pkg/requestcontext"
)

// Service is the counting circle result API the handler drives.
type Service interface {
	Get(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	History(ctx context.Context, key service.Key) ([]models.Recorded, error)
	StartSubmission(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	DefineEntry(ctx context.Context, key service.Key, def models.EntryDefinition) (*models.CountingCircleResult, error)
	EnterCountOfVoters(ctx context.Context, key service.Key, ballots models.BallotCounts) (*models.CountingCircleResult, error)
	EnterCandidateResults(ctx context.Context, key service.Key, entry models.CandidateEntry) (*models.CountingCircleResult, error)
	EnterBallotGroupResults(ctx context.Context, key service.Key, groups []models.BallotGroupCount) (*models.CountingCircleResult, error)
	ImportElectronicResults(ctx context.Context, key service.Key, entry models.ElectronicEntry) (*models.CountingCircleResult, error)
	CreateBallotBundle(ctx context.Context, key service.Key, bundleID id.BallotBundleID, number int) (*models.CountingCircleResult, error)
	SubmitBallotBundle(ctx context.Context, key service.Key, bundleID id.BallotBundleID, content models.BundleContent) (*models.CountingCircleResult, error)
	ReviewBallotBundle(ctx context.Context, key service.Key, bundleID id.BallotBundleID) (*models.CountingCircleResult, error)
	RejectBallotBundle(ctx context.Context, key service.Key, bundleID id.BallotBundleID) (*models.CountingCircleResult, error)
	DeleteBallotBundle(ctx context.Context, key service.Key, bundleID id.BallotBundleID) (*models.CountingCircleResult, error)
	FinishSubmission(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	FlagForCorrection(ctx context.Context, key service.Key, comment string) (*models.CountingCircleResult, error)
	FinishCorrection(ctx context.Context, key service.Key, comment string) (*models.CountingCircleResult, error)
	AuditTentatively(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	Plausibilise(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	ResetToAuditedTentatively(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	ResetToSubmissionFinished(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	Reset(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	Publish(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
	Unpublish(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)
}

// Handler exposes counting circle result commands over HTTP.
type Handler struct {
	results Service
	logger  *slog.Logger
}

func New(results Service, logger *slog.Logger) *Handler {
	return &Handler{results: results, logger: logger}
}

type commentRequest struct {
	Comment string `json:"comment" validate:"max=1000"`
}

type createBundleRequest struct {
	BundleID string `json:"bundle_id,omitempty"`
	Number   int    `json:"number" validate:"gte=1"`
}

type ballotGroupRequest struct {
	Groups []models.BallotGroupCount `json:"groups" validate:"dive"`
}

type eventResponse struct {
	Version    int64  `json:"version"`
	Type       string `json:"type"`
	OccurredAt string `json:"occurred_at"`
}

type commandFunc func(ctx context.Context, key service.Key) (*models.CountingCircleResult, error)

// Register mounts the result routes under
// /businesses/{businessID}/circles/{circleID}/result.
func (h *Handler) Register(r chi.Router) {
	r.Route("/businesses/{businessID}/circles/{circleID}/result", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Get("/events", h.handleHistory)

		r.Post("/start", h.simple(h.results.StartSubmission))
		r.Post("/entry", h.handleDefineEntry)
		r.Post("/count-of-voters", h.handleCountOfVoters)
		r.Post("/candidate-results", h.handleCandidateResults)
		r.Post("/ballot-group-results", h.handleBallotGroupResults)
		r.Post("/electronic-results", h.handleElectronicResults)

		r.Post("/bundles", h.handleCreateBundle)
		r.Post("/bundles/{bundleID}/submit", h.handleSubmitBundle)
		r.Post("/bundles/{bundleID}/review", h.bundle(h.results.ReviewBallotBundle))
		r.Post("/bundles/{bundleID}/reject", h.bundle(h.results.RejectBallotBundle))
		r.Delete("/bundles/{bundleID}", h.bundle(h.results.DeleteBallotBundle))

		r.Post("/finish-submission", h.simple(h.results.FinishSubmission))
		r.Post("/flag-for-correction", h.withComment(h.results.FlagForCorrection))
		r.Post("/finish-correction", h.withComment(h.results.FinishCorrection))
		r.Post("/audit-tentatively", h.simple(h.results.AuditTentatively))
		r.Post("/plausibilise", h.simple(h.results.Plausibilise))
		r.Post("/reset-to-audited-tentatively", h.simple(h.results.ResetToAuditedTentatively))
		r.Post("/reset-to-submission-finished", h.simple(h.results.ResetToSubmissionFinished))
		r.Post("/reset", h.simple(h.results.Reset))
		r.Post("/publish", h.simple(h.results.Publish))
		r.Post("/unpublish", h.simple(h.results.Unpublish))
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	result, err := h.results.Get(r.Context(), key)
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	recs, err := h.results.History(r.Context(), key)
	if err != nil {
		h.fail(w, r, "history", err)
		return
	}
	out := make([]eventResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, eventResponse{Version: rec.Version, Type: rec.Event.EventType(), OccurredAt: rec.OccurredAt.Format(time.RFC3339)})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDefineEntry(w http.ResponseWriter, r *http.Request) {
	handleBody(h, w, r, "define_entry", func(ctx context.Context, key service.Key, req *models.EntryDefinition) (*models.CountingCircleResult, error) {
		return h.results.DefineEntry(ctx, key, *req)
	})
}

func (h *Handler) handleCountOfVoters(w http.ResponseWriter, r *http.Request) {
	handleBody(h, w, r, "enter_count_of_voters", func(ctx context.Context, key service.Key, req *models.BallotCounts) (*models.CountingCircleResult, error) {
		return h.results.EnterCountOfVoters(ctx, key, *req)
	})
}

func (h *Handler) handleCandidateResults(w http.ResponseWriter, r *http.Request) {
	handleBody(h, w, r, "enter_candidate_results", func(ctx context.Context, key service.Key, req *models.CandidateEntry) (*models.CountingCircleResult, error) {
		return h.results.EnterCandidateResults(ctx, key, *req)
	})
}

func (h *Handler) handleBallotGroupResults(w http.ResponseWriter, r *http.Request) {
	handleBody(h, w, r, "enter_ballot_group_results", func(ctx context.Context, key service.Key, req *ballotGroupRequest) (*models.CountingCircleResult, error) {
		return h.results.EnterBallotGroupResults(ctx, key, req.Groups)
	})
}

func (h *Handler) handleElectronicResults(w http.ResponseWriter, r *http.Request) {
	handleBody(h, w, r, "import_electronic_results", func(ctx context.Context, key service.Key, req *models.ElectronicEntry) (*models.CountingCircleResult, error) {
		return h.results.ImportElectronicResults(ctx, key, *req)
	})
}

func (h *Handler) handleCreateBundle(w http.ResponseWriter, r *http.Request) {
	handleBody(h, w, r, "create_ballot_bundle", func(ctx context.Context, key service.Key, req *createBundleRequest) (*models.CountingCircleResult, error) {
		bundleID := id.BallotBundleID(uuid.New())
		if req.BundleID != "" {
			parsed, err := id.ParseBallotBundleID(req.BundleID)
			if err != nil {
				return nil, err
			}
			bundleID = parsed
		}
		return h.results.CreateBallotBundle(ctx, key, bundleID, req.Number)
	})
}

func (h *Handler) handleSubmitBundle(w http.ResponseWriter, r *http.Request) {
	bundleID, err := id.ParseBallotBundleID(chi.URLParam(r, "bundleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	handleBody(h, w, r, "submit_ballot_bundle", func(ctx context.Context, key service.Key, req *models.BundleContent) (*models.CountingCircleResult, error) {
		return h.results.SubmitBallotBundle(ctx, key, bundleID, *req)
	})
}

func (h *Handler) simple(fn commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := h.key(w, r)
		if !ok {
			return
		}
		result, err := fn(r.Context(), key)
		h.respond(w, r, result, err)
	}
}

func (h *Handler) withComment(fn func(ctx context.Context, key service.Key, comment string) (*models.CountingCircleResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handleBody(h, w, r, "comment_command", func(ctx context.Context, key service.Key, req *commentRequest) (*models.CountingCircleResult, error) {
			return fn(ctx, key, req.Comment)
		})
	}
}

func (h *Handler) bundle(fn func(ctx context.Context, key service.Key, bundleID id.BallotBundleID) (*models.CountingCircleResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := h.key(w, r)
		if !ok {
			return
		}
		bundleID, err := id.ParseBallotBundleID(chi.URLParam(r, "bundleID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		result, err := fn(r.Context(), key, bundleID)
		h.respond(w, r, result, err)
	}
}

func handleBody[T any](h *Handler, w http.ResponseWriter, r *http.Request, command string, fn func(ctx context.Context, key service.Key, req *T) (*models.CountingCircleResult, error)) {
	ctx := r.Context()
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[T](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := fn(ctx, key, req)
	if err != nil {
		h.fail(w, r, command, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, result *models.CountingCircleResult, err error) {
	if err != nil {
		h.fail(w, r, "command", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, command string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "result command failed",
			"request_id", requestcontext.RequestID(ctx),
			"command", command,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) key(w http.ResponseWriter, r *http.Request) (service.Key, bool) {
	businessID, err := id.ParsePoliticalBusinessID(chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return service.Key{}, false
	}
	circleID, err := id.ParseCountingCircleID(chi.URLParam(r, "circleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return service.Key{}, false
	}
	return service.Key{BusinessID: businessID, CircleID: circleID}, true
}
