// Package api exposes the engine's operational HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/curio/internal/adapters/repository"
	"github.com/okian/curio/internal/app"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/ranking"
)

// Dependencies required by HTTP handlers. *app.Service implements it.
type Dependencies interface {
	StatsProvider
	SubmitFeedback(ctx context.Context, event model.FeedbackEvent) (model.FeedbackEvent, error)
	SavePaper(ctx context.Context, paper model.Paper) error
	Summary(ctx context.Context, paperID string) ([]byte, error)
	GetProfile(ctx context.Context, userID string) (model.UserProfile, error)
	SaveProfile(ctx context.Context, profile model.UserProfile) error
	RunRanking(ctx context.Context) ([]ranking.Result, error)
	GenerateDigest(ctx context.Context, userID string) (model.Briefing, error)
	GetBriefing(ctx context.Context, userID string, date time.Time) (model.Briefing, error)
}

// Server wires HTTP routes for the engine.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	feedbackHandler *FeedbackHandler
	papersHandler   *PapersHandler
	profilesHandler *ProfilesHandler
	rankHandler     *RankHandler
	digestHandler   *DigestHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		feedbackHandler: NewFeedbackHandler(deps),
		papersHandler:   NewPapersHandler(deps),
		profilesHandler: NewProfilesHandler(deps),
		rankHandler:     NewRankHandler(deps),
		digestHandler:   NewDigestHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /feedback", MetricsMiddleware(s.feedbackHandler.HandlePostFeedback, "feedback"))
	mux.HandleFunc("POST /papers", MetricsMiddleware(s.papersHandler.HandlePostPaper, "papers"))
	mux.HandleFunc("GET /papers/{paper_id}/summary", MetricsMiddleware(s.papersHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("GET /profiles/{user_id}", MetricsMiddleware(s.profilesHandler.HandleGetProfile, "profiles"))
	mux.HandleFunc("PUT /profiles/{user_id}", MetricsMiddleware(s.profilesHandler.HandlePutProfile, "profiles"))
	mux.HandleFunc("POST /rank", MetricsMiddleware(s.rankHandler.HandleRunRanking, "rank"))
	mux.HandleFunc("POST /digests/{user_id}", MetricsMiddleware(s.digestHandler.HandleGenerateDigest, "digests"))
	mux.HandleFunc("GET /briefings/{user_id}", MetricsMiddleware(s.digestHandler.HandleGetBriefing, "briefings"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrProfileNotFound),
		errors.Is(err, model.ErrPaperNotFound),
		errors.Is(err, repository.ErrBriefingNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrUnknownAction),
		errors.Is(err, app.ErrInvalidFeedback),
		errors.Is(err, repository.ErrInvalidPaper),
		errors.Is(err, repository.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, app.ErrBusy), errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, app.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
