// Package api implements the dare REST API over the score service, the
// aggregator and the store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/darescore/dare/internal/scorer"
	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/internal/worker"
	"github.com/darescore/dare/pkg/calculator"
	"github.com/darescore/dare/pkg/logger"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
	"github.com/darescore/dare/pkg/telemetry"
)

// Profiles assembles cached digital profiles.
type Profiles interface {
	AggregateProfile(ctx context.Context, candidateID string) (*platform.DigitalProfile, error)
}

// Scores is the score service surface used by the API. *scorer.Service
// satisfies it.
type Scores interface {
	CalculateAndStoreScore(ctx context.Context, candidateID string, opts ...scorer.CalcOption) (scorer.Update, error)
	GetScoreHistory(ctx context.Context, candidateID string, limit int) ([]scoring.CompositeScore, error)
	CurrentScore(ctx context.Context, candidateID string) (*scoring.CompositeScore, error)
	GetWeights() scoring.Weights
	SetWeights(p scoring.PartialWeights) (scoring.Weights, error)
}

// Rescorer runs one rescoring pass over every candidate.
type Rescorer interface {
	RunOnce(ctx context.Context) (worker.Result, error)
}

// Handler is the top-level API handler.
type Handler struct {
	store    store.Store
	profiles Profiles
	scores   Scores
	rescorer Rescorer
	cache    *ScoreCache
	log      logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithScoreCache sets the current-score cache.
func WithScoreCache(c *ScoreCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithRescorer enables the admin rescore endpoint.
func WithRescorer(r Rescorer) Option {
	return func(h *Handler) { h.rescorer = r }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler creates a new API handler.
func NewHandler(st store.Store, profiles Profiles, scores Scores, opts ...Option) *Handler {
	h := &Handler{
		store:    st,
		profiles: profiles,
		scores:   scores,
		log:      logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cache == nil {
		h.cache = NewScoreCache(0)
	}
	return h
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, Instrument(pattern, fn))
	}

	route("POST /api/candidates", h.handleCreateCandidate)
	route("GET /api/candidates/{id}", h.handleGetCandidate)
	route("DELETE /api/candidates/{id}", h.handleDeleteCandidate)
	route("GET /api/candidates/{id}/connections", h.handleListConnections)
	route("POST /api/candidates/{id}/connections", h.handleConnect)
	route("DELETE /api/candidates/{id}/connections/{platform}", h.handleDisconnect)
	route("PUT /api/candidates/{id}/manual/{platform}", h.handlePutManualEntry)

	route("GET /api/candidates/{id}/profile", h.handleProfile)
	route("POST /api/candidates/{id}/refresh", h.handleRefresh)
	route("POST /api/candidates/{id}/score", h.handleCalculateScore)
	route("GET /api/candidates/{id}/score", h.handleCurrentScore)
	route("GET /api/candidates/{id}/history", h.handleHistory)
	route("GET /api/candidates/{id}/notifications", h.handleNotifications)

	route("GET /api/weights", h.handleGetWeights)
	route("PATCH /api/weights", h.handlePatchWeights)
	route("POST /api/admin/rescore", h.handleRescore)

	route("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", telemetry.Handler())
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, scoring.ErrInvalidWeights),
		errors.Is(err, platform.ErrUnknownPlatform),
		errors.Is(err, calculator.ErrPayloadMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status, logging server errors.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err),
		)
	}
	writeError(w, status, err.Error())
}
