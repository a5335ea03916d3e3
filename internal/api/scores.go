package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/darescore/dare/internal/scorer"
	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/scoring"
)

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.AggregateProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type scoreRequest struct {
	Weights *scoring.PartialWeights `json:"weights,omitempty"`
	Refresh bool                    `json:"refresh,omitempty"`
}

func (h *Handler) handleCalculateScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	var opts []scorer.CalcOption
	if req.Weights != nil {
		opts = append(opts, scorer.WithWeights(h.scores.GetWeights().Merge(*req.Weights)))
	}
	if req.Refresh {
		opts = append(opts, scorer.WithRefresh())
	}
	h.score(w, r, opts...)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.score(w, r, scorer.WithRefresh())
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request, opts ...scorer.CalcOption) {
	u, err := h.scores.CalculateAndStoreScore(r.Context(), r.PathValue("id"), opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cache.Put(u.Current)
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleCurrentScore(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s, ok := h.cache.Get(id); ok {
		writeJSON(w, http.StatusOK, s)
		return
	}
	s, err := h.scores.CurrentScore(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cache.Put(*s)
	writeJSON(w, http.StatusOK, s)
}

// parseLimit reads the optional limit query parameter; 0 means default.
func parseLimit(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	history, err := h.scores.GetScoreHistory(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	id := r.PathValue("id")
	if _, err := h.store.GetCandidate(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	events, err := h.store.ListNotifications(r.Context(), id, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		events = []notify.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleGetWeights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.scores.GetWeights())
}

func (h *Handler) handlePatchWeights(w http.ResponseWriter, r *http.Request) {
	var req scoring.PartialWeights
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	weights, err := h.scores.SetWeights(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

func (h *Handler) handleRescore(w http.ResponseWriter, r *http.Request) {
	if h.rescorer == nil {
		writeError(w, http.StatusNotImplemented, "rescoring is not configured")
		return
	}
	res, err := h.rescorer.RunOnce(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"rescored": res.Scored,
		"changed":  res.Changed,
		"errors":   res.Failed,
	})
}
