package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/platform"
)

// maxManualEntryBytes bounds manual payload uploads.
const maxManualEntryBytes = 1 << 20

// manualUsername is recorded for connections created by a manual entry.
const manualUsername = "manual"

type createCandidateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req createCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := h.store.CreateCandidate(r.Context(), req.Name, req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCandidate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteCandidate(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.cache.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleListConnections(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.GetCandidate(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	conns, err := h.store.ListConnections(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if conns == nil {
		conns = []store.Connection{}
	}
	writeJSON(w, http.StatusOK, conns)
}

type connectRequest struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := platform.Parse(req.Platform)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	conn, err := h.store.UpsertConnection(r.Context(), store.Connection{
		CandidateID: r.PathValue("id"),
		Platform:    p,
		Username:    req.Username,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	p, err := platform.Parse(r.PathValue("platform"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteConnection(r.Context(), r.PathValue("id"), p); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// handlePutManualEntry stores a structured payload submitted by the
// candidate. The platform is connected on first submission.
func (h *Handler) handlePutManualEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	p, err := platform.Parse(r.PathValue("platform"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxManualEntryBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > maxManualEntryBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("manual entry exceeds %d bytes", maxManualEntryBytes))
		return
	}
	if _, err := platform.DecodePayload(p, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetCandidate(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.PutManualEntry(ctx, store.ManualEntry{CandidateID: id, Platform: p, Payload: body}); err != nil {
		h.fail(w, r, err)
		return
	}

	conns, err := h.store.ListConnections(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	connected := slices.ContainsFunc(conns, func(c store.Connection) bool { return c.Platform == p })
	if !connected {
		if _, err := h.store.UpsertConnection(ctx, store.Connection{CandidateID: id, Platform: p, Username: manualUsername}); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "platform": string(p)})
}
