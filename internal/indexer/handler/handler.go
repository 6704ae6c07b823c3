// Package handler serves the indexer's admin HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/logger"
)

// Engine is satisfied by indexer.Engine.
type Engine interface {
	Snapshot(ctx context.Context) (*ingestion.SnapshotEvent, error)
	Last() *ingestion.SnapshotEvent
	Len() int
	Pending() int
}

type Handler struct {
	engine   Engine
	announce indexer.AnnounceFunc
	logger   *slog.Logger
}

// New creates a Handler. announce may be nil.
func New(engine Engine, announce indexer.AnnounceFunc) *Handler {
	return &Handler{
		engine:   engine,
		announce: announce,
		logger:   slog.Default().With("component", "indexer-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/snapshot", h.Status)
	mux.HandleFunc("POST /api/v1/snapshot", h.Rebuild)
}

type statusResponse struct {
	Staged  int                      `json:"staged"`
	Pending int                      `json:"pending"`
	Last    *ingestion.SnapshotEvent `json:"last,omitempty"`
}

// Status handles GET /api/v1/snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{
		Staged:  h.engine.Len(),
		Pending: h.engine.Pending(),
		Last:    h.engine.Last(),
	})
}

// Rebuild handles POST /api/v1/snapshot: it writes a snapshot now, even
// with nothing pending, and announces it.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	ev, err := h.engine.Snapshot(ctx)
	if err != nil {
		log.Error("forced rebuild failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "snapshot rebuild failed")
		return
	}
	announced := false
	if h.announce != nil {
		if err := h.announce(ctx, *ev); err != nil {
			log.Warn("snapshot announcement failed", "version", ev.Version, "error", err)
		} else {
			announced = true
		}
	}
	log.Info("forced rebuild", "version", ev.Version, "fingerprint", ev.Fingerprint)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":  ev,
		"announced": announced,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
