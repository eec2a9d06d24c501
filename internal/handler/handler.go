package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"ibtopo/internal/codec"
	"ibtopo/internal/repository"
)

// SnapshotReader is the read side of the snapshot store
type SnapshotReader interface {
	ListSnapshots(ctx context.Context, subnet string) ([]repository.Snapshot, error)
	LatestSnapshot(ctx context.Context, subnet string) (*repository.Snapshot, error)
	LoadDocument(ctx context.Context, snapshotID string) (*codec.Document, error)
	PathsThroughLink(ctx context.Context, snapshotID string, linkID int) ([][2]string, error)
}

// SnapshotHandler serves stored topology snapshots
type SnapshotHandler struct {
	repo SnapshotReader
	log  *slog.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(repo SnapshotReader, log *slog.Logger) *SnapshotHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SnapshotHandler{repo: repo, log: log}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// LinkPair is one source/destination pair routed over a link
type LinkPair struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// Register adds the snapshot routes to mux
func (h *SnapshotHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/snapshots", h.ListSnapshots)
	mux.HandleFunc("GET /api/snapshots/{id}", h.GetSnapshot)
	mux.HandleFunc("GET /api/snapshots/{id}/links/{link}/paths", h.PathsThroughLink)
	mux.HandleFunc("GET /api/subnets/{subnet}/latest", h.GetLatest)
}

// ListSnapshots returns snapshot summaries, newest first. The optional
// subnet query parameter narrows the list.
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.repo.ListSnapshots(r.Context(), r.URL.Query().Get("subnet"))
	if err != nil {
		h.log.Error("failed to list snapshots", "error", err)
		h.writeError(w, "Failed to list snapshots", err.Error(), http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []repository.Snapshot{}
	}
	h.writeJSON(w, snaps, http.StatusOK)
}

// GetSnapshot returns the full topology document of a snapshot
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.repo.LoadDocument(r.Context(), id)
	if err != nil {
		h.log.Error("failed to load snapshot", "snapshot", id, "error", err)
		h.writeError(w, "Failed to load snapshot", err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		h.writeError(w, "Not found", "snapshot "+id+" not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, doc, http.StatusOK)
}

// GetLatest returns the newest snapshot summary of a subnet
func (h *SnapshotHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	subnet := r.PathValue("subnet")
	snap, err := h.repo.LatestSnapshot(r.Context(), subnet)
	if err != nil {
		h.log.Error("failed to get latest snapshot", "subnet", subnet, "error", err)
		h.writeError(w, "Failed to get latest snapshot", err.Error(), http.StatusInternalServerError)
		return
	}
	if snap == nil {
		h.writeError(w, "Not found", "no snapshot for subnet "+subnet, http.StatusNotFound)
		return
	}
	h.writeJSON(w, snap, http.StatusOK)
}

// PathsThroughLink lists the host pairs whose path crosses a link
func (h *SnapshotHandler) PathsThroughLink(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	link, err := strconv.Atoi(r.PathValue("link"))
	if err != nil || link < 0 {
		h.writeError(w, "Invalid link ID", r.PathValue("link"), http.StatusBadRequest)
		return
	}

	pairs, err := h.repo.PathsThroughLink(r.Context(), id, link)
	if err != nil {
		h.log.Error("failed to query paths", "snapshot", id, "link", link, "error", err)
		h.writeError(w, "Failed to query paths", err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]LinkPair, len(pairs))
	for i, p := range pairs {
		out[i] = LinkPair{Source: p[0], Dest: p[1]}
	}
	h.writeJSON(w, out, http.StatusOK)
}

func (h *SnapshotHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to encode JSON", "error", err)
	}
}

func (h *SnapshotHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
