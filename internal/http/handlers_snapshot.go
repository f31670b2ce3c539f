package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/state"
)

type applyResponse struct {
	Version  int64         `json:"version"`
	Applied  int           `json:"applied"`
	Snapshot core.Snapshot `json:"snapshot"`
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := s.ledger.Snapshot(r.Context(), profile)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(snap.Version))
	writeJSON(w, http.StatusOK, snap)
}

// handleReplaceSnapshot imports a whole snapshot. The version in the body is
// ignored; the stored version is bumped instead.
func (s *Server) handleReplaceSnapshot(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var snap core.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		respondError(w, r, badRequest("decode snapshot: %v", err))
		return
	}

	saved, err := s.ledger.Replace(r.Context(), profile, snap)
	if err != nil {
		respondError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Snapshot imported",
		applog.NewFields().WithSnapshot(profile, saved.Version).ToSlice()...)

	w.Header().Set("ETag", etag(saved.Version))
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleApplyActions(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	actions, err := decodeActions(body)
	if err != nil {
		respondError(w, r, err)
		return
	}

	snap, err := s.ledger.Apply(r.Context(), profile, actions...)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(snap.Version))
	writeJSON(w, http.StatusOK, applyResponse{
		Version:  snap.Version,
		Applied:  len(actions),
		Snapshot: snap,
	})
}

func (s *Server) handleListActionKinds(w http.ResponseWriter, r *http.Request) {
	kinds := state.Kinds()
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	writeJSON(w, http.StatusOK, map[string]any{"types": kinds})
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}
