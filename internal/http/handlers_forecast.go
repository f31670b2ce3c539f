package http

import (
	"net/http"

	applog "finboard/internal/log"
	"finboard/internal/storage"
)

func (s *Server) handleRequestForecast(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.ledger.RequestForecast(r.Context(), profile)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rec == nil {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Forecast queued",
			applog.FieldProfile, profile)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListForecasts(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	recs, err := s.ledger.Forecasts(r.Context(), profile, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if recs == nil {
		recs = []storage.ForecastRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
