package http

import (
	"net/http"

	"finboard/internal/core"
	"finboard/internal/finance"
)

type windowResponse struct {
	Months         []core.MonthTriple `json:"months"`
	MonthsWithData int                `json:"monthsWithData"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	params, err := parseMonthParams(r, s.now(), s.ledger.Location())
	if err != nil {
		respondError(w, r, err)
		return
	}
	ov, err := s.ledger.Summary(r.Context(), profile, params.Year, params.Month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	year, err := parseYear(r, s.now(), s.ledger.Location())
	if err != nil {
		respondError(w, r, err)
		return
	}
	report, err := s.ledger.Report(r.Context(), profile, year)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	months, err := parseMonths(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	window, err := s.ledger.Window(r.Context(), profile, months)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, windowResponse{
		Months:         window,
		MonthsWithData: finance.MonthsWithData(window),
	})
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	profile, err := profileFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	view, err := s.ledger.NetWorth(r.Context(), profile)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
