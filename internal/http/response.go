package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/forecast"
	applog "finboard/internal/log"
	"finboard/internal/state"
	"finboard/internal/storage"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeBadRequest          = "bad_request"
	codeUnknownAction       = "unknown_action"
	codeValidation          = "validation_failed"
	codeNotFound            = "not_found"
	codeInsufficientHistory = "insufficient_history"
	codeRateLimited         = "rate_limited"
	codeUnsupportedMedia    = "unsupported_media_type"
	codeInternal            = "internal"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, state.ErrUnknownAction):
		return http.StatusBadRequest, codeUnknownAction
	case errors.Is(err, state.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity, codeInsufficientHistory
	case core.IsValidationError(err):
		return http.StatusUnprocessableEntity, codeValidation
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes err as JSON. Server errors are logged and their
// detail is not sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.NewFields().
				WithError(err).
				WithErrorType(applog.ErrorTypeInternal).
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
				ToSlice()...)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
