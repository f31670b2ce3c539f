package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
	"finboard/internal/forecast"
	"finboard/internal/state"
	"finboard/internal/storage"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{badRequest("nope"), http.StatusBadRequest, codeBadRequest},
		{fmt.Errorf("x: %w", state.ErrUnknownAction), http.StatusBadRequest, codeUnknownAction},
		{fmt.Errorf("x: %w", state.ErrNotFound), http.StatusNotFound, codeNotFound},
		{storage.ErrNotFound, http.StatusNotFound, codeNotFound},
		{forecast.ErrInsufficientHistory, http.StatusUnprocessableEntity, codeInsufficientHistory},
		{fmt.Errorf("income: %w", core.ErrEmptySource), http.StatusUnprocessableEntity, codeValidation},
		{errors.New("disk on fire"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	rec := httptest.NewRecorder()

	respondError(rec, req, errors.New("open /var/lib/finboard.db: permission denied"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "finboard.db")
	assert.JSONEq(t, `{"error":"Internal Server Error","code":"internal"}`, rec.Body.String())
}

func TestRespondErrorKeepsClientDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()

	respondError(rec, req, badRequest("month %d out of range 1-12", 13))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "month 13 out of range")
}
