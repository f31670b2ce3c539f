package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func window() []core.MonthTriple {
	return []core.MonthTriple{
		{Month: "2025-01", Income: core.Units(3000), Expenses: core.Units(2000)},
		{Month: "2025-02", Income: core.Units(3000), Expenses: core.Units(1500)},
		{Month: "2025-03", Income: core.Units(3000), Expenses: core.Units(1000), OverspendingCategories: []string{"Dining"}},
	}
}

func replyServer(t *testing.T, status int, text string, seen *messageRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
			"model":   "test",
		})
	}))
}

func TestLLMForecaster_ParsesReply(t *testing.T) {
	var seen messageRequest
	srv := replyServer(t, http.StatusOK, "Sure!\n{\"forecastedSavings\": 1750.255, \"explanation\": \"Expenses are trending down.\"}", &seen)
	defer srv.Close()

	f := NewLLMForecaster(LLMConfig{APIKey: "secret", Endpoint: srv.URL})
	res, err := f.Forecast(context.Background(), window())
	require.NoError(t, err)

	assert.Equal(t, core.Cents(175026), res.ForecastedSavings)
	assert.Equal(t, "Expenses are trending down.", res.Explanation)
	assert.Equal(t, DefaultModel, seen.Model)
	require.Len(t, seen.Messages, 1)
	assert.Contains(t, seen.Messages[0].Content, `"overspendingCategories":["Dining"]`)
	assert.Contains(t, seen.Messages[0].Content, `"income":3000`)
}

func TestLLMForecaster_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewLLMForecaster(LLMConfig{}).Forecast(context.Background(), window())
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("wrong window size", func(t *testing.T) {
		_, err := NewLLMForecaster(LLMConfig{APIKey: "secret"}).Forecast(context.Background(), window()[:2])
		assert.Error(t, err)
	})

	t.Run("bad status", func(t *testing.T) {
		srv := replyServer(t, http.StatusTooManyRequests, "slow down", nil)
		defer srv.Close()
		_, err := NewLLMForecaster(LLMConfig{APIKey: "secret", Endpoint: srv.URL}).Forecast(context.Background(), window())
		assert.ErrorContains(t, err, "429")
	})

	t.Run("no json", func(t *testing.T) {
		srv := replyServer(t, http.StatusOK, "I cannot help with that.", nil)
		defer srv.Close()
		_, err := NewLLMForecaster(LLMConfig{APIKey: "secret", Endpoint: srv.URL}).Forecast(context.Background(), window())
		assert.Error(t, err)
	})
}

func TestParsePrediction_MissingField(t *testing.T) {
	_, err := parsePrediction(`{"explanation": "no number"}`)
	assert.Error(t, err)
}

func TestParsePrediction_OutOfRange(t *testing.T) {
	_, err := parsePrediction(`{"forecastedSavings": 1e20, "explanation": "too much"}`)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}
