package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

const (
	DefaultModel    = "claude-3-5-haiku-latest"
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
)

const systemPrompt = `You are a personal finance assistant. You receive three months of data, oldest first, as JSON objects with income, expenses, creditCardSpending and optionally overspendingCategories.
Predict the savings (income minus expenses) for the following month.
Reply with a single JSON object and nothing else: {"forecastedSavings": <number>, "explanation": "<one or two sentences>"}`

var ErrMissingAPIKey = errors.New("forecast API key not set")

// LLMConfig configures LLMForecaster.
type LLMConfig struct {
	APIKey    string
	Model     string
	Endpoint  string
	MaxTokens int
	Timeout   time.Duration
}

// LLMForecaster asks a messages-style language model API for a forecast.
type LLMForecaster struct {
	apiKey     string
	model      string
	endpoint   string
	maxTokens  int
	httpClient *http.Client
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type prediction struct {
	ForecastedSavings *decimal.Decimal `json:"forecastedSavings"`
	Explanation       string           `json:"explanation"`
}

func NewLLMForecaster(cfg LLMConfig) *LLMForecaster {
	f := &LLMForecaster{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		endpoint:   cfg.Endpoint,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if f.model == "" {
		f.model = DefaultModel
	}
	if f.endpoint == "" {
		f.endpoint = DefaultEndpoint
	}
	if f.maxTokens <= 0 {
		f.maxTokens = 300
	}
	if cfg.Timeout <= 0 {
		f.httpClient.Timeout = 30 * time.Second
	}
	return f
}

// Forecast implements Forecaster.
func (f *LLMForecaster) Forecast(ctx context.Context, window []core.MonthTriple) (Result, error) {
	if f.apiKey == "" {
		return Result{}, ErrMissingAPIKey
	}
	if len(window) != WindowSize {
		return Result{}, fmt.Errorf("forecast needs %d months, got %d", WindowSize, len(window))
	}

	data, err := json.Marshal(window)
	if err != nil {
		return Result{}, fmt.Errorf("marshal window: %w", err)
	}

	text, err := f.send(ctx, messageRequest{
		Model:     f.model,
		MaxTokens: f.maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: string(data)}},
	})
	if err != nil {
		return Result{}, err
	}
	return parsePrediction(text)
}

func (f *LLMForecaster) send(ctx context.Context, body messageRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", f.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("forecast API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out messageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	for _, c := range out.Content {
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			return c.Text, nil
		}
	}
	return "", errors.New("empty response from forecast API")
}

// parsePrediction extracts the first JSON object from the model's text.
func parsePrediction(text string) (Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Result{}, fmt.Errorf("no JSON object in reply: %q", text)
	}

	var p prediction
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return Result{}, fmt.Errorf("decode prediction: %w", err)
	}
	if p.ForecastedSavings == nil {
		return Result{}, errors.New("reply has no forecastedSavings")
	}
	savings, err := core.MoneyFromDecimal(*p.ForecastedSavings)
	if err != nil {
		return Result{}, fmt.Errorf("forecastedSavings: %w", err)
	}
	return Result{
		ForecastedSavings: savings,
		Explanation:       strings.TrimSpace(p.Explanation),
		Source:            SourceModel,
	}, nil
}
