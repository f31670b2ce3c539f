package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		Component: component,
	})
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentLedger)

	l.Info("hello", FieldProfile, "default")

	assert.Contains(t, buf.String(), "component=ledger")
	assert.Contains(t, buf.String(), "profile=default")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentApp).WithComponent(ComponentWorker)

	l.Warn("careful")

	assert.Equal(t, ComponentWorker, l.Component())
	assert.Equal(t, 1, strings.Count(buf.String(), "component="), buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithSnapshot("home", 4).
		WithAction("income.add").
		WithError(errors.New("boom")).
		WithError(nil)

	assert.Equal(t, "home", f[FieldProfile])
	assert.Equal(t, int64(4), f[FieldVersion])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), 2*len(f))
}

func TestMiddlewareAndFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf, ComponentHTTP)

	var seen *Logger
	h := Middleware(base.With(FieldRequestID, "req-1"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			seen.Info("inside")
		}),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen, "handler did not run")
	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Equal(t, "unknown", FromContext(context.Background()).Component(), "expected fallback logger")
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentHTTP))
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusNotFound, 3, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), r, http.StatusInternalServerError, 3, "10.0.0.1")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "level=ERROR")
}
