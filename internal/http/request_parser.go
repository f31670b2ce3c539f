package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finboard/internal/state"
	"finboard/internal/storage"
)

const (
	profileHeader   = "X-Profile"
	maxProfileLen   = 64
	maxBodyBytes    = 1 << 20
	defaultMonths   = 3
	maxMonths       = 36
	defaultListSize = 20
	maxListSize     = 100
)

// errBadRequest marks client input errors so they map to 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// profileFrom returns the X-Profile header or the default profile. Profile
// names are limited to letters, digits, '-' and '_'.
func profileFrom(r *http.Request) (string, error) {
	p := strings.TrimSpace(r.Header.Get(profileHeader))
	if p == "" {
		return storage.DefaultProfile, nil
	}
	if len(p) > maxProfileLen {
		return "", badRequest("profile longer than %d characters", maxProfileLen)
	}
	if !isToken(p) {
		return "", badRequest("invalid profile %q", p)
	}
	return p, nil
}

// parseMonthParams reads year and month, defaulting to the month of now in
// loc. Present but malformed values are rejected.
func parseMonthParams(r *http.Request, now time.Time, loc *time.Location) (MonthParams, error) {
	lt := now.In(loc)
	params := MonthParams{Year: lt.Year(), Month: int(lt.Month())}

	year, err := intParam(r, "year", params.Year)
	if err != nil {
		return MonthParams{}, err
	}
	month, err := intParam(r, "month", params.Month)
	if err != nil {
		return MonthParams{}, err
	}
	if month < 1 || month > 12 {
		return MonthParams{}, badRequest("month %d out of range 1-12", month)
	}
	if year < 1900 || year > 9999 {
		return MonthParams{}, badRequest("year %d out of range", year)
	}
	params.Year, params.Month = year, month
	return params, nil
}

func parseYear(r *http.Request, now time.Time, loc *time.Location) (int, error) {
	year, err := intParam(r, "year", now.In(loc).Year())
	if err != nil {
		return 0, err
	}
	if year < 1900 || year > 9999 {
		return 0, badRequest("year %d out of range", year)
	}
	return year, nil
}

func parseMonths(r *http.Request) (int, error) {
	n, err := intParam(r, "months", defaultMonths)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > maxMonths {
		return 0, badRequest("months must be between 1 and %d", maxMonths)
	}
	return n, nil
}

// parseLimit clamps limit to maxListSize.
func parseLimit(r *http.Request) (int, error) {
	n, err := intParam(r, "limit", defaultListSize)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, badRequest("limit must be positive")
	}
	if n > maxListSize {
		n = maxListSize
	}
	return n, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, v)
	}
	return n, nil
}

// readBody reads at most maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest("body exceeds %d bytes", maxBodyBytes)
		}
		return nil, badRequest("read body: %v", err)
	}
	return body, nil
}

// decodeActions accepts a single envelope or an array of envelopes.
func decodeActions(body []byte) ([]state.Action, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, badRequest("empty body")
	}

	var envs []state.Envelope
	if body[0] == '[' {
		if err := json.Unmarshal(body, &envs); err != nil {
			return nil, badRequest("decode actions: %v", err)
		}
	} else {
		var env state.Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, badRequest("decode action: %v", err)
		}
		envs = append(envs, env)
	}
	if len(envs) == 0 {
		return nil, badRequest("no actions")
	}

	actions := make([]state.Action, 0, len(envs))
	for i, env := range envs {
		a, err := env.Action()
		if err != nil {
			if errors.Is(err, state.ErrUnknownAction) {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
			return nil, badRequest("action %d: %v", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}
