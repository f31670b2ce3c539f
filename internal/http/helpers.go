package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// requestIDFrom keeps a caller's X-Request-ID when it is a short plain
// token so a request can be followed across services. Otherwise a new ID
// is issued.
func requestIDFrom(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if id != "" && len(id) <= maxRequestIDLen && isToken(id) {
		return id
	}
	return "req_" + uuid.NewString()
}

// isToken reports whether s only holds ASCII letters, digits, '-' and '_'.
func isToken(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
