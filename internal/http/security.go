package http

import (
	"mime"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

const maxQueryLen = 512

// securityMetrics counts requests turned away before reaching a handler.
type securityMetrics struct {
	rateLimitHits atomic.Int64
	rejected      atomic.Int64
	flagged       atomic.Int64
}

// SecurityStats is a point-in-time copy of the server's counters.
type SecurityStats struct {
	RateLimitHits int64 `json:"rateLimitHits"`
	Rejected      int64 `json:"rejected"`
	Flagged       int64 `json:"flagged"`
}

func (m *securityMetrics) stats() SecurityStats {
	return SecurityStats{
		RateLimitHits: m.rateLimitHits.Load(),
		Rejected:      m.rejected.Load(),
		Flagged:       m.flagged.Load(),
	}
}

// rejection is the response a request gets when it fails screening.
type rejection struct {
	status int
	code   string
	reason string
}

// screenRequest checks the parts of a request every API route relies on:
// the profile header, the body's media type and the query size. A nil
// rejection lets the request through.
func screenRequest(r *http.Request) *rejection {
	if _, err := profileFrom(r); err != nil {
		return &rejection{http.StatusBadRequest, codeBadRequest, err.Error()}
	}
	if len(r.URL.RawQuery) > maxQueryLen {
		return &rejection{http.StatusRequestURITooLong, codeBadRequest, "query string too long"}
	}
	if hasBody(r) && !isJSON(r.Header.Get("Content-Type")) {
		return &rejection{http.StatusUnsupportedMediaType, codeUnsupportedMedia, "request body must be application/json"}
	}
	return nil
}

func hasBody(r *http.Request) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return false
	}
	return r.ContentLength != 0
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// automatedAgents are user agents of vulnerability scanners. They are
// served normally but logged.
var automatedAgents = []string{"sqlmap", "nikto", "nmap", "masscan", "zgrab", "nuclei", "gobuster"}

// flagAgent returns the scanner name found in the User-Agent, if any.
func flagAgent(r *http.Request) string {
	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range automatedAgents {
		if strings.Contains(ua, agent) {
			return agent
		}
	}
	return ""
}

// trustedProxies may set X-Forwarded-For and X-Real-IP.
var trustedProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
}

func trusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// extractClientIP returns the address rate limits and logs are keyed on.
// Forwarding headers count only when the peer is a trusted proxy; the
// X-Forwarded-For chain is walked right to left past trusted hops.
func extractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !trusted(peer) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !trusted(hop) || i == 0 {
				return hop.String()
			}
		}
	}
	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.String()
	}
	return host
}
