package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP from a request, preferring proxy
// headers over the socket address. The first entry of X-Forwarded-For
// is the originating client when the service sits behind a proxy chain.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
