// Package httputil holds small HTTP helpers shared by the server's
// middleware.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the client address for request logging. With
// trustProxy set, the leftmost X-Forwarded-For entry and then X-Real-IP
// are consulted, but only when they parse as an IP address; a garbage
// header falls through to RemoteAddr. Enable trustProxy only behind a
// reverse proxy that owns these headers, otherwise clients can spoof
// their logged address.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedIP(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedIP extracts the original client from an X-Forwarded-For
// chain: the leftmost entry, if it is a valid IP.
func forwardedIP(xff string) string {
	if xff == "" {
		return ""
	}
	first := xff
	if i := strings.IndexByte(first, ','); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}
