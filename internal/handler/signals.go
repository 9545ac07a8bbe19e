package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/Lucasvitorkkx/UTM/internal"
)

// SignalHeaders names the edge headers carrying visitor geography.
type SignalHeaders struct {
	Country string
	City    string
}

// signalsFrom collects the untrusted visitor signals from r as-is.
func signalsFrom(r *http.Request, headers SignalHeaders) internal.Signals {
	s := internal.Signals{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
	if headers.Country != "" {
		s.Country = r.Header.Get(headers.Country)
	}
	if headers.City != "" {
		s.City = r.Header.Get(headers.City)
	}
	return s
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	// First hop of the proxy chain
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
