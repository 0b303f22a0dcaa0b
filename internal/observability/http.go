package observability

import (
	"net"
	"net/http"
	"strings"
)

// Browser websocket clients cannot set headers on the upgrade request, so
// the session identifiers are also accepted as query parameters.
const (
	deviceIDHeader  = "X-Device-Id"
	deviceIDQuery   = "deviceId"
	requestIDHeader = "X-Request-Id"
	requestIDQuery  = "requestId"
)

// DeviceIDFromRequest returns the caller's device id, header first.
func DeviceIDFromRequest(r *http.Request) string {
	return headerOrQuery(r, deviceIDHeader, deviceIDQuery)
}

// RequestIDFromRequest returns the correlation id of r, header first.
func RequestIDFromRequest(r *http.Request) string {
	return headerOrQuery(r, requestIDHeader, requestIDQuery)
}

// IPFromRequest returns the client address: the first X-Forwarded-For hop,
// then X-Real-IP, then the peer address.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func headerOrQuery(r *http.Request, header, query string) string {
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}
	if r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get(query))
}
