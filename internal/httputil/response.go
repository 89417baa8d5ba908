package httputil

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// WantsJSON reports whether the client expects a JSON answer instead of a
// redirect: an XMLHttpRequest or an explicit JSON Accept header.
func WantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// ClientIP returns the host part of the request's remote address. Run chi's
// RealIP middleware first when behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Back returns the Referer of the request, or fallback when there is none.
func Back(r *http.Request, fallback string) string {
	if ref := r.Referer(); ref != "" {
		return ref
	}
	return fallback
}
