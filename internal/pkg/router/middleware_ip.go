package router

import (
	"net"
	"net/http"
	"strings"
)

// middlewareIP rewrites RemoteAddr to the client address, preferring the
// first X-Forwarded-For hop. Handlers read it back with Request.ClientIP.
func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.RemoteAddr = realIP(r)
		next.ServeHTTP(w, r)
	})
}

func realIP(r *http.Request) string {
	for _, candidate := range []string{
		firstHop(r.Header.Get("X-Forwarded-For")),
		r.Header.Get("X-Real-IP"),
		r.Header.Get("True-Client-IP"),
	} {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func firstHop(xff string) string {
	hop, _, _ := strings.Cut(xff, ",")
	return hop
}
