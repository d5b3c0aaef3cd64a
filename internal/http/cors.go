package httpx

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, X-Request-ID"
)

// applyCORS sets CORS headers for the configured origin and answers
// preflight requests. It reports whether the request was fully handled.
func (r *Router) applyCORS(w http.ResponseWriter, req *http.Request) bool {
	origin := req.Header.Get("Origin")
	switch {
	case origin == "":
	case r.corsOrigin == "*":
		// A wildcard origin never carries credentials.
		w.Header().Set("Access-Control-Allow-Origin", "*")
	case r.originMatches(origin):
		headers := w.Header()
		headers.Set("Access-Control-Allow-Origin", origin)
		headers.Set("Access-Control-Allow-Credentials", "true")
		headers.Add("Vary", "Origin")
	}
	if req.Method != http.MethodOptions || req.Header.Get("Access-Control-Request-Method") == "" {
		return false
	}
	headers := w.Header()
	headers.Set("Access-Control-Allow-Methods", corsAllowMethods)
	headers.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	headers.Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
	return true
}

func (r *Router) originMatches(origin string) bool {
	if r.corsOrigin == "*" {
		return true
	}
	return r.corsOrigin != "" && strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(r.corsOrigin, "/"))
}

// allowedOrigin lets non-browser clients through and holds browsers to the
// configured origin.
func (r *Router) allowedOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	return origin == "" || r.originMatches(origin)
}
