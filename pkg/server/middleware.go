package server

import (
	"net/http"
	"net/url"
	"strings"
)

// corsMiddleware answers cross-origin requests from configured
// dashboard origins. Allowed origins are echoed back; a wildcard entry
// admits any origin but never with credentials.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if origin := r.Header.Get("Origin"); origin != "" {
			if allowed, wildcard := s.isOriginAllowed(origin); allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				if !wildcard {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware sets the browser hardening baseline on
// every response.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	baseline := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for name, value := range baseline {
			h.Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware rejects requests that fail authorize before they
// reach a handler.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authorize(r) {
			next.ServeHTTP(w, r)
			return
		}
		respondError(w, http.StatusUnauthorized, errUnauthorized)
	})
}

// authorize decides whether r may proceed. A presented token must
// match the configured one exactly; requests without a token pass
// unless tokens are required, with health and optionally metrics left
// open. Query-string tokens count only on loopback binds.
func (s *Server) authorize(r *http.Request) bool {
	token, fromQuery := extractBearerToken(r)
	if fromQuery && !isLoopbackBindAddress(s.cfg.Bind) {
		token = ""
	}
	switch {
	case token != "":
		return s.cfg.AuthToken != "" && token == s.cfg.AuthToken
	case !s.cfg.RequireToken:
		return true
	default:
		return s.isUnauthenticatedEndpoint(r.URL.Path)
	}
}

// isUnauthenticatedEndpoint lists the paths that answer without a
// token: health always, metrics when configured public.
func (s *Server) isUnauthenticatedEndpoint(path string) bool {
	switch strings.TrimSpace(path) {
	case "/healthz":
		return true
	case "/metrics":
		return s.cfg.PublicMetrics
	}
	return false
}

// isOriginAllowed checks origin against the configured list. An entry
// without a port, like http://localhost, matches any port on that
// host; a bare "*" admits every origin.
func (s *Server) isOriginAllowed(origin string) (allowed, wildcard bool) {
	origin = strings.TrimSpace(origin)
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false, false
	}

	sawWildcard := false
	for _, entry := range s.cfg.AllowedOrigins {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case entry == "*":
			sawWildcard = true
		case originEntryMatches(entry, origin, parsed):
			return true, false
		}
	}
	return sawWildcard, sawWildcard
}

// originEntryMatches reports whether one configured entry covers the
// parsed origin.
func originEntryMatches(entry, origin string, parsed *url.URL) bool {
	if strings.EqualFold(entry, origin) {
		return true
	}
	entryURL, err := url.Parse(entry)
	if err != nil || entryURL.Scheme == "" || entryURL.Host == "" {
		return false
	}
	if !strings.EqualFold(entryURL.Scheme, parsed.Scheme) {
		return false
	}
	return entryURL.Port() == "" && strings.EqualFold(entryURL.Hostname(), parsed.Hostname())
}
