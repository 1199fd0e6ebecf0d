package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseIntDefault reads a positive integer, falling back to def when
// raw is empty, malformed or not positive.
func parseIntDefault(raw string, def int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// jsonHeaders marks a response as JSON and uncacheable. Every endpoint
// reflects live dashboard state, so caches would only serve stale data.
func jsonHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
}

// respondJSON writes payload as indented JSON.
func respondJSON(w http.ResponseWriter, payload any) {
	jsonHeaders(w)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// errorResponse is the body every failed request gets.
type errorResponse struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

// respondError reports a failure as JSON. A nil err falls back to the
// standard status text so the body never carries an empty error.
func respondError(w http.ResponseWriter, status int, err error) {
	jsonHeaders(w)
	w.WriteHeader(status)

	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     msg,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeJSONBody reads one JSON value into dst, refusing bodies over
// maxBytes. The returned status is meaningful only when err != nil.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) (int, error) {
	if r == nil || r.Body == nil {
		return http.StatusBadRequest, errors.New("request body required")
	}
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return 0, nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxBytes)
	}
	return http.StatusBadRequest, err
}

// extractBearerToken pulls the caller's token from the Authorization
// header, falling back to the token query parameter for EventSource
// clients that cannot set headers.
func extractBearerToken(r *http.Request) (token string, fromQuery bool) {
	const prefix = "bearer "
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) >= len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):]), false
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, true
	}
	return "", false
}
