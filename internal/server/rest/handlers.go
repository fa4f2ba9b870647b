// Package rest provides the HTTP REST API for the Cybether dashboard: JWT
// login/refresh, public dashboard reads, and admin-gated writes for threat
// levels, maturity ratings and trend points, risks, projects, and compliance
// frameworks.
//
// Every response body is JSON. Errors use the envelope {"error": "<msg>"}
// with the HTTP status conveying the kind: 400 validation, 401
// unauthenticated, 403 non-admin, 404 unknown id, 422 invalid or expired
// token at the admin guard, 500 storage failure. Error messages are short
// and non-leaking; the underlying error is logged, never returned.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cybether/cybether/internal/auth"
	"github.com/cybether/cybether/internal/storage"
)

// dateFormat is the wire format for request date fields.
const dateFormat = "2006-01-02"

// monthFormat is the wire format for maturity-trend month keys.
const monthFormat = "2006-01"

// Server holds the dependencies needed by the REST handlers.
type Server struct {
	store  Store
	tokens *auth.Service
	logger *slog.Logger
}

// NewServer creates a Server. A nil logger falls back to slog.Default().
func NewServer(store Store, tokens *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, tokens: tokens, logger: logger}
}

// handleHealth responds to GET /api/health with the database connectivity
// status. No authentication required.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ts := time.Now().UTC()
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "unhealthy",
			"database":  "unreachable",
			"timestamp": ts,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": ts,
	})
}

// messageResponse is the envelope returned by mutating endpoints.
type messageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes v as the JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard {"error": msg} envelope.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// readJSON decodes the request body into dst. On failure it writes a 400
// response and returns false; callers must return immediately.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return false
	}
	return true
}

// parseDate parses a YYYY-MM-DD request field into a UTC timestamp.
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateFormat, s)
}

// resourceID parses the {id} route parameter. A non-numeric ID behaves like
// an unknown one: the caller writes its resource-specific 404.
func resourceID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// isNotFound reports whether err represents a missing row.
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
