// Admin guard and CORS middleware.
//
// # Authorization model
//
// All dashboard reads are public by design; only mutating endpoints pass
// through the admin guard. The guard extracts the Bearer access token,
// verifies it, loads the identified user, and requires the admin flag.
//
// The two failure statuses are deliberately asymmetric and must stay that
// way, because existing clients key off them:
//
//   - any token failure (missing, malformed, bad signature, expired)
//     → 422 "Invalid or expired token"
//   - token fine but user missing or non-admin
//     → 403 "Admin privileges required"
package rest

import (
	"log/slog"
	"net/http"
	"strings"
)

// bearerToken returns the token from the Authorization header, or "" when
// the header is absent or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	raw := r.Header.Get("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(raw, "Bearer ")
}

// requireAdmin wraps mutating handlers with the token-plus-admin check.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.tokens.Verify(bearerToken(r))
		if err != nil {
			s.logger.Warn("admin guard: token rejected",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusUnprocessableEntity, "Invalid or expired token")
			return
		}

		user, err := s.store.GetUserByID(r.Context(), userID)
		if err != nil {
			if !isNotFound(err) {
				// An unexpected lookup failure and an invalid token are
				// indistinguishable to the caller; only the log records the
				// difference.
				s.logger.Error("admin guard: user lookup failed",
					slog.Int64("user_id", userID),
					slog.Any("error", err),
				)
				writeError(w, http.StatusUnprocessableEntity, "Invalid or expired token")
				return
			}
			writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		if !user.IsAdmin {
			s.logger.Warn("admin guard: non-admin write rejected",
				slog.String("username", user.Username),
				slog.String("path", r.URL.Path),
			)
			writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds the permissive cross-origin headers the dashboard
// frontend relies on and short-circuits OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		h.Set("Access-Control-Allow-Methods", "GET,PUT,POST,DELETE,OPTIONS")
		h.Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
		next.ServeHTTP(w, r)
	})
}
