package rest

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// loginRequest is the body of POST /api/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the success body of POST /api/login.
type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	IsAdmin      bool   `json:"is_admin"`
	Username     string `json:"username"`
}

// handleLogin responds to POST /api/login.
//
// Credentials are checked against the bcrypt hash in the credential store.
// An unknown username and a wrong password produce the same 401 response so
// the endpoint does not reveal which usernames exist.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("login failed: unknown user", slog.String("username", req.Username))
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.logger.Error("login failed: user lookup", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("login failed: bad password", slog.String("username", user.Username))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	access, refresh, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("login failed: token issue", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	s.logger.Info("login successful", slog.String("username", user.Username))
	writeJSON(w, http.StatusOK, loginResponse{
		Token:        access,
		RefreshToken: refresh,
		IsAdmin:      user.IsAdmin,
		Username:     user.Username,
	})
}

// handleRefreshToken responds to POST /api/refresh-token.
//
// The refresh token is presented as a Bearer token. Any failure (missing,
// malformed, expired, or an access token presented instead) is a 401.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	access, err := s.tokens.Renew(bearerToken(r))
	if err != nil {
		s.logger.Warn("token refresh rejected", slog.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, "Token refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": access})
}
