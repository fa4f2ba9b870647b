package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cybether/cybether/internal/storage"
)

// threatLevelView is the public shape of the current threat level. The row
// ID is internal and not exposed.
type threatLevelView struct {
	Level       storage.Severity `json:"level"`
	Description string           `json:"description"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// handleGetThreatLevel responds to GET /api/threat-level with the current
// (most recently inserted) threat level. Before any level has been set it
// returns a documented default rather than a 404, so the dashboard always
// has something to render.
func (s *Server) handleGetThreatLevel(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.LatestThreatLevel(r.Context())
	if err != nil {
		if isNotFound(err) {
			writeJSON(w, http.StatusOK, threatLevelView{
				Level:       storage.SeverityLow,
				Description: "No current threats",
				UpdatedAt:   time.Now().UTC(),
			})
			return
		}
		s.logger.Error("get threat level", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving threat level")
		return
	}
	writeJSON(w, http.StatusOK, threatLevelView{
		Level:       t.Level,
		Description: t.Description,
		UpdatedAt:   t.UpdatedAt,
	})
}

// handleUpdateThreatLevel responds to POST /api/threat-level (admin only).
// Each update inserts a new row; history is never rewritten.
func (s *Server) handleUpdateThreatLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level       *storage.Severity `json:"level"`
		Description *string           `json:"description"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Level == nil || req.Description == nil {
		writeError(w, http.StatusBadRequest, "Level and description are required")
		return
	}
	if !storage.ValidSeverity(*req.Level) {
		writeError(w, http.StatusBadRequest, "Invalid threat level")
		return
	}

	t, err := s.store.InsertThreatLevel(r.Context(), *req.Level, *req.Description)
	if err != nil {
		s.logger.Error("update threat level", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error updating threat level")
		return
	}

	s.logger.Info("threat level updated", slog.String("level", string(t.Level)))
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Threat level updated successfully",
		Data: threatLevelView{
			Level:       t.Level,
			Description: t.Description,
			UpdatedAt:   t.UpdatedAt,
		},
	})
}

// maturityRatingView is the public shape of the current maturity rating.
type maturityRatingView struct {
	Score     float64   `json:"score"`
	Trend     string    `json:"trend"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleGetMaturityRating responds to GET /api/maturity-rating. Same
// default-payload convention as the threat level.
func (s *Server) handleGetMaturityRating(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.LatestMaturityRating(r.Context())
	if err != nil {
		if isNotFound(err) {
			writeJSON(w, http.StatusOK, maturityRatingView{
				Score:     1.0,
				Trend:     "Stable",
				UpdatedAt: time.Now().UTC(),
			})
			return
		}
		s.logger.Error("get maturity rating", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving maturity rating")
		return
	}
	writeJSON(w, http.StatusOK, maturityRatingView{
		Score:     m.Score,
		Trend:     m.Trend,
		UpdatedAt: m.UpdatedAt,
	})
}

// handleUpdateMaturityRating responds to POST /api/maturity-rating (admin
// only). Append-only, like the threat level.
func (s *Server) handleUpdateMaturityRating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score *float64 `json:"score"`
		Trend *string  `json:"trend"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Score == nil || req.Trend == nil {
		writeError(w, http.StatusBadRequest, "Score and trend are required")
		return
	}
	if *req.Score < 0 || *req.Score > 5 {
		writeError(w, http.StatusBadRequest, "Score must be between 0 and 5")
		return
	}

	m, err := s.store.InsertMaturityRating(r.Context(), *req.Score, *req.Trend)
	if err != nil {
		s.logger.Error("update maturity rating", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error updating maturity rating")
		return
	}

	s.logger.Info("maturity rating updated", slog.Float64("score", m.Score))
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Maturity rating updated successfully",
		Data: maturityRatingView{
			Score:     m.Score,
			Trend:     m.Trend,
			UpdatedAt: m.UpdatedAt,
		},
	})
}

// handleGetMaturityTrend responds to GET /api/maturity-trend with all
// monthly trend points, oldest month first.
func (s *Server) handleGetMaturityTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.ListTrendPoints(r.Context())
	if err != nil {
		s.logger.Error("get maturity trend", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving maturity trend")
		return
	}
	if points == nil {
		points = []storage.MaturityTrendPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

// handleUpsertTrendPoint responds to POST /api/maturity-trend (admin only).
// The month is the natural key: a second write for the same month replaces
// that month's score instead of creating a new point.
func (s *Server) handleUpsertTrendPoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month *string  `json:"month"`
		Score *float64 `json:"score"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Month == nil || req.Score == nil {
		writeError(w, http.StatusBadRequest, "Month and score are required")
		return
	}
	if _, err := time.Parse(monthFormat, *req.Month); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format. Use YYYY-MM")
		return
	}

	if _, err := s.store.UpsertTrendPoint(r.Context(), *req.Month, *req.Score); err != nil {
		s.logger.Error("upsert trend point", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error adding maturity trend point")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Maturity trend point added successfully",
	})
}

// handleDeleteTrendPoint responds to DELETE /api/maturity-trend/{month}
// (admin only).
func (s *Server) handleDeleteTrendPoint(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if err := s.store.DeleteTrendPoint(r.Context(), month); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Point not found")
			return
		}
		s.logger.Error("delete trend point", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error deleting maturity trend point")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Maturity trend point deleted successfully",
	})
}
