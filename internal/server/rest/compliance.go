package rest

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/cybether/cybether/internal/storage"
)

// handleListFrameworks responds to GET /api/compliance, ordered by current
// score descending.
func (s *Server) handleListFrameworks(w http.ResponseWriter, r *http.Request) {
	frameworks, err := s.store.ListFrameworks(r.Context())
	if err != nil {
		s.logger.Error("list frameworks", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving compliance frameworks")
		return
	}
	if frameworks == nil {
		frameworks = []storage.ComplianceFramework{}
	}
	writeJSON(w, http.StatusOK, frameworks)
}

// compliancePayload is the request body for framework create and update.
// There is intentionally no next_assessment_date field: that value is
// always derived from the last assessment date.
type compliancePayload struct {
	Name               *string  `json:"name"`
	CurrentScore       *float64 `json:"current_score"`
	TargetScore        *float64 `json:"target_score"`
	LastAssessmentDate *string  `json:"last_assessment_date"`
}

// validate checks score ranges for the fields that are present and parses
// the assessment date. Returns (lastAssessment, "") on success, or an error
// message for the 400 response.
func (p *compliancePayload) validate() (last *time.Time, msg string) {
	if p.CurrentScore != nil && (*p.CurrentScore < 0 || *p.CurrentScore > 100) {
		return nil, "Current score must be between 0 and 100"
	}
	if p.TargetScore != nil && (*p.TargetScore < 0 || *p.TargetScore > 100) {
		return nil, "Target score must be between 0 and 100"
	}
	if p.LastAssessmentDate != nil {
		t, err := parseDate(*p.LastAssessmentDate)
		if err != nil {
			return nil, "Invalid date format. Use YYYY-MM-DD"
		}
		last = &t
	}
	return last, ""
}

// handleCreateFramework responds to POST /api/compliance (admin only).
func (s *Server) handleCreateFramework(w http.ResponseWriter, r *http.Request) {
	var req compliancePayload
	if !readJSON(w, r, &req) {
		return
	}
	if req.Name == nil || req.CurrentScore == nil || req.TargetScore == nil || req.LastAssessmentDate == nil {
		writeError(w, http.StatusBadRequest,
			"Name, current score, target score, and last assessment date are required")
		return
	}
	last, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.store.CreateFramework(r.Context(), storage.ComplianceFramework{
		Name:               *req.Name,
		CurrentScore:       *req.CurrentScore,
		TargetScore:        *req.TargetScore,
		LastAssessmentDate: *last,
	})
	if err != nil {
		s.logger.Error("create framework", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error creating compliance framework")
		return
	}

	s.logger.Info("compliance framework created", slog.String("name", created.Name))
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Compliance framework created successfully",
		Data:    created,
	})
}

// handleUpdateFramework responds to PUT /api/compliance/{id} (admin only).
// Changing last_assessment_date moves next_assessment_date with it.
func (s *Server) handleUpdateFramework(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Compliance framework not found")
		return
	}
	var req compliancePayload
	if !readJSON(w, r, &req) {
		return
	}
	last, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.store.UpdateFramework(r.Context(), id, storage.CompliancePatch{
		Name:               req.Name,
		CurrentScore:       req.CurrentScore,
		TargetScore:        req.TargetScore,
		LastAssessmentDate: last,
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Compliance framework not found")
			return
		}
		s.logger.Error("update framework", slog.Int64("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error updating compliance framework")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Compliance framework updated successfully",
		Data:    updated,
	})
}

// handleDeleteFramework responds to DELETE /api/compliance/{id} (admin
// only).
func (s *Server) handleDeleteFramework(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Compliance framework not found")
		return
	}
	if err := s.store.DeleteFramework(r.Context(), id); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Compliance framework not found")
			return
		}
		s.logger.Error("delete framework", slog.Int64("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error deleting compliance framework")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Compliance framework deleted successfully"})
}

// complianceStatsResponse is the body of GET /api/compliance/stats when at
// least one framework exists. UpcomingAssessments counts frameworks whose
// next assessment falls within the next 30 days.
type complianceStatsResponse struct {
	AverageScore            float64 `json:"average_score"`
	FrameworksMeetingTarget int     `json:"frameworks_meeting_target"`
	FrameworksBelowTarget   int     `json:"frameworks_below_target"`
	OverallStatus           string  `json:"overall_compliance_status"`
	UpcomingAssessments     int     `json:"upcoming_assessments"`
}

// overallStatus buckets an average score into the dashboard's four labels.
func overallStatus(avg float64) string {
	switch {
	case avg >= 90:
		return "Excellent"
	case avg >= 75:
		return "Good"
	case avg >= 60:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}

// handleComplianceStats responds to GET /api/compliance/stats. With no
// frameworks defined the response is a fixed zero-state payload without an
// upcoming-assessments count.
func (s *Server) handleComplianceStats(w http.ResponseWriter, r *http.Request) {
	frameworks, err := s.store.ListFrameworks(r.Context())
	if err != nil {
		s.logger.Error("compliance stats", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving compliance statistics")
		return
	}

	if len(frameworks) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"average_score":             0,
			"frameworks_meeting_target": 0,
			"frameworks_below_target":   0,
			"overall_compliance_status": "No frameworks defined",
		})
		return
	}

	var total float64
	meeting := 0
	upcoming := 0
	horizon := time.Now().UTC().Add(30 * 24 * time.Hour)
	for _, f := range frameworks {
		total += f.CurrentScore
		if f.CurrentScore >= f.TargetScore {
			meeting++
		}
		if !f.NextAssessmentDate.After(horizon) {
			upcoming++
		}
	}
	avg := total / float64(len(frameworks))

	writeJSON(w, http.StatusOK, complianceStatsResponse{
		AverageScore:            math.Round(avg*100) / 100,
		FrameworksMeetingTarget: meeting,
		FrameworksBelowTarget:   len(frameworks) - meeting,
		OverallStatus:           overallStatus(avg),
		UpcomingAssessments:     upcoming,
	})
}
