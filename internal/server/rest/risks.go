package rest

import (
	"log/slog"
	"net/http"

	"github.com/cybether/cybether/internal/storage"
)

// handleListRisks responds to GET /api/risks. Risks are ordered most urgent
// first: Critical, High, Medium, Low, with newer updates first inside each
// severity.
func (s *Server) handleListRisks(w http.ResponseWriter, r *http.Request) {
	risks, err := s.store.ListRisks(r.Context())
	if err != nil {
		s.logger.Error("list risks", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving risks")
		return
	}
	if risks == nil {
		risks = []storage.Risk{}
	}
	writeJSON(w, http.StatusOK, risks)
}

// riskPayload is the request body for risk create and update. All fields
// are pointers so a partial update can distinguish "absent" from "empty".
type riskPayload struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Severity    *storage.Severity   `json:"severity"`
	Status      *storage.RiskStatus `json:"status"`
}

// validate checks the enumerated fields that are present. Returns an empty
// string when the payload is acceptable.
func (p *riskPayload) validate() string {
	if p.Severity != nil && !storage.ValidSeverity(*p.Severity) {
		return "Invalid severity level"
	}
	if p.Status != nil && !storage.ValidRiskStatus(*p.Status) {
		return "Invalid status"
	}
	return ""
}

// handleCreateRisk responds to POST /api/risks (admin only).
func (s *Server) handleCreateRisk(w http.ResponseWriter, r *http.Request) {
	var req riskPayload
	if !readJSON(w, r, &req) {
		return
	}
	if req.Title == nil || req.Severity == nil || req.Status == nil {
		writeError(w, http.StatusBadRequest, "Title, severity, and status are required")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	risk := storage.Risk{
		Title:    *req.Title,
		Severity: *req.Severity,
		Status:   *req.Status,
	}
	if req.Description != nil {
		risk.Description = *req.Description
	}

	created, err := s.store.CreateRisk(r.Context(), risk)
	if err != nil {
		s.logger.Error("create risk", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error creating risk")
		return
	}

	s.logger.Info("risk created", slog.String("title", created.Title))
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Risk created successfully",
		Data:    created,
	})
}

// handleUpdateRisk responds to PUT /api/risks/{id} (admin only). Only the
// fields present in the body change; updated_at always advances.
func (s *Server) handleUpdateRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Risk not found")
		return
	}
	var req riskPayload
	if !readJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.store.UpdateRisk(r.Context(), id, storage.RiskPatch{
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		Status:      req.Status,
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Risk not found")
			return
		}
		s.logger.Error("update risk", slog.Int64("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error updating risk")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Risk updated successfully",
		Data:    updated,
	})
}

// handleDeleteRisk responds to DELETE /api/risks/{id} (admin only).
func (s *Server) handleDeleteRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Risk not found")
		return
	}
	if err := s.store.DeleteRisk(r.Context(), id); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Risk not found")
			return
		}
		s.logger.Error("delete risk", slog.Int64("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error deleting risk")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Risk deleted successfully"})
}
