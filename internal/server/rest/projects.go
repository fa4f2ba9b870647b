package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cybether/cybether/internal/storage"
)

// handleListProjects responds to GET /api/projects, ordered by due date
// ascending with undated projects last.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.logger.Error("list projects", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving projects")
		return
	}
	if projects == nil {
		projects = []storage.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// projectPayload is the request body for project create and update. Dates
// travel as YYYY-MM-DD strings.
type projectPayload struct {
	Name                 *string                `json:"name"`
	Description          *string                `json:"description"`
	Status               *storage.ProjectStatus `json:"status"`
	CompletionPercentage *float64               `json:"completion_percentage"`
	StartDate            *string                `json:"start_date"`
	DueDate              *string                `json:"due_date"`
}

// validate checks enumerations and ranges for the fields that are present
// and parses the date fields. Returns (start, due, "") on success, or an
// error message for the 400 response.
func (p *projectPayload) validate() (start, due *time.Time, msg string) {
	if p.Status != nil && !storage.ValidProjectStatus(*p.Status) {
		return nil, nil, "Status must be one of: Not Started, In Progress, Completed, On Hold"
	}
	if p.CompletionPercentage != nil && (*p.CompletionPercentage < 0 || *p.CompletionPercentage > 100) {
		return nil, nil, "Completion percentage must be between 0 and 100"
	}
	if p.StartDate != nil {
		t, err := parseDate(*p.StartDate)
		if err != nil {
			return nil, nil, "Invalid date format. Use YYYY-MM-DD"
		}
		start = &t
	}
	if p.DueDate != nil {
		t, err := parseDate(*p.DueDate)
		if err != nil {
			return nil, nil, "Invalid date format. Use YYYY-MM-DD"
		}
		due = &t
	}
	return start, due, ""
}

// handleCreateProject responds to POST /api/projects (admin only). The
// start date defaults to now when absent; the due date stays unset.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectPayload
	if !readJSON(w, r, &req) {
		return
	}
	if req.Name == nil || req.Status == nil || req.CompletionPercentage == nil {
		writeError(w, http.StatusBadRequest, "Name, status, and completion percentage are required")
		return
	}
	start, due, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	project := storage.Project{
		Name:                 *req.Name,
		Status:               *req.Status,
		CompletionPercentage: *req.CompletionPercentage,
		StartDate:            time.Now().UTC(),
		DueDate:              due,
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if start != nil {
		project.StartDate = *start
	}

	created, err := s.store.CreateProject(r.Context(), project)
	if err != nil {
		s.logger.Error("create project", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error creating project")
		return
	}

	s.logger.Info("project created", slog.String("name", created.Name))
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Project created successfully",
		Data:    created,
	})
}

// handleUpdateProject responds to PUT /api/projects/{id} (admin only).
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	var req projectPayload
	if !readJSON(w, r, &req) {
		return
	}
	start, due, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.store.UpdateProject(r.Context(), id, storage.ProjectPatch{
		Name:                 req.Name,
		Description:          req.Description,
		Status:               req.Status,
		CompletionPercentage: req.CompletionPercentage,
		StartDate:            start,
		DueDate:              due,
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		s.logger.Error("update project", slog.Int64("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error updating project")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Project updated successfully",
		Data:    updated,
	})
}

// handleDeleteProject responds to DELETE /api/projects/{id} (admin only).
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		s.logger.Error("delete project", slog.Int64("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error deleting project")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Project deleted successfully"})
}

// projectStatsResponse is the body of GET /api/projects/stats.
type projectStatsResponse struct {
	TotalProjects      int64   `json:"total_projects"`
	CompletedProjects  int64   `json:"completed_projects"`
	InProgressProjects int64   `json:"in_progress_projects"`
	OverdueProjects    int64   `json:"overdue_projects"`
	CompletionRate     float64 `json:"completion_rate"`
}

// handleProjectStats responds to GET /api/projects/stats. The completion
// rate is completed/total as a percentage, exactly 0 when there are no
// projects.
func (s *Server) handleProjectStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetProjectStats(r.Context())
	if err != nil {
		s.logger.Error("project stats", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error retrieving project statistics")
		return
	}

	resp := projectStatsResponse{
		TotalProjects:      st.Total,
		CompletedProjects:  st.Completed,
		InProgressProjects: st.InProgress,
		OverdueProjects:    st.Overdue,
	}
	if st.Total > 0 {
		resp.CompletionRate = float64(st.Completed) / float64(st.Total) * 100
	}
	writeJSON(w, http.StatusOK, resp)
}
