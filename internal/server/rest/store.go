package rest

import (
	"context"

	"github.com/cybether/cybether/internal/storage"
)

// Store is the subset of storage.Store methods used by the REST handlers.
// Defining an interface allows handlers to be tested with a mock store
// without a live PostgreSQL connection.
type Store interface {
	// Ping verifies database connectivity for the health endpoint.
	Ping(ctx context.Context) error

	// GetUserByUsername returns the user with the given username, or
	// storage.ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*storage.User, error)

	// GetUserByID returns the user with the given ID, or storage.ErrNotFound.
	GetUserByID(ctx context.Context, id int64) (*storage.User, error)

	// LatestThreatLevel returns the current (most recently inserted) threat
	// level, or storage.ErrNotFound when none has been written yet.
	LatestThreatLevel(ctx context.Context) (*storage.ThreatLevel, error)

	// InsertThreatLevel appends a new threat-level row.
	InsertThreatLevel(ctx context.Context, level storage.Severity, description string) (*storage.ThreatLevel, error)

	// LatestMaturityRating returns the current maturity rating, or
	// storage.ErrNotFound when none has been written yet.
	LatestMaturityRating(ctx context.Context) (*storage.MaturityRating, error)

	// InsertMaturityRating appends a new maturity-rating row.
	InsertMaturityRating(ctx context.Context, score float64, trend string) (*storage.MaturityRating, error)

	// ListTrendPoints returns all trend points ordered by month ascending.
	ListTrendPoints(ctx context.Context) ([]storage.MaturityTrendPoint, error)

	// UpsertTrendPoint writes the score for a month, creating or updating
	// the row keyed by that month.
	UpsertTrendPoint(ctx context.Context, month string, score float64) (*storage.MaturityTrendPoint, error)

	// DeleteTrendPoint removes the trend point for a month.
	DeleteTrendPoint(ctx context.Context, month string) error

	// ListRisks returns all risks ordered by severity rank and recency.
	ListRisks(ctx context.Context) ([]storage.Risk, error)

	// CreateRisk inserts a new risk.
	CreateRisk(ctx context.Context, r storage.Risk) (*storage.Risk, error)

	// UpdateRisk applies a partial update to a risk.
	UpdateRisk(ctx context.Context, id int64, p storage.RiskPatch) (*storage.Risk, error)

	// DeleteRisk removes a risk.
	DeleteRisk(ctx context.Context, id int64) error

	// ListProjects returns all projects ordered by due date ascending.
	ListProjects(ctx context.Context) ([]storage.Project, error)

	// CreateProject inserts a new project.
	CreateProject(ctx context.Context, p storage.Project) (*storage.Project, error)

	// UpdateProject applies a partial update to a project.
	UpdateProject(ctx context.Context, id int64, p storage.ProjectPatch) (*storage.Project, error)

	// DeleteProject removes a project.
	DeleteProject(ctx context.Context, id int64) error

	// GetProjectStats aggregates project counts.
	GetProjectStats(ctx context.Context) (*storage.ProjectStats, error)

	// ListFrameworks returns all compliance frameworks ordered by current
	// score descending.
	ListFrameworks(ctx context.Context) ([]storage.ComplianceFramework, error)

	// CreateFramework inserts a new compliance framework.
	CreateFramework(ctx context.Context, f storage.ComplianceFramework) (*storage.ComplianceFramework, error)

	// UpdateFramework applies a partial update to a compliance framework.
	UpdateFramework(ctx context.Context, id int64, p storage.CompliancePatch) (*storage.ComplianceFramework, error)

	// DeleteFramework removes a compliance framework.
	DeleteFramework(ctx context.Context, id int64) error
}
