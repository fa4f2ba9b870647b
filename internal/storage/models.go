// Package storage provides the PostgreSQL-backed persistence layer for the
// Cybether dashboard server. It exposes typed model structs for all seven
// database tables (users, threat_levels, maturity_ratings,
// maturity_trend_points, risks, projects, compliance_frameworks) and a Store
// that wraps a pgxpool connection pool. Every mutating operation runs inside
// its own transaction that commits on success and rolls back on any failure.
package storage

import "time"

// Severity is the urgency level of a risk or of the dashboard threat level.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// ValidSeverity reports whether s is one of the four severity values.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RiskStatus is the workflow state of a risk record.
type RiskStatus string

const (
	RiskOpen       RiskStatus = "Open"
	RiskInProgress RiskStatus = "In Progress"
	RiskClosed     RiskStatus = "Closed"
)

// ValidRiskStatus reports whether s is one of the three risk states.
func ValidRiskStatus(s RiskStatus) bool {
	switch s {
	case RiskOpen, RiskInProgress, RiskClosed:
		return true
	}
	return false
}

// ProjectStatus is the workflow state of a project record.
type ProjectStatus string

const (
	ProjectNotStarted ProjectStatus = "Not Started"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectOnHold     ProjectStatus = "On Hold"
)

// ValidProjectStatus reports whether s is one of the four project states.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectNotStarted, ProjectInProgress, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

// User maps to the `users` table. The password hash is a bcrypt digest and
// is never serialised into API responses. Users are created only by the
// bootstrap path, never through the REST API.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// ThreatLevel maps to the `threat_levels` table.
//
// The table is append-only: each change inserts a new row and the row with
// the greatest updated_at is the current level. Rows are never mutated or
// deleted, so the full threat history is preserved.
type ThreatLevel struct {
	ID          int64     `json:"id"`
	Level       Severity  `json:"level"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MaturityRating maps to the `maturity_ratings` table. Append-only, same
// current-row convention as ThreatLevel. Score is on a 0–5 scale.
type MaturityRating struct {
	ID        int64     `json:"id"`
	Score     float64   `json:"score"`
	Trend     string    `json:"trend"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaturityTrendPoint maps to the `maturity_trend_points` table: one score
// per calendar month, keyed by the month string ("YYYY-MM"). Writes for an
// existing month update the score in place.
type MaturityTrendPoint struct {
	ID        int64     `json:"id"`
	Month     string    `json:"month"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Risk maps to the `risks` table.
type Risk struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	Status      RiskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RiskPatch carries a partial update for a risk. Nil fields are left
// untouched.
type RiskPatch struct {
	Title       *string
	Description *string
	Severity    *Severity
	Status      *RiskStatus
}

// Project maps to the `projects` table. DueDate is nil when no deadline has
// been set.
type Project struct {
	ID                   int64         `json:"id"`
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Status               ProjectStatus `json:"status"`
	CompletionPercentage float64       `json:"completion_percentage"`
	StartDate            time.Time     `json:"start_date"`
	DueDate              *time.Time    `json:"due_date"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// ProjectPatch carries a partial update for a project. Nil fields are left
// untouched.
type ProjectPatch struct {
	Name                 *string
	Description          *string
	Status               *ProjectStatus
	CompletionPercentage *float64
	StartDate            *time.Time
	DueDate              *time.Time
}

// ProjectStats is the aggregate view over the projects table.
type ProjectStats struct {
	Total      int64
	Completed  int64
	InProgress int64
	Overdue    int64 // due_date < now AND status != Completed
}

// ComplianceFramework maps to the `compliance_frameworks` table.
//
// NextAssessmentDate is always derived as LastAssessmentDate + 90 days; it
// is recomputed by the store whenever the last assessment date changes and
// is never settable by callers.
type ComplianceFramework struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	CurrentScore       float64   `json:"current_score"`
	TargetScore        float64   `json:"target_score"`
	LastAssessmentDate time.Time `json:"last_assessment_date"`
	NextAssessmentDate time.Time `json:"next_assessment_date"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CompliancePatch carries a partial update for a compliance framework.
// Nil fields are left untouched. There is deliberately no next-assessment
// field: that column only ever changes as a consequence of
// LastAssessmentDate changing.
type CompliancePatch struct {
	Name               *string
	CurrentScore       *float64
	TargetScore        *float64
	LastAssessmentDate *time.Time
}

// AssessmentInterval is the fixed gap between a framework's last assessment
// and its next scheduled one.
const AssessmentInterval = 90 * 24 * time.Hour
