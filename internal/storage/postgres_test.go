//go:build integration

// Run with:
//
//	go test -tags integration -v ./internal/storage/...
//
// Requires Docker (for testcontainers-go) and a reachable Docker socket.
package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cybether/cybether/internal/storage"
)

// setupDB starts a PostgreSQL container and returns a Store with the schema
// applied (storage.New applies it on connect).
func setupDB(t *testing.T) *storage.Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("cybether_test"),
		tcpostgres.WithUsername("cybether"),
		tcpostgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	store, err := storage.New(ctx, connStr)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// ---- users ------------------------------------------------------------------

func TestUsers_CreateAndLookup(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, "admin", "$2a$10$hash", true)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ID == 0 || !created.IsAdmin {
		t.Fatalf("unexpected created user: %+v", created)
	}

	byName, err := store.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.ID != created.ID || byName.PasswordHash != "$2a$10$hash" {
		t.Errorf("lookup mismatch: %+v", byName)
	}

	byID, err := store.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Username != "admin" {
		t.Errorf("lookup mismatch: %+v", byID)
	}

	if _, err := store.GetUserByUsername(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	n, err := store.CountAdmins(ctx)
	if err != nil {
		t.Fatalf("CountAdmins: %v", err)
	}
	if n != 1 {
		t.Errorf("CountAdmins = %d, want 1", n)
	}
}

// ---- threat level -----------------------------------------------------------

func TestThreatLevel_AppendOnlyLatestWins(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	if _, err := store.LatestThreatLevel(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("empty table: expected ErrNotFound, got %v", err)
	}

	if _, err := store.InsertThreatLevel(ctx, storage.SeverityLow, "baseline"); err != nil {
		t.Fatalf("InsertThreatLevel: %v", err)
	}
	second, err := store.InsertThreatLevel(ctx, storage.SeverityHigh, "incident")
	if err != nil {
		t.Fatalf("InsertThreatLevel: %v", err)
	}

	latest, err := store.LatestThreatLevel(ctx)
	if err != nil {
		t.Fatalf("LatestThreatLevel: %v", err)
	}
	if latest.ID != second.ID || latest.Level != storage.SeverityHigh {
		t.Errorf("latest = %+v, want the second insert", latest)
	}
}

// ---- maturity ---------------------------------------------------------------

func TestMaturityRating_AppendOnlyLatestWins(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	if _, err := store.InsertMaturityRating(ctx, 2.0, "Stable"); err != nil {
		t.Fatalf("InsertMaturityRating: %v", err)
	}
	if _, err := store.InsertMaturityRating(ctx, 3.5, "Improving"); err != nil {
		t.Fatalf("InsertMaturityRating: %v", err)
	}

	latest, err := store.LatestMaturityRating(ctx)
	if err != nil {
		t.Fatalf("LatestMaturityRating: %v", err)
	}
	if latest.Score != 3.5 || latest.Trend != "Improving" {
		t.Errorf("latest = %+v, want the second insert", latest)
	}
}

func TestTrendPoints_UpsertByMonth(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	if _, err := store.UpsertTrendPoint(ctx, "2025-02", 2.0); err != nil {
		t.Fatalf("UpsertTrendPoint: %v", err)
	}
	if _, err := store.UpsertTrendPoint(ctx, "2025-01", 1.5); err != nil {
		t.Fatalf("UpsertTrendPoint: %v", err)
	}
	// Same month again: must replace, not duplicate.
	if _, err := store.UpsertTrendPoint(ctx, "2025-02", 2.8); err != nil {
		t.Fatalf("UpsertTrendPoint: %v", err)
	}

	points, err := store.ListTrendPoints(ctx)
	if err != nil {
		t.Fatalf("ListTrendPoints: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Month != "2025-01" || points[1].Month != "2025-02" {
		t.Errorf("months not ascending: %+v", points)
	}
	if points[1].Score != 2.8 {
		t.Errorf("upsert did not replace score: %+v", points[1])
	}
}

func TestTrendPoints_DeleteUnknown_ReturnsNotFound(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	if err := store.DeleteTrendPoint(ctx, "1999-01"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ---- risks ------------------------------------------------------------------

func TestRisks_OrderedBySeverityThenRecency(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	for _, r := range []storage.Risk{
		{Title: "medium", Severity: storage.SeverityMedium, Status: storage.RiskOpen},
		{Title: "critical", Severity: storage.SeverityCritical, Status: storage.RiskOpen},
		{Title: "high", Severity: storage.SeverityHigh, Status: storage.RiskInProgress},
	} {
		if _, err := store.CreateRisk(ctx, r); err != nil {
			t.Fatalf("CreateRisk(%s): %v", r.Title, err)
		}
	}

	risks, err := store.ListRisks(ctx)
	if err != nil {
		t.Fatalf("ListRisks: %v", err)
	}
	var titles []string
	for _, r := range risks {
		titles = append(titles, r.Title)
	}
	want := []string{"critical", "high", "medium"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("order = %v, want %v", titles, want)
		}
	}
}

func TestRisks_PartialUpdate(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	created, err := store.CreateRisk(ctx, storage.Risk{
		Title: "Legacy FTP", Description: "cleartext",
		Severity: storage.SeverityMedium, Status: storage.RiskOpen,
	})
	if err != nil {
		t.Fatalf("CreateRisk: %v", err)
	}

	closed := storage.RiskClosed
	updated, err := store.UpdateRisk(ctx, created.ID, storage.RiskPatch{Status: &closed})
	if err != nil {
		t.Fatalf("UpdateRisk: %v", err)
	}
	if updated.Status != storage.RiskClosed {
		t.Errorf("status not updated: %+v", updated)
	}
	if updated.Title != "Legacy FTP" || updated.Description != "cleartext" || updated.Severity != storage.SeverityMedium {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v vs %v", updated.UpdatedAt, created.UpdatedAt)
	}
}

func TestRisks_UpdateUnknown_ReturnsNotFound(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	closed := storage.RiskClosed
	if _, err := store.UpdateRisk(ctx, 9999, storage.RiskPatch{Status: &closed}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRisks_DeleteRoundTrip(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	created, err := store.CreateRisk(ctx, storage.Risk{
		Title: "x", Severity: storage.SeverityLow, Status: storage.RiskOpen,
	})
	if err != nil {
		t.Fatalf("CreateRisk: %v", err)
	}
	if err := store.DeleteRisk(ctx, created.ID); err != nil {
		t.Fatalf("DeleteRisk: %v", err)
	}
	if err := store.DeleteRisk(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

// ---- projects ---------------------------------------------------------------

func TestProjects_OrderedByDueDateNullsLast(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	later := date(t, "2026-06-01")
	sooner := date(t, "2026-01-01")
	for _, p := range []storage.Project{
		{Name: "undated", Status: storage.ProjectNotStarted, StartDate: date(t, "2025-01-01")},
		{Name: "later", Status: storage.ProjectInProgress, StartDate: date(t, "2025-01-01"), DueDate: &later},
		{Name: "sooner", Status: storage.ProjectInProgress, StartDate: date(t, "2025-01-01"), DueDate: &sooner},
	} {
		if _, err := store.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject(%s): %v", p.Name, err)
		}
	}

	projects, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	var names []string
	for _, p := range projects {
		names = append(names, p.Name)
	}
	want := []string{"sooner", "later", "undated"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestProjects_Stats(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	past := date(t, "2020-01-01")
	future := date(t, "2030-01-01")
	for _, p := range []storage.Project{
		{Name: "done", Status: storage.ProjectCompleted, CompletionPercentage: 100, StartDate: past},
		{Name: "active", Status: storage.ProjectInProgress, CompletionPercentage: 40, StartDate: past, DueDate: &future},
		{Name: "overdue", Status: storage.ProjectInProgress, CompletionPercentage: 10, StartDate: past, DueDate: &past},
		{Name: "done late", Status: storage.ProjectCompleted, CompletionPercentage: 100, StartDate: past, DueDate: &past},
	} {
		if _, err := store.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject(%s): %v", p.Name, err)
		}
	}

	stats, err := store.GetProjectStats(ctx)
	if err != nil {
		t.Fatalf("GetProjectStats: %v", err)
	}
	if stats.Total != 4 || stats.Completed != 2 || stats.InProgress != 2 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	// A completed project past its due date is not overdue.
	if stats.Overdue != 1 {
		t.Errorf("Overdue = %d, want 1", stats.Overdue)
	}
}

// ---- compliance -------------------------------------------------------------

func TestFrameworks_NextAssessmentDerived(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	last := date(t, "2025-06-01")
	created, err := store.CreateFramework(ctx, storage.ComplianceFramework{
		Name: "ISO 27001", CurrentScore: 82, TargetScore: 95, LastAssessmentDate: last,
	})
	if err != nil {
		t.Fatalf("CreateFramework: %v", err)
	}
	if want := last.Add(storage.AssessmentInterval); !created.NextAssessmentDate.Equal(want) {
		t.Errorf("next assessment = %v, want %v", created.NextAssessmentDate, want)
	}

	// Patching the last assessment date moves the next one with it.
	newLast := date(t, "2025-09-01")
	updated, err := store.UpdateFramework(ctx, created.ID, storage.CompliancePatch{LastAssessmentDate: &newLast})
	if err != nil {
		t.Fatalf("UpdateFramework: %v", err)
	}
	if want := newLast.Add(storage.AssessmentInterval); !updated.NextAssessmentDate.Equal(want) {
		t.Errorf("next assessment after patch = %v, want %v", updated.NextAssessmentDate, want)
	}

	// Patching only the score leaves both assessment dates alone.
	score := 88.0
	updated2, err := store.UpdateFramework(ctx, created.ID, storage.CompliancePatch{CurrentScore: &score})
	if err != nil {
		t.Fatalf("UpdateFramework: %v", err)
	}
	if !updated2.NextAssessmentDate.Equal(updated.NextAssessmentDate) {
		t.Errorf("next assessment changed on score-only patch: %v", updated2.NextAssessmentDate)
	}
	if updated2.CurrentScore != 88.0 {
		t.Errorf("score not updated: %+v", updated2)
	}
}

func TestFrameworks_OrderedByScoreDescending(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	last := date(t, "2025-06-01")
	for _, f := range []storage.ComplianceFramework{
		{Name: "SOC 2", CurrentScore: 71, TargetScore: 85, LastAssessmentDate: last},
		{Name: "ISO 27001", CurrentScore: 92, TargetScore: 90, LastAssessmentDate: last},
		{Name: "NIST CSF", CurrentScore: 65, TargetScore: 80, LastAssessmentDate: last},
	} {
		if _, err := store.CreateFramework(ctx, f); err != nil {
			t.Fatalf("CreateFramework(%s): %v", f.Name, err)
		}
	}

	frameworks, err := store.ListFrameworks(ctx)
	if err != nil {
		t.Fatalf("ListFrameworks: %v", err)
	}
	var names []string
	for _, f := range frameworks {
		names = append(names, f.Name)
	}
	want := []string{"ISO 27001", "SOC 2", "NIST CSF"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestFrameworks_DeleteUnknown_ReturnsNotFound(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	if err := store.DeleteFramework(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
