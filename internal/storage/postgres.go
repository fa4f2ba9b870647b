package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup, update, or delete targets a row
// that does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is the PostgreSQL-backed storage layer for the Cybether dashboard.
//
// Reads execute directly against the pool. Every write runs in its own
// transaction via withTx: a failure anywhere inside the function rolls the
// transaction back, so no partial mutation is ever visible to other
// requests. Cross-request coordination is left entirely to PostgreSQL's
// row-level isolation.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a pgxpool connection to connStr, pings the database, and applies
// the idempotent schema.
func New(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (or panic, via the deferred Rollback).
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// now returns the current naive-UTC timestamp used for all persisted times.
func now() time.Time {
	return time.Now().UTC()
}

// --- Users ---

// CreateUser inserts a new user row. The password hash must already be a
// bcrypt digest; plaintext passwords never reach this layer.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error) {
	u := User{
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now(),
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO users (username, password_hash, is_admin, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			u.Username, u.PasswordHash, u.IsAdmin, u.CreatedAt,
		).Scan(&u.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns the user with the given username, or ErrNotFound.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, is_admin, created_at
		FROM   users
		WHERE  username = $1`, username)
	return scanUser(row)
}

// GetUserByID returns the user with the given ID, or ErrNotFound.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, is_admin, created_at
		FROM   users
		WHERE  id = $1`, id)
	return scanUser(row)
}

// CountAdmins returns the number of users with the admin flag set.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE is_admin`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// --- ThreatLevel (append-only) ---

// LatestThreatLevel returns the current threat level: the row with the
// greatest updated_at. ErrNotFound when no row has ever been written.
func (s *Store) LatestThreatLevel(ctx context.Context) (*ThreatLevel, error) {
	var t ThreatLevel
	var level string
	err := s.pool.QueryRow(ctx, `
		SELECT id, level, description, updated_at
		FROM   threat_levels
		ORDER  BY updated_at DESC
		LIMIT  1`).Scan(&t.ID, &level, &t.Description, &t.UpdatedAt)
	if err != nil {
		return nil, wrapNoRows("latest threat level", err)
	}
	t.Level = Severity(level)
	return &t, nil
}

// InsertThreatLevel appends a new threat-level row. Existing rows are never
// touched; history accumulates by insertion.
func (s *Store) InsertThreatLevel(ctx context.Context, level Severity, description string) (*ThreatLevel, error) {
	t := ThreatLevel{
		Level:       level,
		Description: description,
		UpdatedAt:   now(),
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO threat_levels (level, description, updated_at)
			VALUES ($1, $2, $3)
			RETURNING id`,
			string(t.Level), t.Description, t.UpdatedAt,
		).Scan(&t.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("insert threat level: %w", err)
	}
	return &t, nil
}

// --- MaturityRating (append-only) ---

// LatestMaturityRating returns the current maturity rating, or ErrNotFound
// when no row has ever been written.
func (s *Store) LatestMaturityRating(ctx context.Context) (*MaturityRating, error) {
	var m MaturityRating
	err := s.pool.QueryRow(ctx, `
		SELECT id, score, trend, updated_at
		FROM   maturity_ratings
		ORDER  BY updated_at DESC
		LIMIT  1`).Scan(&m.ID, &m.Score, &m.Trend, &m.UpdatedAt)
	if err != nil {
		return nil, wrapNoRows("latest maturity rating", err)
	}
	return &m, nil
}

// InsertMaturityRating appends a new maturity-rating row.
func (s *Store) InsertMaturityRating(ctx context.Context, score float64, trend string) (*MaturityRating, error) {
	m := MaturityRating{
		Score:     score,
		Trend:     trend,
		UpdatedAt: now(),
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO maturity_ratings (score, trend, updated_at)
			VALUES ($1, $2, $3)
			RETURNING id`,
			m.Score, m.Trend, m.UpdatedAt,
		).Scan(&m.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("insert maturity rating: %w", err)
	}
	return &m, nil
}

// --- MaturityTrendPoint ---

// ListTrendPoints returns all trend points ordered by month ascending.
// The "YYYY-MM" month format makes lexical order chronological.
func (s *Store) ListTrendPoints(ctx context.Context) ([]MaturityTrendPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, month, score, created_at
		FROM   maturity_trend_points
		ORDER  BY month`)
	if err != nil {
		return nil, fmt.Errorf("list trend points: %w", err)
	}
	defer rows.Close()

	var points []MaturityTrendPoint
	for rows.Next() {
		var p MaturityTrendPoint
		if err := rows.Scan(&p.ID, &p.Month, &p.Score, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// UpsertTrendPoint inserts a score for month or, when a row for that month
// already exists, updates its score in place.
func (s *Store) UpsertTrendPoint(ctx context.Context, month string, score float64) (*MaturityTrendPoint, error) {
	p := MaturityTrendPoint{
		Month:     month,
		Score:     score,
		CreatedAt: now(),
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO maturity_trend_points (month, score, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (month) DO UPDATE SET score = EXCLUDED.score
			RETURNING id, created_at`,
			p.Month, p.Score, p.CreatedAt,
		).Scan(&p.ID, &p.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert trend point %q: %w", month, err)
	}
	return &p, nil
}

// DeleteTrendPoint removes the trend point for month. ErrNotFound when no
// row exists for that month.
func (s *Store) DeleteTrendPoint(ctx context.Context, month string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM maturity_trend_points WHERE month = $1`, month)
		if err != nil {
			return fmt.Errorf("delete trend point %q: %w", month, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Risk ---

// ListRisks returns all risks ordered by severity rank (Critical first,
// then High, Medium, Low) and, within equal severity, by updated_at
// descending.
func (s *Store) ListRisks(ctx context.Context) ([]Risk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, description, severity, status, created_at, updated_at
		FROM   risks
		ORDER  BY CASE severity
		            WHEN 'Critical' THEN 1
		            WHEN 'High'     THEN 2
		            WHEN 'Medium'   THEN 3
		            WHEN 'Low'      THEN 4
		          END,
		          updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list risks: %w", err)
	}
	defer rows.Close()

	var risks []Risk
	for rows.Next() {
		r, err := scanRisk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk: %w", err)
		}
		risks = append(risks, *r)
	}
	return risks, rows.Err()
}

// CreateRisk inserts a new risk with both timestamps set to now.
func (s *Store) CreateRisk(ctx context.Context, r Risk) (*Risk, error) {
	ts := now()
	r.CreatedAt = ts
	r.UpdatedAt = ts
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO risks (title, description, severity, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			r.Title, r.Description, string(r.Severity), string(r.Status),
			r.CreatedAt, r.UpdatedAt,
		).Scan(&r.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create risk: %w", err)
	}
	return &r, nil
}

// UpdateRisk applies a partial update to the risk with the given ID and
// returns the resulting row. Nil patch fields are left untouched;
// updated_at always advances. ErrNotFound when the ID is absent.
func (s *Store) UpdateRisk(ctx context.Context, id int64, p RiskPatch) (*Risk, error) {
	var r *Risk
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id, title, description, severity, status, created_at, updated_at
			FROM   risks
			WHERE  id = $1
			FOR UPDATE`, id)
		cur, err := scanRisk(row)
		if err != nil {
			return wrapNoRows(fmt.Sprintf("risk %d", id), err)
		}

		if p.Title != nil {
			cur.Title = *p.Title
		}
		if p.Description != nil {
			cur.Description = *p.Description
		}
		if p.Severity != nil {
			cur.Severity = *p.Severity
		}
		if p.Status != nil {
			cur.Status = *p.Status
		}
		cur.UpdatedAt = now()

		_, err = tx.Exec(ctx, `
			UPDATE risks
			SET    title = $2, description = $3, severity = $4, status = $5, updated_at = $6
			WHERE  id = $1`,
			cur.ID, cur.Title, cur.Description,
			string(cur.Severity), string(cur.Status), cur.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update risk %d: %w", id, err)
		}
		r = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRisk removes the risk with the given ID. ErrNotFound when absent.
func (s *Store) DeleteRisk(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM risks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete risk %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Project ---

// ListProjects returns all projects ordered by due_date ascending. Projects
// without a due date sort last (PostgreSQL's default NULLS LAST for ASC).
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, status, completion_percentage,
		       start_date, due_date, created_at, updated_at
		FROM   projects
		ORDER  BY due_date`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// CreateProject inserts a new project with both timestamps set to now.
// The caller is responsible for defaulting StartDate when absent from the
// request.
func (s *Store) CreateProject(ctx context.Context, p Project) (*Project, error) {
	ts := now()
	p.CreatedAt = ts
	p.UpdatedAt = ts
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO projects
				(name, description, status, completion_percentage,
				 start_date, due_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			p.Name, p.Description, string(p.Status), p.CompletionPercentage,
			p.StartDate, p.DueDate, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

// UpdateProject applies a partial update to the project with the given ID
// and returns the resulting row. ErrNotFound when the ID is absent.
func (s *Store) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*Project, error) {
	var p *Project
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id, name, description, status, completion_percentage,
			       start_date, due_date, created_at, updated_at
			FROM   projects
			WHERE  id = $1
			FOR UPDATE`, id)
		cur, err := scanProject(row)
		if err != nil {
			return wrapNoRows(fmt.Sprintf("project %d", id), err)
		}

		if patch.Name != nil {
			cur.Name = *patch.Name
		}
		if patch.Description != nil {
			cur.Description = *patch.Description
		}
		if patch.Status != nil {
			cur.Status = *patch.Status
		}
		if patch.CompletionPercentage != nil {
			cur.CompletionPercentage = *patch.CompletionPercentage
		}
		if patch.StartDate != nil {
			cur.StartDate = *patch.StartDate
		}
		if patch.DueDate != nil {
			cur.DueDate = patch.DueDate
		}
		cur.UpdatedAt = now()

		_, err = tx.Exec(ctx, `
			UPDATE projects
			SET    name = $2, description = $3, status = $4,
			       completion_percentage = $5, start_date = $6, due_date = $7,
			       updated_at = $8
			WHERE  id = $1`,
			cur.ID, cur.Name, cur.Description, string(cur.Status),
			cur.CompletionPercentage, cur.StartDate, cur.DueDate, cur.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update project %d: %w", id, err)
		}
		p = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes the project with the given ID. ErrNotFound when
// absent.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete project %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetProjectStats aggregates counts over the projects table in one query.
// A project is overdue when its due date has passed and it is not
// Completed; projects without a due date are never overdue.
func (s *Store) GetProjectStats(ctx context.Context) (*ProjectStats, error) {
	var st ProjectStats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'Completed'),
		       count(*) FILTER (WHERE status = 'In Progress'),
		       count(*) FILTER (WHERE due_date < $1 AND status <> 'Completed')
		FROM   projects`, now(),
	).Scan(&st.Total, &st.Completed, &st.InProgress, &st.Overdue)
	if err != nil {
		return nil, fmt.Errorf("project stats: %w", err)
	}
	return &st, nil
}

// --- ComplianceFramework ---

// ListFrameworks returns all compliance frameworks ordered by current score
// descending.
func (s *Store) ListFrameworks(ctx context.Context) ([]ComplianceFramework, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, current_score, target_score,
		       last_assessment_date, next_assessment_date, created_at, updated_at
		FROM   compliance_frameworks
		ORDER  BY current_score DESC`)
	if err != nil {
		return nil, fmt.Errorf("list frameworks: %w", err)
	}
	defer rows.Close()

	var frameworks []ComplianceFramework
	for rows.Next() {
		f, err := scanFramework(rows)
		if err != nil {
			return nil, fmt.Errorf("scan framework: %w", err)
		}
		frameworks = append(frameworks, *f)
	}
	return frameworks, rows.Err()
}

// CreateFramework inserts a new compliance framework. NextAssessmentDate is
// derived here from LastAssessmentDate; any value the caller put in that
// field is ignored.
func (s *Store) CreateFramework(ctx context.Context, f ComplianceFramework) (*ComplianceFramework, error) {
	ts := now()
	f.NextAssessmentDate = f.LastAssessmentDate.Add(AssessmentInterval)
	f.CreatedAt = ts
	f.UpdatedAt = ts
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO compliance_frameworks
				(name, current_score, target_score,
				 last_assessment_date, next_assessment_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			f.Name, f.CurrentScore, f.TargetScore,
			f.LastAssessmentDate, f.NextAssessmentDate, f.CreatedAt, f.UpdatedAt,
		).Scan(&f.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create framework: %w", err)
	}
	return &f, nil
}

// UpdateFramework applies a partial update to the framework with the given
// ID and returns the resulting row. Changing LastAssessmentDate recomputes
// NextAssessmentDate. ErrNotFound when the ID is absent.
func (s *Store) UpdateFramework(ctx context.Context, id int64, patch CompliancePatch) (*ComplianceFramework, error) {
	var f *ComplianceFramework
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id, name, current_score, target_score,
			       last_assessment_date, next_assessment_date, created_at, updated_at
			FROM   compliance_frameworks
			WHERE  id = $1
			FOR UPDATE`, id)
		cur, err := scanFramework(row)
		if err != nil {
			return wrapNoRows(fmt.Sprintf("framework %d", id), err)
		}

		if patch.Name != nil {
			cur.Name = *patch.Name
		}
		if patch.CurrentScore != nil {
			cur.CurrentScore = *patch.CurrentScore
		}
		if patch.TargetScore != nil {
			cur.TargetScore = *patch.TargetScore
		}
		if patch.LastAssessmentDate != nil {
			cur.LastAssessmentDate = *patch.LastAssessmentDate
			cur.NextAssessmentDate = cur.LastAssessmentDate.Add(AssessmentInterval)
		}
		cur.UpdatedAt = now()

		_, err = tx.Exec(ctx, `
			UPDATE compliance_frameworks
			SET    name = $2, current_score = $3, target_score = $4,
			       last_assessment_date = $5, next_assessment_date = $6,
			       updated_at = $7
			WHERE  id = $1`,
			cur.ID, cur.Name, cur.CurrentScore, cur.TargetScore,
			cur.LastAssessmentDate, cur.NextAssessmentDate, cur.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update framework %d: %w", id, err)
		}
		f = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFramework removes the framework with the given ID. ErrNotFound when
// absent.
func (s *Store) DeleteFramework(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM compliance_frameworks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete framework %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- internal helpers ---

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing shared scan
// helpers across single-row and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, wrapNoRows("user", err)
	}
	return &u, nil
}

func scanRisk(s scanner) (*Risk, error) {
	var r Risk
	var severity, status string
	err := s.Scan(&r.ID, &r.Title, &r.Description, &severity, &status,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Severity = Severity(severity)
	r.Status = RiskStatus(status)
	return &r, nil
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var status string
	err := s.Scan(&p.ID, &p.Name, &p.Description, &status,
		&p.CompletionPercentage, &p.StartDate, &p.DueDate,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = ProjectStatus(status)
	return &p, nil
}

func scanFramework(s scanner) (*ComplianceFramework, error) {
	var f ComplianceFramework
	err := s.Scan(&f.ID, &f.Name, &f.CurrentScore, &f.TargetScore,
		&f.LastAssessmentDate, &f.NextAssessmentDate,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// wrapNoRows maps pgx.ErrNoRows onto ErrNotFound, wrapping any other error
// with context.
func wrapNoRows(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
