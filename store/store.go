// Package store persists manager reports and team reviews in SQLite. It is
// the durable side of the workflow: everything else flows through topics,
// but the latest synthesized report must survive restarts and be readable
// by other processes, and team reviews arrive out of band long before the
// round that analyzes them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	body TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);

CREATE TABLE IF NOT EXISTS team_reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	body TEXT NOT NULL,
	team_member TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_team_reviews_created ON team_reviews(created_at);
`

// DefaultPath is where Open puts the database when no path is
// configured.
const DefaultPath = "squire.db"

var (
	// ErrNoReport is returned when no manager report has been stored yet.
	ErrNoReport = errors.New("no report stored")
	// ErrNoReview is returned when no team review has been stored yet.
	ErrNoReview = errors.New("no team review stored")
)

// Report is one stored manager report. Body holds the report document as
// JSON text.
type Report struct {
	ID        int64
	Body      string
	CreatedAt time.Time
}

// TeamReview is one piece of team feedback awaiting analysis.
type TeamReview struct {
	ID         int64
	Body       string
	TeamMember string
	CreatedAt  time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath, creating the parent
// directory when needed. Call Migrate before first use.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveReport stores body as the newest manager report.
func (s *Store) SaveReport(ctx context.Context, body string) (Report, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO reports(body, created_at) VALUES(?, ?)`,
		body, now.Unix(),
	)
	if err != nil {
		return Report{}, fmt.Errorf("save report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Report{}, fmt.Errorf("save report id: %w", err)
	}
	return Report{ID: id, Body: body, CreatedAt: unixToTime(now.Unix())}, nil
}

// LatestReport returns the most recently stored report, or ErrNoReport.
func (s *Store) LatestReport(ctx context.Context) (Report, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, body, created_at FROM reports ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	var r Report
	var created int64
	if err := row.Scan(&r.ID, &r.Body, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrNoReport
		}
		return Report{}, fmt.Errorf("latest report: %w", err)
	}
	r.CreatedAt = unixToTime(created)
	return r, nil
}

// ListReports returns up to limit reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]Report, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, body, created_at FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		var created int64
		if err := rows.Scan(&r.ID, &r.Body, &created); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt = unixToTime(created)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// AddTeamReview stores one piece of team feedback. An empty teamMember is
// recorded as Anonymous.
func (s *Store) AddTeamReview(ctx context.Context, body, teamMember string) (TeamReview, error) {
	if teamMember == "" {
		teamMember = "Anonymous"
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO team_reviews(body, team_member, created_at) VALUES(?, ?, ?)`,
		body, teamMember, now.Unix(),
	)
	if err != nil {
		return TeamReview{}, fmt.Errorf("add team review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return TeamReview{}, fmt.Errorf("add team review id: %w", err)
	}
	return TeamReview{ID: id, Body: body, TeamMember: teamMember, CreatedAt: unixToTime(now.Unix())}, nil
}

// LatestTeamReview returns the most recent review, or ErrNoReview.
func (s *Store) LatestTeamReview(ctx context.Context) (TeamReview, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, body, team_member, created_at FROM team_reviews ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	var tr TeamReview
	var created int64
	if err := row.Scan(&tr.ID, &tr.Body, &tr.TeamMember, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TeamReview{}, ErrNoReview
		}
		return TeamReview{}, fmt.Errorf("latest team review: %w", err)
	}
	tr.CreatedAt = unixToTime(created)
	return tr, nil
}

// ListTeamReviews returns up to limit reviews, newest first.
func (s *Store) ListTeamReviews(ctx context.Context, limit int) ([]TeamReview, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, body, team_member, created_at FROM team_reviews ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list team reviews: %w", err)
	}
	defer rows.Close()

	var reviews []TeamReview
	for rows.Next() {
		var tr TeamReview
		var created int64
		if err := rows.Scan(&tr.ID, &tr.Body, &tr.TeamMember, &created); err != nil {
			return nil, fmt.Errorf("scan team review: %w", err)
		}
		tr.CreatedAt = unixToTime(created)
		reviews = append(reviews, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list team reviews: %w", err)
	}
	return reviews, nil
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
