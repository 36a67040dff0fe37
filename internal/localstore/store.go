package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS companies (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS companies_name ON companies (name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS departments (
    id         TEXT PRIMARY KEY,
    company_id TEXT NOT NULL REFERENCES companies(id),
    name       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    id            TEXT PRIMARY KEY,
    company_id    TEXT NOT NULL REFERENCES companies(id),
    name          TEXT NOT NULL,
    email         TEXT NOT NULL DEFAULT '',
    department_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS projects (
    id         TEXT PRIMARY KEY,
    company_id TEXT NOT NULL REFERENCES companies(id),
    name       TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT '',
    UNIQUE (company_id, name)
);

CREATE TABLE IF NOT EXISTS sections (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    name       TEXT NOT NULL,
    position   INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT '',
    UNIQUE (project_id, name)
);

CREATE TABLE IF NOT EXISTS tasks (
    id            TEXT PRIMARY KEY,
    kind          TEXT NOT NULL DEFAULT 'task',
    source        TEXT NOT NULL DEFAULT 'manual',
    title         TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    project_id    TEXT NOT NULL DEFAULT '',
    section_id    TEXT NOT NULL DEFAULT '',
    company_id    TEXT NOT NULL DEFAULT '',
    assignee_id   TEXT NOT NULL DEFAULT '',
    department_id TEXT NOT NULL DEFAULT '',
    priority      TEXT NOT NULL DEFAULT 'medium',
    due_date      TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    completed     INTEGER NOT NULL DEFAULT 0,
    deleted_at    TEXT
);

CREATE INDEX IF NOT EXISTS tasks_company ON tasks (company_id, created_at);

CREATE TABLE IF NOT EXISTS workspace_state (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Store is the SQLite-backed workspace.Repository.
type Store struct {
	db *sql.DB
}

var _ workspace.Repository = (*Store)(nil)

// Open creates the database file (and its directory) if needed and applies the schema.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps PRAGMAs in effect and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateCompany inserts a company with a fresh id.
func (s *Store) CreateCompany(ctx context.Context, name string) (workspace.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return workspace.Company{}, errors.New("company name is required")
	}
	c := workspace.Company{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO companies (id, name, created_at) VALUES (?, ?, ?)",
		c.ID, c.Name, formatTime(c.CreatedAt),
	)
	if err != nil {
		return workspace.Company{}, fmt.Errorf("insert company: %w", err)
	}
	return c, nil
}

// CreateMember adds a member to an existing company.
func (s *Store) CreateMember(ctx context.Context, companyID, name, email string) (workspace.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return workspace.Member{}, errors.New("member name is required")
	}
	if _, err := s.GetCompany(ctx, companyID); err != nil {
		return workspace.Member{}, err
	}
	m := workspace.Member{ID: uuid.NewString(), CompanyID: companyID, Name: name, Email: strings.TrimSpace(email)}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO members (id, company_id, name, email, department_id) VALUES (?, ?, ?, ?, '')",
		m.ID, m.CompanyID, m.Name, m.Email,
	)
	if err != nil {
		return workspace.Member{}, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*workspace.Company, error) {
	return s.scanCompany(s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM companies WHERE id = ?", id))
}

func (s *Store) FindCompanyByName(ctx context.Context, name string) (*workspace.Company, error) {
	return s.scanCompany(s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM companies WHERE name = ? COLLATE NOCASE", name))
}

func (s *Store) scanCompany(row *sql.Row) (*workspace.Company, error) {
	var c workspace.Company
	var created string
	err := row.Scan(&c.ID, &c.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan company: %w", err)
	}
	c.CreatedAt = parseTime(created)
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]workspace.Company, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM companies ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []workspace.Company
	for rows.Next() {
		var c workspace.Company
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &created); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListMembers(ctx context.Context, companyID string) ([]workspace.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, company_id, name, email, department_id FROM members WHERE company_id = ? ORDER BY rowid",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []workspace.Member
	for rows.Next() {
		var m workspace.Member
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.Name, &m.Email, &m.DepartmentID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) FindProject(ctx context.Context, companyID, name string) (*workspace.Project, error) {
	var p workspace.Project
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_id, name, created_at FROM projects WHERE company_id = ? AND name = ?",
		companyID, name,
	).Scan(&p.ID, &p.CompanyID, &p.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

func (s *Store) InsertProject(ctx context.Context, p workspace.Project) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, company_id, name, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.CompanyID, p.Name, formatTime(p.CreatedAt),
	)
	return err
}

func (s *Store) FindSection(ctx context.Context, projectID, name string) (*workspace.Section, error) {
	var sec workspace.Section
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, name, position, created_at FROM sections WHERE project_id = ? AND name = ?",
		projectID, name,
	).Scan(&sec.ID, &sec.ProjectID, &sec.Name, &sec.Position, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find section: %w", err)
	}
	sec.CreatedAt = parseTime(created)
	return &sec, nil
}

func (s *Store) InsertSection(ctx context.Context, sec workspace.Section) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sections (id, project_id, name, position, created_at) VALUES (?, ?, ?, ?, ?)",
		sec.ID, sec.ProjectID, sec.Name, sec.Position, formatTime(sec.CreatedAt),
	)
	return err
}

func (s *Store) InsertTask(ctx context.Context, t workspace.Task) error {
	var deleted any
	if t.DeletedAt != nil {
		deleted = formatTime(*t.DeletedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, source, title, description, project_id, section_id, company_id,
			assignee_id, department_id, priority, due_date, created_at, updated_at, completed, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Kind, t.Source, t.Title, t.Description, t.ProjectID, t.SectionID, t.CompanyID,
		t.AssigneeID, t.DepartmentID, string(t.Priority), t.DueDate,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), t.Completed, deleted,
	)
	return err
}

// ListTasks returns non-deleted tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, f workspace.TaskFilter) ([]workspace.Task, error) {
	query := `SELECT id, kind, source, title, description, project_id, section_id, company_id,
		assignee_id, department_id, priority, due_date, created_at, updated_at, completed, deleted_at
		FROM tasks WHERE deleted_at IS NULL`
	var args []any
	if f.CompanyID != "" {
		query += " AND company_id = ?"
		args = append(args, f.CompanyID)
	}
	if f.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.Source != "" {
		query += " AND source = ?"
		args = append(args, f.Source)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []workspace.Task
	for rows.Next() {
		var t workspace.Task
		var priority, created, updated string
		var deleted sql.NullString
		if err := rows.Scan(&t.ID, &t.Kind, &t.Source, &t.Title, &t.Description, &t.ProjectID,
			&t.SectionID, &t.CompanyID, &t.AssigneeID, &t.DepartmentID, &priority, &t.DueDate,
			&created, &updated, &t.Completed, &deleted); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Priority = workspace.Priority(priority)
		t.CreatedAt = parseTime(created)
		t.UpdatedAt = parseTime(updated)
		if deleted.Valid {
			at := parseTime(deleted.String)
			t.DeletedAt = &at
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) LoadState(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM workspace_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return value, nil
}

func (s *Store) SaveState(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	return err
}
