package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

const schema = `
CREATE TABLE IF NOT EXISTS taskwire_documents (
    key        TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS taskwire_tasks (
    id          TEXT PRIMARY KEY,
    company_id  TEXT NOT NULL,
    project_id  TEXT NOT NULL,
    section_id  TEXT NOT NULL,
    source      TEXT NOT NULL,
    title       TEXT NOT NULL,
    priority    TEXT NOT NULL,
    due_date    TEXT NOT NULL DEFAULT '',
    completed   BOOLEAN NOT NULL DEFAULT false,
    doc         JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS taskwire_tasks_company ON taskwire_tasks (company_id, created_at DESC);
`

// Store mirrors workspace data into PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the mirror tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) UpsertTask(ctx context.Context, t workspace.Task) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO taskwire_tasks (id, company_id, project_id, section_id, source, title, priority,
			due_date, completed, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			priority = EXCLUDED.priority,
			due_date = EXCLUDED.due_date,
			completed = EXCLUDED.completed,
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at`,
		t.ID, t.CompanyID, t.ProjectID, t.SectionID, t.Source, t.Title, string(t.Priority),
		t.DueDate, t.Completed, doc, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// SaveDocument stores a JSON document under key, replacing any previous one.
func (s *Store) SaveDocument(ctx context.Context, key string, doc []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO taskwire_documents (key, doc, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		key, doc,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}
	return nil
}

// LoadDocument returns the document under key, or workspace.ErrNotFound.
func (s *Store) LoadDocument(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, "SELECT doc FROM taskwire_documents WHERE key = $1", key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workspace.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", key, err)
	}
	return doc, nil
}

func (s *Store) CountTasks(ctx context.Context, companyID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM taskwire_tasks WHERE company_id = $1", companyID).Scan(&n)
	return n, err
}
