package workspace

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when a lookup has no match.
var ErrNotFound = errors.New("not found")

// Repository is the local-first persistence consumed by Service.
// The concrete implementation is *localstore.Store (SQLite).
type Repository interface {
	GetCompany(ctx context.Context, id string) (*Company, error)
	FindCompanyByName(ctx context.Context, name string) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	ListMembers(ctx context.Context, companyID string) ([]Member, error)

	FindProject(ctx context.Context, companyID, name string) (*Project, error)
	InsertProject(ctx context.Context, p Project) error
	FindSection(ctx context.Context, projectID, name string) (*Section, error)
	InsertSection(ctx context.Context, s Section) error

	InsertTask(ctx context.Context, t Task) error
	ListTasks(ctx context.Context, f TaskFilter) ([]Task, error)

	LoadState(ctx context.Context, key string) ([]byte, error)
	SaveState(ctx context.Context, key string, value []byte) error
}
