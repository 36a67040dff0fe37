package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

// MockRepository is a thread-safe in-memory implementation of workspace.Repository for testing.
type MockRepository struct {
	mu sync.Mutex

	Companies map[string]workspace.Company
	Members   []workspace.Member
	Projects  map[string]workspace.Project
	Sections  map[string]workspace.Section
	Tasks     []workspace.Task
	State     map[string][]byte

	InsertTaskErr error
	SaveStateErr  error

	InsertTaskCalls int
	SaveStateCalls  int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		Companies: make(map[string]workspace.Company),
		Projects:  make(map[string]workspace.Project),
		Sections:  make(map[string]workspace.Section),
		State:     make(map[string][]byte),
	}
}

// AddCompany seeds a company and its members.
func (m *MockRepository) AddCompany(c workspace.Company, members ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Companies[c.ID] = c
	for i, name := range members {
		m.Members = append(m.Members, workspace.Member{
			ID:        c.ID + "-member-" + string(rune('a'+i)),
			CompanyID: c.ID,
			Name:      name,
		})
	}
}

func (m *MockRepository) GetCompany(_ context.Context, id string) (*workspace.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Companies[id]
	if !ok {
		return nil, workspace.ErrNotFound
	}
	return &c, nil
}

func (m *MockRepository) FindCompanyByName(_ context.Context, name string) (*workspace.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Companies {
		if strings.EqualFold(c.Name, name) {
			c := c
			return &c, nil
		}
	}
	return nil, workspace.ErrNotFound
}

func (m *MockRepository) ListCompanies(_ context.Context) ([]workspace.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]workspace.Company, 0, len(m.Companies))
	for _, c := range m.Companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockRepository) ListMembers(_ context.Context, companyID string) ([]workspace.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []workspace.Member
	for _, mem := range m.Members {
		if mem.CompanyID == companyID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *MockRepository) FindProject(_ context.Context, companyID, name string) (*workspace.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Projects {
		if p.CompanyID == companyID && p.Name == name {
			p := p
			return &p, nil
		}
	}
	return nil, workspace.ErrNotFound
}

func (m *MockRepository) InsertProject(_ context.Context, p workspace.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Projects[p.ID] = p
	return nil
}

func (m *MockRepository) FindSection(_ context.Context, projectID, name string) (*workspace.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Sections {
		if s.ProjectID == projectID && s.Name == name {
			s := s
			return &s, nil
		}
	}
	return nil, workspace.ErrNotFound
}

func (m *MockRepository) InsertSection(_ context.Context, s workspace.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sections[s.ID] = s
	return nil
}

func (m *MockRepository) InsertTask(_ context.Context, t workspace.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertTaskCalls++
	if m.InsertTaskErr != nil {
		return m.InsertTaskErr
	}
	m.Tasks = append(m.Tasks, t)
	return nil
}

func (m *MockRepository) ListTasks(_ context.Context, f workspace.TaskFilter) ([]workspace.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []workspace.Task
	for _, t := range m.Tasks {
		if f.CompanyID != "" && t.CompanyID != f.CompanyID {
			continue
		}
		if f.ProjectID != "" && t.ProjectID != f.ProjectID {
			continue
		}
		if f.Source != "" && t.Source != f.Source {
			continue
		}
		out = append(out, t)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MockRepository) LoadState(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.State[key]
	if !ok {
		return nil, workspace.ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *MockRepository) SaveState(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveStateCalls++
	if m.SaveStateErr != nil {
		return m.SaveStateErr
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.State[key] = cp
	return nil
}

// TaskCount returns the number of stored tasks.
func (m *MockRepository) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Tasks)
}
