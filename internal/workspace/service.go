package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoCompany     = errors.New("no destination company configured")
	ErrEmptyTitle    = errors.New("task title is required")
	ErrNoDestination = errors.New("destination project and section names are required")
)

type EventType string

const (
	EventTaskCreated    EventType = "task.created"
	EventProjectCreated EventType = "project.created"
	EventSectionCreated EventType = "section.created"
	EventStateSaved     EventType = "state.saved"
)

// Event describes one committed mutation. Only the fields relevant to Type are set.
type Event struct {
	Type     EventType
	Task     *Task
	Project  *Project
	Section  *Section
	StateKey string
	State    []byte
}

// Service is the single mutation point for workspace data. Every committed
// change is delivered to subscribers after the local write succeeds.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	subscribers []func(context.Context, Event)

	destMu sync.Mutex
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Subscribe registers fn for every committed event. Subscribers run
// synchronously in registration order; they must not call back into Service mutations.
func (s *Service) Subscribe(fn func(context.Context, Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Service) emit(ctx context.Context, evt Event) {
	s.mu.RLock()
	subs := make([]func(context.Context, Event), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, evt)
	}
}

// ResolveCompany picks the company by id, falling back to a lookup by name.
func (s *Service) ResolveCompany(ctx context.Context, id, name string) (*Company, error) {
	if id = strings.TrimSpace(id); id != "" {
		c, err := s.repo.GetCompany(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: company %q does not exist", ErrNoCompany, id)
			}
			return nil, fmt.Errorf("get company: %w", err)
		}
		return c, nil
	}
	if name = strings.TrimSpace(name); name != "" {
		c, err := s.repo.FindCompanyByName(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: company %q does not exist", ErrNoCompany, name)
			}
			return nil, fmt.Errorf("find company: %w", err)
		}
		return c, nil
	}
	return nil, ErrNoCompany
}

func (s *Service) Members(ctx context.Context, companyID string) ([]Member, error) {
	return s.repo.ListMembers(ctx, companyID)
}

func (s *Service) Tasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	return s.repo.ListTasks(ctx, f)
}

// EnsureDestination returns the named project and section under company,
// creating either on first use.
func (s *Service) EnsureDestination(ctx context.Context, company Company, projectName, sectionName string) (Destination, error) {
	projectName = strings.TrimSpace(projectName)
	sectionName = strings.TrimSpace(sectionName)
	if projectName == "" || sectionName == "" {
		return Destination{}, ErrNoDestination
	}

	s.destMu.Lock()
	defer s.destMu.Unlock()

	project, err := s.repo.FindProject(ctx, company.ID, projectName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Destination{}, fmt.Errorf("find project: %w", err)
	}
	if project == nil {
		project = &Project{
			ID:        uuid.NewString(),
			CompanyID: company.ID,
			Name:      projectName,
			CreatedAt: s.now().UTC(),
		}
		if err := s.repo.InsertProject(ctx, *project); err != nil {
			return Destination{}, fmt.Errorf("insert project: %w", err)
		}
		s.logger.Info("project created", "project_id", project.ID, "company_id", company.ID, "name", projectName)
		s.emit(ctx, Event{Type: EventProjectCreated, Project: project})
	}

	section, err := s.repo.FindSection(ctx, project.ID, sectionName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Destination{}, fmt.Errorf("find section: %w", err)
	}
	if section == nil {
		section = &Section{
			ID:        uuid.NewString(),
			ProjectID: project.ID,
			Name:      sectionName,
			CreatedAt: s.now().UTC(),
		}
		if err := s.repo.InsertSection(ctx, *section); err != nil {
			return Destination{}, fmt.Errorf("insert section: %w", err)
		}
		s.logger.Info("section created", "section_id", section.ID, "project_id", project.ID, "name", sectionName)
		s.emit(ctx, Event{Type: EventSectionCreated, Section: section})
	}

	return Destination{Company: company, Project: *project, Section: *section}, nil
}

// CreateTask is the shared task-creation operation.
func (s *Service) CreateTask(ctx context.Context, in NewTask) (Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}

	now := s.now().UTC()
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	kind := in.Kind
	if kind == "" {
		kind = KindTask
	}
	source := in.Source
	if source == "" {
		source = SourceManual
	}

	t := Task{
		ID:          uuid.NewString(),
		Kind:        kind,
		Source:      source,
		Title:       title,
		Description: in.Description,
		ProjectID:   in.Destination.Project.ID,
		SectionID:   in.Destination.Section.ID,
		CompanyID:   in.Destination.Company.ID,
		AssigneeID:  in.AssigneeID,
		Priority:    NormalizePriority(string(in.Priority)),
		DueDate:     in.DueDate,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   now,
	}

	if err := s.repo.InsertTask(ctx, t); err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	s.emit(ctx, Event{Type: EventTaskCreated, Task: &t})
	return t, nil
}

// LoadState returns a named state blob, or nil when it was never saved.
func (s *Service) LoadState(ctx context.Context, key string) ([]byte, error) {
	data, err := s.repo.LoadState(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (s *Service) SaveState(ctx context.Context, key string, value []byte) error {
	if err := s.repo.SaveState(ctx, key, value); err != nil {
		return fmt.Errorf("save state %s: %w", key, err)
	}
	s.AnnounceState(ctx, key, value)
	return nil
}

// AnnounceState emits state.saved for a blob persisted somewhere other than
// the repository, such as a checkpoint file.
func (s *Service) AnnounceState(ctx context.Context, key string, value []byte) {
	s.emit(ctx, Event{Type: EventStateSaved, StateKey: key, State: value})
}
