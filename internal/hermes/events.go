package hermes

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/taskwire/internal/importer"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

const (
	SubjectTaskCreated     = "taskwire.task.created"
	SubjectImportCompleted = "taskwire.import.completed"
	SubjectImportRequested = "taskwire.import.requested"

	source = "taskwire"
)

// Envelope wraps every published payload.
type Envelope struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type ImportCompleted struct {
	ChatName     string     `json:"chat_name"`
	ChatKey      string     `json:"chat_key"`
	CompanyID    string     `json:"company_id"`
	ProjectID    string     `json:"project_id,omitempty"`
	Eligible     int        `json:"messages_eligible"`
	Candidates   int        `json:"candidates"`
	TasksCreated int        `json:"tasks_created"`
	TaskIDs      []string   `json:"task_ids"`
	Checkpoint   *time.Time `json:"checkpoint,omitempty"`
}

// ImportRequest asks a serving instance to import an export from a local path.
type ImportRequest struct {
	CompanyID string `json:"company_id"`
	Path      string `json:"path"`
}

type publisher interface {
	Publish(subject string, data any) error
}

// Events publishes domain events. It implements importer.Publisher and
// provides a workspace subscriber for created tasks.
type Events struct {
	pub publisher
	now func() time.Time
}

func NewEvents(pub publisher) *Events {
	return &Events{pub: pub, now: time.Now}
}

func (e *Events) envelope(eventType string, data any) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		Source:    source,
		EventType: eventType,
		Timestamp: e.now().UTC(),
		Data:      data,
	}
}

func (e *Events) PublishImportCompleted(_ context.Context, s importer.Summary) error {
	ids := make([]string, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		ids = append(ids, t.ID)
	}
	return e.pub.Publish(SubjectImportCompleted, e.envelope("import.completed", ImportCompleted{
		ChatName:     s.ChatName,
		ChatKey:      s.ChatKey,
		CompanyID:    s.CompanyID,
		ProjectID:    s.ProjectID,
		Eligible:     s.MessagesEligible,
		Candidates:   s.Candidates,
		TasksCreated: s.TasksCreated,
		TaskIDs:      ids,
		Checkpoint:   s.Checkpoint,
	}))
}

func (e *Events) PublishTaskCreated(t workspace.Task) error {
	return e.pub.Publish(SubjectTaskCreated, e.envelope(string(workspace.EventTaskCreated), t))
}

// WorkspaceSubscriber returns a workspace.Service subscriber that publishes
// created tasks. Publish failures are passed to onError.
func (e *Events) WorkspaceSubscriber(onError func(error)) func(context.Context, workspace.Event) {
	return func(_ context.Context, evt workspace.Event) {
		if evt.Type != workspace.EventTaskCreated || evt.Task == nil {
			return
		}
		if err := e.PublishTaskCreated(*evt.Task); err != nil && onError != nil {
			onError(err)
		}
	}
}
