package workspace

import (
	"strings"
	"time"
)

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Department struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
}

type Member struct {
	ID           string `json:"id"`
	CompanyID    string `json:"companyId"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
}

type Project struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Section struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Destination is where imported tasks land.
type Destination struct {
	Company Company `json:"company"`
	Project Project `json:"project"`
	Section Section `json:"section"`
}

const (
	KindTask    = "task"
	KindMeeting = "meeting"
	KindEmail   = "email"

	SourceManual   = "manual"
	SourceWhatsApp = "whatsapp"
)

type Task struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Source       string     `json:"source"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ProjectID    string     `json:"projectId"`
	SectionID    string     `json:"sectionId"`
	CompanyID    string     `json:"companyId"`
	AssigneeID   string     `json:"assigneeId"`
	DepartmentID string     `json:"departmentId"`
	Priority     Priority   `json:"priority"`
	DueDate      string     `json:"dueDate"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Completed    bool       `json:"completed"`
	DeletedAt    *time.Time `json:"deletedAt"`
}

// NewTask is the input of Service.CreateTask.
type NewTask struct {
	Kind        string
	Source      string
	Title       string
	Description string
	Destination Destination
	AssigneeID  string
	Priority    Priority
	DueDate     string
	CreatedAt   time.Time
}

type TaskFilter struct {
	CompanyID string
	ProjectID string
	Source    string
	Limit     int
}

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityVeryHigh Priority = "very-high"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityOptional Priority = "optional"

	DefaultPriority = PriorityMedium
)

var priorities = []Priority{
	PriorityCritical, PriorityVeryHigh, PriorityHigh, PriorityMedium, PriorityLow, PriorityOptional,
}

// Priorities returns the priority levels from most to least urgent.
func Priorities() []Priority {
	out := make([]Priority, len(priorities))
	copy(out, priorities)
	return out
}

// NormalizePriority maps raw input onto the six levels. Case, surrounding space
// and "_" or " " in place of "-" are tolerated; anything else is medium.
func NormalizePriority(raw string) Priority {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	for _, p := range priorities {
		if s == string(p) {
			return p
		}
	}
	return DefaultPriority
}
