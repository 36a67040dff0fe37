package materializer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/extractor"
	"github.com/MikeSquared-Agency/taskwire/internal/testutil"
	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	t1 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*Materializer, *testutil.MockRepository, Input) {
	t.Helper()
	repo := testutil.NewMockRepository()
	svc := workspace.NewService(repo, discardLogger())
	dest := workspace.Destination{
		Company: workspace.Company{ID: "acme", Name: "Acme"},
		Project: workspace.Project{ID: "p1", CompanyID: "acme", Name: "WhatsApp Tasks"},
		Section: workspace.Section{ID: "s1", ProjectID: "p1", Name: "WhatsApp Tasks"},
	}
	in := Input{
		Destination: dest,
		Members: []workspace.Member{
			{ID: "m-alice", CompanyID: "acme", Name: "Alice"},
			{ID: "m-bob", CompanyID: "acme", Name: "Bob Smith"},
		},
		Messages: []transcript.Message{
			{Timestamp: t1, Sender: "Alice", Text: "Bob please send the invoice"},
			{Timestamp: t1, Sender: "Carol", Text: "same second, other sender"},
			{Timestamp: t2, Sender: "Bob Smith", Text: "will do"},
		},
		ChatName: "Team",
	}
	return New(svc, discardLogger()), repo, in
}

func TestMaterialize_FullItem(t *testing.T) {
	m, repo, in := setup(t)
	in.Items = []extractor.CandidateActionItem{{
		Title:           "Send invoice",
		Description:     "Invoice for December",
		Assignee:        "bob smith",
		DueDate:         "2024-01-05",
		Priority:        "High",
		SourceTimestamp: "2024-01-01T10:00:00Z",
		SourceSender:    "Alice",
	}}

	tasks, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || repo.TaskCount() != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Source != workspace.SourceWhatsApp || task.Kind != workspace.KindTask {
		t.Errorf("source/kind = %s/%s", task.Source, task.Kind)
	}
	if task.AssigneeID != "m-bob" {
		t.Errorf("assignee = %q", task.AssigneeID)
	}
	if task.DueDate != "2024-01-05" {
		t.Errorf("dueDate = %q", task.DueDate)
	}
	if task.Priority != workspace.PriorityHigh {
		t.Errorf("priority = %s", task.Priority)
	}
	if !task.CreatedAt.Equal(t1) {
		t.Errorf("createdAt = %v", task.CreatedAt)
	}
	if task.ProjectID != "p1" || task.SectionID != "s1" || task.CompanyID != "acme" {
		t.Errorf("destination not attached: %+v", task)
	}

	want := "Invoice for December\n\n> Bob please send the invoice\n\nSender: Alice \u00b7 2024-01-01 10:00\n\nGroup chat: Team"
	if task.Description != want {
		t.Errorf("description =\n%q\nwant\n%q", task.Description, want)
	}
}

func TestMaterialize_Defaults(t *testing.T) {
	m, _, in := setup(t)
	in.Items = []extractor.CandidateActionItem{
		{Title: "  "},
		{Title: "Book venue", Assignee: "null", Priority: "URGENT", DueDate: "sometime", SourceTimestamp: "yesterday-ish"},
	}

	tasks, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("empty titles must be skipped, got %d tasks", len(tasks))
	}
	task := tasks[0]
	if task.AssigneeID != "" {
		t.Errorf("literal null should be unassigned, got %q", task.AssigneeID)
	}
	if task.Priority != workspace.PriorityMedium {
		t.Errorf("unknown priority should be medium, got %s", task.Priority)
	}
	if task.DueDate != "" {
		t.Errorf("unparseable due date should be empty, got %q", task.DueDate)
	}
	if !task.CreatedAt.Equal(t2) {
		t.Errorf("createdAt should fall back to the newest message, got %v", task.CreatedAt)
	}
	if task.Description != "Book venue\n\nGroup chat: Team" {
		t.Errorf("description = %q", task.Description)
	}
}

func TestMaterialize_CreateErrorAborts(t *testing.T) {
	m, repo, in := setup(t)
	repo.InsertTaskErr = errors.New("disk full")
	in.Items = []extractor.CandidateActionItem{{Title: "A"}, {Title: "B"}}

	tasks, err := m.Materialize(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(tasks) != 0 || repo.InsertTaskCalls != 1 {
		t.Errorf("expected abort after first failure, got %d tasks, %d calls", len(tasks), repo.InsertTaskCalls)
	}
}

func TestResolveAssignee(t *testing.T) {
	members := []workspace.Member{
		{ID: "a", Name: "Alice"},
		{ID: "b", Name: "Bob Smith"},
		{ID: "c", Name: "Sand & Stone"},
	}
	tests := map[string]string{
		"":                    "",
		"NULL":                "",
		"alice":               "a",
		" Bob Smith ":         "b",
		"Bob":                 "",
		"Carol, Alice":        "a",
		"Alice and Bob Smith": "a",
		"Dave & bob smith":    "b",
		"Sand & Stone":        "c",
		"+44 7700 900123":     "",
	}
	for raw, want := range tests {
		if got := resolveAssignee(raw, members); got != want {
			t.Errorf("resolveAssignee(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeDueDate(t *testing.T) {
	tests := map[string]string{
		"2024-01-05":                "2024-01-05",
		"2024-01-05T18:00:00Z":      "2024-01-05",
		"2024-01-05T01:00:00+05:30": "2024-01-04",
		"January 5, 2024":           "2024-01-05",
		"2024/01/05":                "2024-01-05",
		"next week":                 "",
		"":                          "",
	}
	for raw, want := range tests {
		if got := normalizeDueDate(raw); got != want {
			t.Errorf("normalizeDueDate(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNearestMessage(t *testing.T) {
	msgs := []transcript.Message{
		{Timestamp: t1, Sender: "Carol", Text: "exact, other sender"},
		{Timestamp: t1.Add(800 * time.Millisecond), Sender: "Alice", Text: "close, same sender"},
		{Timestamp: t1.Add(3 * time.Second), Sender: "Alice", Text: "too far"},
	}

	if got := nearestMessage(msgs, t1, "alice"); got == nil || got.Text != "close, same sender" {
		t.Errorf("expected same-sender match, got %+v", got)
	}
	if got := nearestMessage(msgs, t1, "Dave"); got == nil || got.Text != "exact, other sender" {
		t.Errorf("expected closest match, got %+v", got)
	}
	if got := nearestMessage(msgs, t1.Add(10*time.Second), "Alice"); got != nil {
		t.Errorf("expected no match beyond one second, got %+v", got)
	}
}

func TestComposeDescription_MultilineExcerpt(t *testing.T) {
	excerpt := &transcript.Message{Timestamp: t1, Sender: "Alice", Text: "line one\nline two"}
	got := composeDescription(extractor.CandidateActionItem{}, "Title", excerpt, t1, "", time.UTC)
	if !strings.Contains(got, "> line one\n> line two") {
		t.Errorf("excerpt not quoted per line: %q", got)
	}
	if !strings.Contains(got, "Sender: Alice") {
		t.Errorf("sender should fall back to the excerpt sender: %q", got)
	}
	if strings.Contains(got, "Group chat") {
		t.Errorf("empty chat name should be omitted: %q", got)
	}
}
