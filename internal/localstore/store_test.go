package localstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "workspace.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCompaniesAndMembers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCompany(ctx, "Acme")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	if _, err := s.CreateMember(ctx, c.ID, "Alice", "alice@acme.test"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateMember(ctx, c.ID, "Bob", ""); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindCompanyByName(ctx, "acme")
	if err != nil || got.ID != c.ID {
		t.Fatalf("FindCompanyByName: %v %+v", err, got)
	}
	members, err := s.ListMembers(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].Name != "Alice" || members[1].Name != "Bob" {
		t.Errorf("unexpected members %+v", members)
	}

	if _, err := s.CreateMember(ctx, "missing", "Carol", ""); !errors.Is(err, workspace.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown company, got %v", err)
	}
	if _, err := s.GetCompany(ctx, "missing"); !errors.Is(err, workspace.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.CreateCompany(ctx, "ACME"); err == nil {
		t.Error("expected duplicate company name to fail")
	}
}

func TestProjectsSectionsTasks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c, _ := s.CreateCompany(ctx, "Acme")

	if _, err := s.FindProject(ctx, c.ID, "WhatsApp Tasks"); !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p := workspace.Project{ID: "p1", CompanyID: c.ID, Name: "WhatsApp Tasks", CreatedAt: time.Now()}
	if err := s.InsertProject(ctx, p); err != nil {
		t.Fatal(err)
	}
	sec := workspace.Section{ID: "s1", ProjectID: "p1", Name: "WhatsApp Tasks"}
	if err := s.InsertSection(ctx, sec); err != nil {
		t.Fatal(err)
	}
	if got, err := s.FindSection(ctx, "p1", "WhatsApp Tasks"); err != nil || got.ID != "s1" {
		t.Fatalf("FindSection: %v %+v", err, got)
	}

	older := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{older, newer} {
		err := s.InsertTask(ctx, workspace.Task{
			ID: []string{"t1", "t2"}[i], Kind: workspace.KindTask, Source: workspace.SourceWhatsApp,
			Title: "task", ProjectID: "p1", SectionID: "s1", CompanyID: c.ID,
			Priority: workspace.PriorityHigh, CreatedAt: at, UpdatedAt: at,
		})
		if err != nil {
			t.Fatalf("InsertTask: %v", err)
		}
	}
	deleted := newer
	if err := s.InsertTask(ctx, workspace.Task{ID: "t3", Title: "gone", CompanyID: c.ID, CreatedAt: newer, UpdatedAt: newer, DeletedAt: &deleted}); err != nil {
		t.Fatal(err)
	}

	tasks, err := s.ListTasks(ctx, workspace.TaskFilter{CompanyID: c.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 live tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "t2" || !tasks[0].CreatedAt.Equal(newer) {
		t.Errorf("expected newest first, got %+v", tasks[0])
	}
	if tasks[1].Priority != workspace.PriorityHigh || tasks[1].Source != workspace.SourceWhatsApp {
		t.Errorf("fields not round-tripped: %+v", tasks[1])
	}

	limited, _ := s.ListTasks(ctx, workspace.TaskFilter{CompanyID: c.ID, Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit 1, got %d", len(limited))
	}
}

func TestState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadState(ctx, "whatsappImportState"); !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SaveState(ctx, "whatsappImportState", []byte(`{"a":"1"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveState(ctx, "whatsappImportState", []byte(`{"a":"2"}`)); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadState(ctx, "whatsappImportState")
	if err != nil || string(got) != `{"a":"2"}` {
		t.Fatalf("LoadState = %q %v", got, err)
	}
}

func TestServiceOverSQLite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c, _ := s.CreateCompany(ctx, "Acme")

	svc := workspace.NewService(s, discardLogger())
	dest, err := svc.EnsureDestination(ctx, c, "WhatsApp Tasks", "WhatsApp Tasks")
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.EnsureDestination(ctx, c, "WhatsApp Tasks", "WhatsApp Tasks")
	if err != nil {
		t.Fatal(err)
	}
	if dest.Section.ID != again.Section.ID {
		t.Error("destination should be found on second call")
	}
	if _, err := svc.CreateTask(ctx, workspace.NewTask{Title: "Ship it", Destination: dest, Source: workspace.SourceWhatsApp}); err != nil {
		t.Fatal(err)
	}
	tasks, _ := svc.Tasks(ctx, workspace.TaskFilter{CompanyID: c.ID})
	if len(tasks) != 1 || tasks[0].SectionID != dest.Section.ID {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
