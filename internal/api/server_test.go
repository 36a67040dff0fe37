package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikeSquared-Agency/taskwire/internal/extractor"
	"github.com/MikeSquared-Agency/taskwire/internal/importer"
	"github.com/MikeSquared-Agency/taskwire/internal/llm"
	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

type fakeImporter struct {
	req     importer.Request
	summary *importer.Summary
	err     error
	cps     map[string]string
}

func (f *fakeImporter) Run(_ context.Context, req importer.Request) (*importer.Summary, error) {
	f.req = req
	return f.summary, f.err
}

func (f *fakeImporter) Checkpoints(context.Context) (map[string]string, error) {
	return f.cps, nil
}

type fakeTasks struct {
	filter workspace.TaskFilter
	tasks  []workspace.Task
}

func (f *fakeTasks) Tasks(_ context.Context, filter workspace.TaskFilter) ([]workspace.Task, error) {
	f.filter = filter
	return f.tasks, nil
}

func newTestServer(imp *fakeImporter, tasks *fakeTasks, token string) *Server {
	return NewServer(imp, tasks, Options{Port: 8760, APIToken: token, Provider: "anthropic", Version: "test"})
}

func uploadRequest(t *testing.T, filename, companyID string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	if companyID != "" {
		mw.WriteField("company_id", companyID)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeImporter{}, &fakeTasks{}, "secret")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 without auth, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(&fakeImporter{}, &fakeTasks{}, "")

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["service"] != "taskwire" || body["provider"] != "anthropic" {
		t.Errorf("unexpected status body %v", body)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(&fakeImporter{}, &fakeTasks{}, "secret")

	for _, header := range []string{"", "Bearer wrong", "secret"} {
		req := httptest.NewRequest("GET", "/api/v1/status", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Authorization %q: expected 401, got %d", header, w.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", w.Code)
	}
}

func TestCreateImport(t *testing.T) {
	imp := &fakeImporter{summary: &importer.Summary{ChatName: "Team", TasksCreated: 2}}
	srv := newTestServer(imp, &fakeTasks{}, "")

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, uploadRequest(t, "WhatsApp Chat with Team.zip", "acme", []byte("zipdata")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if imp.req.CompanyID != "acme" || imp.req.Filename != "WhatsApp Chat with Team.zip" || string(imp.req.Data) != "zipdata" {
		t.Errorf("unexpected request %+v", imp.req)
	}
	var body importer.Summary
	json.NewDecoder(w.Body).Decode(&body)
	if body.ChatName != "Team" || body.TasksCreated != 2 {
		t.Errorf("unexpected summary %+v", body)
	}
}

func TestCreateImport_MissingFile(t *testing.T) {
	srv := newTestServer(&fakeImporter{}, &fakeTasks{}, "")

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, uploadRequest(t, "", "acme", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateImport_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{importer.ErrNoFile, http.StatusBadRequest},
		{fmt.Errorf("parse transcript: %w", transcript.ErrNoChatText), http.StatusUnprocessableEntity},
		{importer.ErrNoMessages, http.StatusUnprocessableEntity},
		{importer.ErrImportInProgress, http.StatusConflict},
		{&llm.APIError{Provider: "anthropic", StatusCode: 401, Message: "invalid x-api-key"}, http.StatusBadGateway},
		{extractor.ErrUnexpectedResponse, http.StatusBadGateway},
		{llm.ErrMissingAPIKey, http.StatusInternalServerError},
		{workspace.ErrNoCompany, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		srv := newTestServer(&fakeImporter{err: tt.err}, &fakeTasks{}, "")
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, uploadRequest(t, "chat.txt", "", []byte("x")))

		if w.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, w.Code)
		}
		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if body["error"] != tt.err.Error() {
			t.Errorf("expected verbatim error %q, got %q", tt.err.Error(), body["error"])
		}
	}
}

func TestListCheckpoints(t *testing.T) {
	imp := &fakeImporter{cps: map[string]string{"acme::Team": "2024-01-02T10:00:00Z"}}
	srv := newTestServer(imp, &fakeTasks{}, "")

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/checkpoints", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["acme::Team"] != "2024-01-02T10:00:00Z" {
		t.Errorf("unexpected checkpoints %v", body)
	}
}

func TestListTasks(t *testing.T) {
	tasks := &fakeTasks{tasks: []workspace.Task{{ID: "t1", Title: "Send invoice"}}}
	srv := newTestServer(&fakeImporter{}, tasks, "")

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/tasks?company_id=acme&source=whatsapp&limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if tasks.filter.CompanyID != "acme" || tasks.filter.Source != "whatsapp" || tasks.filter.Limit != 5 {
		t.Errorf("unexpected filter %+v", tasks.filter)
	}
	var body []workspace.Task
	json.NewDecoder(w.Body).Decode(&body)
	if len(body) != 1 || body[0].ID != "t1" {
		t.Errorf("unexpected tasks %+v", body)
	}
}

func TestListTasks_EmptyIsArray(t *testing.T) {
	srv := newTestServer(&fakeImporter{}, &fakeTasks{}, "")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/tasks", nil))
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(&fakeImporter{}, &fakeTasks{}, "")

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
