package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/taskwire/internal/extractor"
	"github.com/MikeSquared-Agency/taskwire/internal/importer"
	"github.com/MikeSquared-Agency/taskwire/internal/llm"
	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

const maxUploadBytes = 64 << 20

func (s *Server) createImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form: " + err.Error()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, importer.ErrNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
		return
	}

	summary, err := s.importer.Run(r.Context(), importer.Request{
		CompanyID: r.FormValue("company_id"),
		Filename:  header.Filename,
		Data:      data,
	})
	if err != nil {
		slog.Error("import failed",
			"request_id", middleware.GetReqID(r.Context()),
			"file", header.Filename,
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) listCheckpoints(w http.ResponseWriter, r *http.Request) {
	cps, err := s.importer.Checkpoints(r.Context())
	if err != nil {
		slog.Error("list checkpoints failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, cps)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 100
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	tasks, err := s.tasks.Tasks(r.Context(), workspace.TaskFilter{
		CompanyID: q.Get("company_id"),
		ProjectID: q.Get("project_id"),
		Source:    q.Get("source"),
		Limit:     limit,
	})
	if err != nil {
		slog.Error("list tasks failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if tasks == nil {
		tasks = []workspace.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, importer.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, transcript.ErrNoChatText),
		errors.Is(err, transcript.ErrAmbiguousChatText),
		errors.Is(err, importer.ErrNoMessages):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrImportInProgress):
		return http.StatusConflict
	case errors.As(err, &apiErr),
		errors.Is(err, extractor.ErrUnexpectedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
