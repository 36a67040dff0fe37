package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MikeSquared-Agency/taskwire/internal/importer"
)

// ErrOutsideImportDir is returned for request paths that resolve outside the
// configured import directory.
var ErrOutsideImportDir = errors.New("path outside import directory")

type ImportRunner interface {
	Run(ctx context.Context, req importer.Request) (*importer.Summary, error)
}

// ImportHandler runs imports requested over NATS. Requests may only name files
// inside dir; relative paths are taken relative to it.
type ImportHandler struct {
	runner ImportRunner
	dir    string
	logger *slog.Logger
}

func NewImportHandler(runner ImportRunner, dir string, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{runner: runner, dir: dir, logger: logger}
}

// Handle processes one import request payload.
func (h *ImportHandler) Handle(ctx context.Context, subject string, data []byte) {
	summary, err := h.handle(ctx, data)
	if err != nil {
		h.logger.Error("import request failed", "subject", subject, "error", err)
		return
	}
	h.logger.Info("import request handled",
		"chat", summary.ChatName,
		"tasks_created", summary.TasksCreated,
		"no_new_messages", summary.NoNewMessages,
	)
}

func (h *ImportHandler) handle(ctx context.Context, data []byte) (*importer.Summary, error) {
	var req ImportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse import request: %w", err)
	}
	if req.Path == "" {
		return nil, importer.ErrNoFile
	}
	path, err := h.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}
	return h.runner.Run(ctx, importer.Request{
		CompanyID: req.CompanyID,
		Filename:  filepath.Base(path),
		Data:      content,
	})
}

// resolve maps a requested path to a real file under the import directory,
// following symlinks before the containment check.
func (h *ImportHandler) resolve(requested string) (string, error) {
	if h.dir == "" {
		return "", fmt.Errorf("%s: %w", requested, ErrOutsideImportDir)
	}
	base, err := filepath.Abs(h.dir)
	if err != nil {
		return "", fmt.Errorf("import dir: %w", err)
	}
	if real, err := filepath.EvalSymlinks(base); err == nil {
		base = real
	}

	path := requested
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", requested, ErrOutsideImportDir)
	}
	return path, nil
}
