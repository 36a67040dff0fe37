package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

// Writer is the subset of *Store used by Mirror.
type Writer interface {
	UpsertTask(ctx context.Context, t workspace.Task) error
	SaveDocument(ctx context.Context, key string, doc []byte) error
}

// Mirror copies committed workspace events to the remote store. Failures are
// logged and never reach the caller. After a failed write the mirror stays
// quiet for a cooldown so an unreachable database costs one timeout, not one
// per event.
type Mirror struct {
	w        Writer
	logger   *slog.Logger
	timeout  time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	downUntil time.Time
	skipped   int
}

func NewMirror(w Writer, logger *slog.Logger) *Mirror {
	return &Mirror{
		w:        w,
		logger:   logger,
		timeout:  5 * time.Second,
		cooldown: time.Minute,
		now:      time.Now,
	}
}

// Handle is a workspace.Service subscriber.
func (m *Mirror) Handle(ctx context.Context, evt workspace.Event) {
	if m.suspended() {
		m.logger.Debug("remote mirror suspended, event skipped", "event", string(evt.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	var err error
	switch evt.Type {
	case workspace.EventTaskCreated:
		if evt.Task != nil {
			err = m.w.UpsertTask(ctx, *evt.Task)
		}
	case workspace.EventProjectCreated:
		if evt.Project != nil {
			err = m.saveJSON(ctx, "project:"+evt.Project.ID, evt.Project)
		}
	case workspace.EventSectionCreated:
		if evt.Section != nil {
			err = m.saveJSON(ctx, "section:"+evt.Section.ID, evt.Section)
		}
	case workspace.EventStateSaved:
		err = m.w.SaveDocument(ctx, "state:"+evt.StateKey, evt.State)
	}
	m.record(evt, err)
}

func (m *Mirror) suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.now().Before(m.downUntil) {
		m.skipped++
		return true
	}
	return false
}

func (m *Mirror) record(evt workspace.Event, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.downUntil = m.now().Add(m.cooldown)
		m.logger.Warn("remote mirror write failed", "event", string(evt.Type), "error", err, "retry_after", m.cooldown)
		return
	}
	if m.skipped > 0 {
		m.logger.Warn("remote mirror resumed", "skipped_events", m.skipped)
		m.skipped = 0
	}
}

func (m *Mirror) saveJSON(ctx context.Context, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.w.SaveDocument(ctx, key, doc)
}
