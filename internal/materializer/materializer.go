package materializer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/extractor"
	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

// TaskCreator is the shared task-creation operation. *workspace.Service satisfies it.
type TaskCreator interface {
	CreateTask(ctx context.Context, in workspace.NewTask) (workspace.Task, error)
}

type Input struct {
	Items       []extractor.CandidateActionItem
	Destination workspace.Destination
	Members     []workspace.Member
	Messages    []transcript.Message
	ChatName    string
	Location    *time.Location
}

type Materializer struct {
	tasks  TaskCreator
	logger *slog.Logger
	now    func() time.Time
}

func New(tasks TaskCreator, logger *slog.Logger) *Materializer {
	return &Materializer{tasks: tasks, logger: logger, now: time.Now}
}

// Materialize turns candidates into tasks under in.Destination. Items with an
// empty title are skipped and unusable fields degrade to their defaults. The
// first failed write aborts and returns the tasks created so far.
func (m *Materializer) Materialize(ctx context.Context, in Input) ([]workspace.Task, error) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	var created []workspace.Task
	skipped := 0
	for _, item := range in.Items {
		title := strings.TrimSpace(item.Title.String())
		if title == "" {
			skipped++
			continue
		}

		createdAt, sourced := m.createdAt(item, in.Messages)

		var excerpt *transcript.Message
		if sourced {
			excerpt = nearestMessage(in.Messages, createdAt, item.SourceSender.String())
		}

		task, err := m.tasks.CreateTask(ctx, workspace.NewTask{
			Kind:        workspace.KindTask,
			Source:      workspace.SourceWhatsApp,
			Title:       title,
			Description: composeDescription(item, title, excerpt, createdAt, in.ChatName, loc),
			Destination: in.Destination,
			AssigneeID:  resolveAssignee(item.Assignee.String(), in.Members),
			Priority:    workspace.NormalizePriority(item.Priority.String()),
			DueDate:     normalizeDueDate(item.DueDate.String()),
			CreatedAt:   createdAt,
		})
		if err != nil {
			return created, fmt.Errorf("create task %q: %w", title, err)
		}
		created = append(created, task)
	}

	if skipped > 0 {
		m.logger.Debug("skipped candidates without title", "count", skipped, "chat", in.ChatName)
	}
	return created, nil
}

// createdAt prefers the candidate's source timestamp and falls back to the
// newest message in the window. The bool reports whether the source parsed.
func (m *Materializer) createdAt(item extractor.CandidateActionItem, msgs []transcript.Message) (time.Time, bool) {
	if ts, ok := parseTimestamp(item.SourceTimestamp.String()); ok {
		return ts, true
	}
	if n := len(msgs); n > 0 {
		return msgs[n-1].Timestamp, false
	}
	return m.now().UTC(), false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// normalizeDueDate returns the UTC calendar date of raw as YYYY-MM-DD, or "".
func normalizeDueDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dueDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC().Format("2006-01-02")
		}
	}
	return ""
}

var assigneeSplit = regexp.MustCompile(`(?i)\s*(?:,|&|\band\b)\s*`)

// resolveAssignee matches the raw value against member names, case-insensitively
// and exactly. When the whole value does not match, each listed name is tried in
// order and the first match wins.
func resolveAssignee(raw string, members []workspace.Member) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return ""
	}
	if id := matchMember(raw, members); id != "" {
		return id
	}
	for _, part := range assigneeSplit.Split(raw, -1) {
		if id := matchMember(part, members); id != "" {
			return id
		}
	}
	return ""
}

func matchMember(name string, members []workspace.Member) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "null") {
		return ""
	}
	for _, mem := range members {
		if strings.EqualFold(strings.TrimSpace(mem.Name), name) {
			return mem.ID
		}
	}
	return ""
}

// nearestMessage finds the message closest to at within one second. A message
// from sender beats a closer one from someone else.
func nearestMessage(msgs []transcript.Message, at time.Time, sender string) *transcript.Message {
	sender = strings.TrimSpace(sender)
	var best *transcript.Message
	var bestDiff time.Duration
	bestSame := false

	for i := range msgs {
		diff := msgs[i].Timestamp.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff > time.Second {
			continue
		}
		same := sender != "" && strings.EqualFold(msgs[i].Sender, sender)
		switch {
		case best == nil,
			same && !bestSame,
			same == bestSame && diff < bestDiff:
			best, bestDiff, bestSame = &msgs[i], diff, same
		}
	}
	return best
}

func composeDescription(item extractor.CandidateActionItem, title string, excerpt *transcript.Message, at time.Time, chatName string, loc *time.Location) string {
	var segments []string

	if d := strings.TrimSpace(item.Description.String()); d != "" {
		segments = append(segments, d)
	} else {
		segments = append(segments, title)
	}

	if excerpt != nil {
		if text := strings.TrimSpace(excerpt.Text); text != "" {
			lines := strings.Split(text, "\n")
			for i, l := range lines {
				lines[i] = "> " + l
			}
			segments = append(segments, strings.Join(lines, "\n"))
		}
	}

	sender := strings.TrimSpace(item.SourceSender.String())
	if sender == "" && excerpt != nil {
		sender = excerpt.Sender
	}
	if sender != "" {
		segments = append(segments, fmt.Sprintf("Sender: %s \u00b7 %s", sender, at.In(loc).Format("2006-01-02 15:04")))
	}

	if chatName = strings.TrimSpace(chatName); chatName != "" {
		segments = append(segments, "Group chat: "+chatName)
	}

	return strings.Join(segments, "\n\n")
}
