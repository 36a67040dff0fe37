// Package importer runs the WhatsApp import pipeline: parse, window, extract,
// materialize and checkpoint.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/checkpoint"
	"github.com/MikeSquared-Agency/taskwire/internal/extractor"
	"github.com/MikeSquared-Agency/taskwire/internal/materializer"
	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
	"github.com/MikeSquared-Agency/taskwire/internal/window"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

var (
	ErrNoFile           = errors.New("no file selected")
	ErrNoMessages       = errors.New("no messages found in the chat export")
	ErrImportInProgress = errors.New("an import for this chat is already running")
)

// Publisher announces finished imports, e.g. on NATS.
type Publisher interface {
	PublishImportCompleted(ctx context.Context, s Summary) error
}

// Notifier posts a human-readable summary, e.g. to Slack.
type Notifier interface {
	PostImportSummary(ctx context.Context, s Summary) error
}

type Options struct {
	CompanyID    string
	CompanyName  string
	ProjectName  string
	SectionName  string
	LookbackDays int
	MaxLines     int
	Location     *time.Location
	Now          func() time.Time
}

type Request struct {
	CompanyID string
	Filename  string
	Data      []byte
}

// Summary reports one import run.
type Summary struct {
	ChatName         string           `json:"chat_name"`
	ChatKey          string           `json:"chat_key"`
	CompanyID        string           `json:"company_id"`
	ProjectID        string           `json:"project_id,omitempty"`
	SectionID        string           `json:"section_id,omitempty"`
	MessagesParsed   int              `json:"messages_parsed"`
	MessagesEligible int              `json:"messages_eligible"`
	RangeStart       *time.Time       `json:"range_start,omitempty"`
	RangeEnd         *time.Time       `json:"range_end,omitempty"`
	Candidates       int              `json:"candidates"`
	TasksCreated     int              `json:"tasks_created"`
	Tasks            []workspace.Task `json:"tasks"`
	NoNewMessages    bool             `json:"no_new_messages"`
	Checkpoint       *time.Time       `json:"checkpoint,omitempty"`
}

type Importer struct {
	workspace    *workspace.Service
	checkpoints  *checkpoint.Store
	extractor    *extractor.Extractor
	materializer *materializer.Materializer
	opts         Options
	logger       *slog.Logger

	publisher Publisher
	notifier  Notifier

	mu      sync.Mutex
	running map[string]struct{}
}

func New(ws *workspace.Service, cps *checkpoint.Store, ext *extractor.Extractor, opts Options, logger *slog.Logger) *Importer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Importer{
		workspace:    ws,
		checkpoints:  cps,
		extractor:    ext,
		materializer: materializer.New(ws, logger),
		opts:         opts,
		logger:       logger,
		running:      make(map[string]struct{}),
	}
}

// SetPublisher sets an optional publisher for finished imports.
func (im *Importer) SetPublisher(p Publisher) { im.publisher = p }

// SetNotifier sets an optional notifier for finished imports.
func (im *Importer) SetNotifier(n Notifier) { im.notifier = n }

// Run imports one chat export. Any failure before the checkpoint write leaves
// the checkpoint unchanged, so a retry reprocesses the same window.
func (im *Importer) Run(ctx context.Context, req Request) (*Summary, error) {
	if len(req.Data) == 0 {
		return nil, ErrNoFile
	}

	tr, err := transcript.Parse(req.Filename, req.Data, transcript.Options{Location: im.opts.Location})
	if err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	if len(tr.Messages) == 0 {
		return nil, ErrNoMessages
	}

	companyID := req.CompanyID
	if companyID == "" {
		companyID = im.opts.CompanyID
	}
	company, err := im.workspace.ResolveCompany(ctx, companyID, im.opts.CompanyName)
	if err != nil {
		return nil, err
	}

	key := checkpoint.Key(company.ID, tr.ChatName)
	if !im.acquire(key) {
		return nil, ErrImportInProgress
	}
	defer im.release(key)

	log := im.logger.With("chat", tr.ChatName, "company_id", company.ID)

	prior, err := im.checkpoints.Get(ctx, company.ID, tr.ChatName)
	if err != nil {
		return nil, err
	}

	w := window.Select(tr.Messages, prior, window.Options{
		LookbackDays: im.opts.LookbackDays,
		MaxLines:     im.opts.MaxLines,
		Now:          im.opts.Now,
	})

	summary := &Summary{
		ChatName:         tr.ChatName,
		ChatKey:          key,
		CompanyID:        company.ID,
		MessagesParsed:   len(tr.Messages),
		MessagesEligible: len(w.Messages),
		Checkpoint:       prior,
		Tasks:            []workspace.Task{},
	}

	if w.Empty() {
		summary.NoNewMessages = true
		log.Info("no new messages", "parsed", len(tr.Messages))
		return summary, nil
	}
	start, end := w.Earliest, w.Latest
	summary.RangeStart, summary.RangeEnd = &start, &end

	memberList, err := im.workspace.Members(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	names := make([]string, 0, len(memberList))
	for _, m := range memberList {
		names = append(names, m.Name)
	}

	items, err := im.extractor.Extract(ctx, extractor.Request{
		ChatName: tr.ChatName,
		Messages: w.Messages,
		Members:  names,
		Now:      im.opts.Now(),
		Location: im.opts.Location,
	})
	if err != nil {
		return nil, err
	}
	summary.Candidates = len(items)

	dest, err := im.workspace.EnsureDestination(ctx, *company, im.opts.ProjectName, im.opts.SectionName)
	if err != nil {
		return nil, err
	}
	summary.ProjectID = dest.Project.ID
	summary.SectionID = dest.Section.ID

	tasks, err := im.materializer.Materialize(ctx, materializer.Input{
		Items:       items,
		Destination: dest,
		Members:     memberList,
		Messages:    w.Messages,
		ChatName:    tr.ChatName,
		Location:    im.opts.Location,
	})
	if err != nil {
		return nil, err
	}
	summary.Tasks = append(summary.Tasks, tasks...)
	summary.TasksCreated = len(tasks)

	stored, err := im.checkpoints.Set(ctx, company.ID, tr.ChatName, w.Latest)
	if err != nil {
		return nil, err
	}
	summary.Checkpoint = &stored

	log.Info("import complete",
		"eligible", len(w.Messages),
		"candidates", len(items),
		"tasks_created", len(tasks),
		"checkpoint", stored.Format(time.RFC3339),
	)

	im.announce(ctx, *summary)
	return summary, nil
}

func (im *Importer) announce(ctx context.Context, s Summary) {
	if im.publisher != nil {
		if err := im.publisher.PublishImportCompleted(ctx, s); err != nil {
			im.logger.Warn("failed to publish import completion", "chat", s.ChatName, "error", err)
		}
	}
	if im.notifier != nil {
		if err := im.notifier.PostImportSummary(ctx, s); err != nil {
			im.logger.Warn("failed to post import summary", "chat", s.ChatName, "error", err)
		}
	}
}

func (im *Importer) acquire(key string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, busy := im.running[key]; busy {
		return false
	}
	im.running[key] = struct{}{}
	return true
}

func (im *Importer) release(key string) {
	im.mu.Lock()
	delete(im.running, key)
	im.mu.Unlock()
}

// Checkpoints lists every stored checkpoint.
func (im *Importer) Checkpoints(ctx context.Context) (map[string]string, error) {
	return im.checkpoints.All(ctx)
}
