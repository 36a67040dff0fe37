// Package backfill imports a directory of WhatsApp exports in one resumable run.
package backfill

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/importer"
	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
)

// Config holds the backfill command configuration.
type Config struct {
	Dir        string
	SingleFile string // process a single file only
	CompanyID  string
	StatePath  string
	Location   *time.Location
	BatchSize  int           // files per batch before pausing; 0 disables pausing
	BatchPause time.Duration // pause between batches
}

// ImportRunner runs one import. *importer.Importer satisfies it.
type ImportRunner interface {
	Run(ctx context.Context, req importer.Request) (*importer.Summary, error)
}

// TextPoster posts a plain summary. *slack.Poster satisfies it.
type TextPoster interface {
	PostText(ctx context.Context, text string) error
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg      Config
	importer ImportRunner
	poster   TextPoster
	logger   *slog.Logger
}

// NewRunner creates a backfill runner.
func NewRunner(cfg Config, imp ImportRunner, logger *slog.Logger) *Runner {
	if cfg.BatchPause <= 0 {
		cfg.BatchPause = 30 * time.Second
	}
	return &Runner{cfg: cfg, importer: imp, logger: logger}
}

// SetPoster sets an optional destination for the final summary.
func (r *Runner) SetPoster(p TextPoster) { r.poster = p }

type parsedFile struct {
	path   string
	data   []byte
	tr     *transcript.Transcript
	latest time.Time
}

// Run imports every export under the configured directory that earlier runs
// have not finished. A failed file is recorded and left unprocessed so the
// next run retries it.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	report := &Report{Discovered: len(files), StartedAt: time.Now().UTC()}
	r.logger.Info("files discovered", "count", len(files))

	var parsed []parsedFile
	var fps []fileFingerprint
	for _, path := range files {
		if state.IsProcessed(path) {
			report.Skipped++
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			r.fail(state, report, path, "", fmt.Errorf("read: %w", err))
			continue
		}
		tr, err := transcript.Parse(filepath.Base(path), data, transcript.Options{Location: r.cfg.Location})
		if err != nil {
			r.fail(state, report, path, "", fmt.Errorf("parse: %w", err))
			continue
		}
		pf := parsedFile{path: path, data: data, tr: tr}
		if n := len(tr.Messages); n > 0 {
			pf.latest = tr.Messages[n-1].Timestamp
		}
		parsed = append(parsed, pf)
		fps = append(fps, BuildFingerprint(path, tr))
	}

	duplicates := FindDuplicates(fps)

	// Older exports first so each chat's checkpoint advances in order.
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].latest.Before(parsed[j].latest) })

	var queue []parsedFile
	for _, pf := range parsed {
		if duplicates[pf.path] {
			r.logger.Info("skipping duplicate export", "path", pf.path, "chat", pf.tr.ChatName)
			state.MarkProcessed(pf.path)
			report.Duplicates++
			continue
		}
		queue = append(queue, pf)
	}

	state.FilesRemaining = len(queue)
	if err := state.Save(); err != nil {
		r.logger.Warn("failed to save backfill state", "error", err)
	}

	inBatch := 0
	for _, pf := range queue {
		select {
		case <-ctx.Done():
			r.logger.Info("backfill interrupted, saving state")
			_ = state.Save()
			return r.finish(ctx, report), ctx.Err()
		default:
		}

		r.logger.Info("importing file", "path", pf.path, "chat", pf.tr.ChatName, "messages", len(pf.tr.Messages))

		summary, err := r.importer.Run(ctx, importer.Request{
			CompanyID: r.cfg.CompanyID,
			Filename:  filepath.Base(pf.path),
			Data:      pf.data,
		})
		if err != nil {
			r.fail(state, report, pf.path, pf.tr.ChatName, err)
			state.FilesRemaining--
			_ = state.Save()
			continue
		}

		fsum := FileSummary{
			Path:         pf.path,
			ChatName:     summary.ChatName,
			Eligible:     summary.MessagesEligible,
			TasksCreated: summary.TasksCreated,
			NoNew:        summary.NoNewMessages,
		}
		if !pf.latest.IsZero() {
			fsum.Date = pf.latest.UTC().Format("2006-01-02")
		}
		report.Files = append(report.Files, fsum)
		report.Imported++
		report.TasksCreated += summary.TasksCreated

		state.MarkProcessed(pf.path)
		state.TasksCreated += summary.TasksCreated
		state.FilesRemaining--
		if err := state.Save(); err != nil {
			r.logger.Warn("failed to save backfill state", "error", err)
		}

		// Rate limiting: pause after batch-size files that reached the LLM.
		if !summary.NoNewMessages {
			inBatch++
		}
		if r.cfg.BatchSize > 0 && inBatch >= r.cfg.BatchSize {
			inBatch = 0
			r.logger.Info("batch complete, pausing", "pause", r.cfg.BatchPause.String())
			select {
			case <-ctx.Done():
				_ = state.Save()
				return r.finish(ctx, report), ctx.Err()
			case <-time.After(r.cfg.BatchPause):
			}
		}
	}

	r.logger.Info("backfill complete",
		"imported", report.Imported,
		"skipped", report.Skipped,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
		"tasks_created", report.TasksCreated,
		"state_file", state.Path(),
	)
	return r.finish(ctx, report), nil
}

func (r *Runner) fail(state *BackfillState, report *Report, path, chat string, err error) {
	r.logger.Error("backfill file failed", "path", path, "error", err)
	state.AddError(fmt.Sprintf("%s: %v", path, err))
	report.Failed++
	report.Files = append(report.Files, FileSummary{Path: path, ChatName: chat, Err: err.Error()})
}

func (r *Runner) finish(ctx context.Context, report *Report) *Report {
	report.FinishedAt = time.Now().UTC()
	if r.poster == nil || (report.Imported == 0 && report.Failed == 0) {
		return report
	}
	if err := r.poster.PostText(ctx, FormatReport(report)); err != nil {
		r.logger.Warn("failed to post backfill summary", "error", err)
	}
	return report
}

// FormatReport renders the run grouped by the date of each export's newest message.
func FormatReport(report *Report) string {
	byDate := make(map[string][]FileSummary)
	for _, f := range report.Files {
		date := f.Date
		if date == "" {
			date = "unknown"
		}
		byDate[date] = append(byDate[date], f)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var sb strings.Builder
	fmt.Fprintf(&sb, "*WhatsApp backfill:* %d imported, %d failed, %d duplicates, %d tasks created\n",
		report.Imported, report.Failed, report.Duplicates, report.TasksCreated)

	for _, date := range dates {
		fmt.Fprintf(&sb, "\n*%s*\n", date)
		for _, f := range byDate[date] {
			name := filepath.Base(f.Path)
			switch {
			case f.Err != "":
				fmt.Fprintf(&sb, "  - %s: failed (%s)\n", name, f.Err)
			case f.NoNew:
				fmt.Fprintf(&sb, "  - %s [%s]: no new messages\n", name, f.ChatName)
			default:
				fmt.Fprintf(&sb, "  - %s [%s]: %d messages, %d tasks\n", name, f.ChatName, f.Eligible, f.TasksCreated)
			}
		}
	}
	return sb.String()
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		path := expandHome(r.cfg.SingleFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("single file not found: %s", path)
		}
		return []string{path}, nil
	}

	dir := expandHome(r.cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if d.IsDir() {
			if d.Name() == "__MACOSX" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".txt", ".zip":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("error walking export dir", "dir", dir, "error", err)
	}
	sort.Strings(files)
	return files, nil
}
