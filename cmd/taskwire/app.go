package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/checkpoint"
	"github.com/MikeSquared-Agency/taskwire/internal/config"
	"github.com/MikeSquared-Agency/taskwire/internal/extractor"
	"github.com/MikeSquared-Agency/taskwire/internal/hermes"
	"github.com/MikeSquared-Agency/taskwire/internal/importer"
	"github.com/MikeSquared-Agency/taskwire/internal/localstore"
	"github.com/MikeSquared-Agency/taskwire/internal/slack"
	"github.com/MikeSquared-Agency/taskwire/internal/store"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

// app holds the wired components shared by every command.
type app struct {
	cfg         config.Config
	logger      *slog.Logger
	local       *localstore.Store
	workspace   *workspace.Service
	checkpoints *checkpoint.Store
	remote      *store.Store
	nats        *hermes.Client
	events      *hermes.Events
	importer    *importer.Importer
	location    *time.Location
}

// openApp opens the local store and, when configured, the remote mirror and NATS.
// Remote sync is best-effort: connection failures are logged and skipped.
func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	local, err := localstore.Open(cfg.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		local:     local,
		workspace: workspace.NewService(local, logger),
	}

	if cfg.DatabaseURL != "" {
		if err := a.connectRemote(ctx); err != nil {
			logger.Warn("remote mirror unavailable, continuing local-only", "error", err)
		}
	}

	if cfg.NatsURL != "" {
		nc, err := hermes.NewClient(cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			logger.Warn("nats unavailable, events disabled", "error", err)
		} else {
			a.nats = nc
			a.events = hermes.NewEvents(nc)
			a.workspace.Subscribe(a.events.WorkspaceSubscriber(func(err error) {
				logger.Warn("failed to publish task event", "error", err)
			}))
			logger.Info("NATS connected", "url", cfg.NatsURL)
		}
	}

	var backend checkpoint.Backend = a.workspace
	if cfg.CheckpointFile != "" {
		fb := checkpoint.NewFileBackend(cfg.CheckpointFile)
		backend = checkpoint.WithNotify(fb, a.workspace.AnnounceState)
		logger.Debug("using checkpoint file", "path", fb.Path())
	}
	a.checkpoints = checkpoint.New(backend)

	return a, nil
}

func (a *app) connectRemote(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	remote, err := store.New(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := remote.EnsureSchema(ctx); err != nil {
		remote.Close()
		return err
	}
	a.remote = remote
	a.workspace.Subscribe(store.NewMirror(remote, a.logger).Handle)
	a.logger.Info("remote mirror connected")
	return nil
}

// withImporter builds the extraction provider and import pipeline.
// A missing API key fails here, before any network call.
func (a *app) withImporter() error {
	provider, err := extractor.NewProvider(extractor.ProviderConfig{
		Name:    a.cfg.LLMProvider,
		APIKey:  a.cfg.LLMAPIKey,
		Model:   a.cfg.LLMModel,
		BaseURL: a.cfg.LLMBaseURL,
	})
	if err != nil {
		return fmt.Errorf("%s provider: %w", a.cfg.LLMProvider, err)
	}

	loc, err := time.LoadLocation(a.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", a.cfg.Timezone, err)
	}
	a.location = loc

	a.importer = importer.New(a.workspace, a.checkpoints, extractor.New(provider, a.logger), importer.Options{
		CompanyID:    a.cfg.CompanyID,
		CompanyName:  a.cfg.CompanyName,
		ProjectName:  a.cfg.ProjectName,
		SectionName:  a.cfg.SectionName,
		LookbackDays: a.cfg.LookbackDays,
		MaxLines:     a.cfg.MaxTranscriptLines,
		Location:     loc,
	}, a.logger)

	if a.events != nil {
		a.importer.SetPublisher(a.events)
	}
	if a.cfg.SlackBotToken != "" && a.cfg.SlackChannel != "" {
		a.importer.SetNotifier(slack.NewPoster(a.cfg.SlackBotToken, a.cfg.SlackChannel, a.logger))
		a.logger.Info("slack poster ready", "channel", a.cfg.SlackChannel)
	}
	return nil
}

func (a *app) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.remote != nil {
		a.remote.Close()
	}
	if err := a.local.Close(); err != nil {
		a.logger.Warn("close local store", "error", err)
	}
}
