package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/taskwire/internal/api"
	"github.com/MikeSquared-Agency/taskwire/internal/config"
	"github.com/MikeSquared-Agency/taskwire/internal/hermes"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the NATS import listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogging(cfg.LogLevel, os.Stdout)
			logger.Info("taskwire starting", "port", cfg.Port, "provider", cfg.LLMProvider)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withImporter(); err != nil {
				return err
			}

			if a.nats != nil && cfg.ImportDir != "" {
				handler := hermes.NewImportHandler(a.importer, cfg.ImportDir, logger)
				logger.Info("accepting NATS import requests", "dir", cfg.ImportDir)
				if err := a.nats.Subscribe(ctx, hermes.SubjectImportRequested, handler.Handle); err != nil {
					return err
				}
			}

			srv := api.NewServer(a.importer, a.workspace, api.Options{
				Port:     cfg.Port,
				APIToken: cfg.APIToken,
				Provider: cfg.LLMProvider,
				Version:  version,
			})
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			logger.Info("taskwire ready", "port", cfg.Port)

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					logger.Error("HTTP server error", "error", err)
					return err
				}
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP shutdown", "error", err)
			}
			logger.Info("taskwire stopped")
			return nil
		},
	}
}
