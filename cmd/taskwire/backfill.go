package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/taskwire/internal/backfill"
	"github.com/MikeSquared-Agency/taskwire/internal/config"
	"github.com/MikeSquared-Agency/taskwire/internal/slack"
)

func backfillCmd() *cobra.Command {
	var cfgBF backfill.Config
	var pause time.Duration

	cmd := &cobra.Command{
		Use:   "backfill <dir>",
		Short: "Import every WhatsApp export in a directory",
		Long: `Walks a directory for .txt and .zip exports and imports each one, oldest
first. Repeated exports of the same chat are skipped. Progress is kept in a
state file so an interrupted run resumes where it stopped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfgBF.Dir = args[0]
			}
			if cfgBF.Dir == "" && cfgBF.SingleFile == "" {
				return fmt.Errorf("a directory or --file is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogging(cfg.LogLevel, os.Stderr)

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

			if cfgBF.StatePath == "" {
				cfgBF.StatePath = cfg.BackfillState
			}
			cfgBF.Location = a.location
			cfgBF.BatchPause = pause

			runner := backfill.NewRunner(cfgBF, a.importer, logger)
			if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
				runner.SetPoster(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger))
			}

			report, err := runner.Run(ctx)
			if report != nil {
				fmt.Fprint(cmd.OutOrStdout(), backfill.FormatReport(report))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cfgBF.SingleFile, "file", "", "Process a single export only")
	cmd.Flags().StringVar(&cfgBF.CompanyID, "company", "", "Destination company id")
	cmd.Flags().StringVar(&cfgBF.StatePath, "state", "", "State file (defaults to TASKWIRE_BACKFILL_STATE)")
	cmd.Flags().IntVar(&cfgBF.BatchSize, "batch-size", 20, "Exports sent to the LLM before pausing (0 = never pause)")
	cmd.Flags().DurationVar(&pause, "pause", 30*time.Second, "Pause between batches")

	return cmd
}
