package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/taskwire/internal/config"
	"github.com/MikeSquared-Agency/taskwire/internal/importer"
)

func importCmd() *cobra.Command {
	var companyID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "import <export.txt|export.zip>",
		Short: "Import a WhatsApp chat export and create tasks from it",
		Long: `Parses a WhatsApp export (.txt or the .zip produced by "Export chat"),
asks the configured LLM for action items in the messages that are new since the
last import of that chat, creates tasks under the WhatsApp Tasks project and
advances the chat's checkpoint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogging(cfg.LogLevel, os.Stderr)
			ctx := context.Background()

			data, err := os.ReadFile(args[0])
			if err != nil {
				if os.IsNotExist(err) {
					return importer.ErrNoFile
				}
				return fmt.Errorf("read export: %w", err)
			}

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withImporter(); err != nil {
				return err
			}

			summary, err := a.importer.Run(ctx, importer.Request{
				CompanyID: companyID,
				Filename:  filepath.Base(args[0]),
				Data:      data,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(*summary, isTerminal()))
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Destination company id (defaults to TASKWIRE_COMPANY_ID / TASKWIRE_COMPANY_NAME)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the summary as JSON")

	return cmd
}
