package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/taskwire/internal/config"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

func checkpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints",
		Short: "List the last imported message time per chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			cps, err := a.checkpoints.All(context.Background())
			if err != nil {
				return err
			}
			if len(cps) == 0 {
				fmt.Fprintln(os.Stderr, "No checkpoints yet.")
				return nil
			}

			keys := make([]string, 0, len(cps))
			for k := range cps {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			rows := make([][2]string, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, [2]string{k, cps[k]})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([2]string{"CHAT", "CHECKPOINT"}, rows, isTerminal()))
			return nil
		},
	}
}

func tasksCmd() *cobra.Command {
	var companyID, source string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks in the local workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.workspace.Tasks(context.Background(), workspace.TaskFilter{
				CompanyID: companyID,
				Source:    source,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				if tasks == nil {
					tasks = []workspace.Task{}
				}
				return writeJSON(cmd.OutOrStdout(), tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(os.Stderr, "No tasks found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTasks(tasks, isTerminal()))
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Filter by company id")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (whatsapp/manual)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results (0 = no limit)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print tasks as JSON")

	return cmd
}

// loadApp wires the app for read-only and admin commands, logging to stderr.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := setupLogging(cfg.LogLevel, os.Stderr)
	return openApp(context.Background(), cfg, logger)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
