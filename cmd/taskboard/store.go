package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldi/taskboard/internal/db"
	"github.com/ldi/taskboard/internal/mcp"
)

// openStore opens the configured database without reseeding it, creating
// the schema if the file is new.
func (app *App) openStore(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(app.Config.DBDriver, app.Config.DBPath)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}

func newExportCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if output != "" {
				if err := database.ExportSnapshot(ctx, output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported snapshot to %s\n", output)
				return nil
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			if err := database.WriteSnapshot(ctx, w); err != nil {
				return err
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newMCPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			if path := app.Config.SnapshotPath; path != "" {
				database.EnableAutoSnapshot(path, func(err error) {
					app.Logger.Error("snapshot_export_failed", "path", path, "error", err)
				})
			}

			return mcp.Serve(mcp.NewServer(database))
		},
	}
}
