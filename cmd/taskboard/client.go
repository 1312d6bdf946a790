package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldi/taskboard/internal/client"
	"github.com/ldi/taskboard/internal/logging"
	"github.com/ldi/taskboard/internal/tui"
	"github.com/ldi/taskboard/pkg/models"
)

func (app *App) refresher(logger *slog.Logger) (*client.Refresher, error) {
	mode, err := client.ParseMode(app.Config.FetchMode)
	if err != nil {
		return nil, err
	}
	c := client.New(app.Config.ServerURL, logger)
	return client.NewRefresher(c, mode), nil
}

func newTUICmd(app *App) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit tasks in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The program owns the screen; request logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger, err := logging.New(w, app.Config.LogLevel, app.Config.LogFormat)
			if err != nil {
				return err
			}

			r, err := app.refresher(logger)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), r)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Append client request logs to this file")
	return cmd
}

func newFetchCmd(app *App) *cobra.Command {
	var filter models.ListFilter

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one refresh cycle against the API and print the assembled list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.refresher(app.Logger)
			if err != nil {
				return err
			}
			return runFetch(cmd.Context(), cmd.OutOrStdout(), r, filter)
		},
	}

	cmd.Flags().StringVar(&filter.Query, "q", "", "Keyword matched against title, description or location")
	cmd.Flags().StringVar(&filter.Tag, "tag", "", "Exact tag name")
	return cmd
}

func runFetch(ctx context.Context, out io.Writer, r *client.Refresher, filter models.ListFilter) error {
	res, err := r.Refresh(ctx, filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tDUE\tLOCATION\tTAGS")
	for _, t := range res.Tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, t.Status, deref(t.DueDate), deref(t.Location), strings.Join(t.TagNames(), ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d tasks, %d requests in %s (%s)\n",
		len(res.Tasks), res.Stats.Requests, res.Stats.Elapsed.Round(time.Millisecond), res.Stats.Mode)
	return nil
}

func newTagsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags with the number of tasks carrying each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(app.Config.ServerURL, app.Logger)
			tags, err := c.Tags(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %s\n", "NAME", "TASKS")
			fmt.Fprintln(out, "------------------------------")
			for _, tag := range tags {
				fmt.Fprintf(out, "%-20s %d\n", tag.Name, tag.Tasks)
			}
			return nil
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
