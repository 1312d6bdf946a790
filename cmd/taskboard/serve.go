package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldi/taskboard/internal/db"
	"github.com/ldi/taskboard/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Reset the store to the seed dataset and serve the task API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, app)
		},
	}
}

func runServe(ctx context.Context, app *App) error {
	cfg := app.Config

	database, err := db.Open(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Seed(ctx); err != nil {
		return err
	}
	app.Logger.Info("store_seeded", "db_path", cfg.DBPath, "driver", database.Driver())

	if cfg.SnapshotPath != "" {
		if err := database.ExportSnapshot(ctx, cfg.SnapshotPath); err != nil {
			return err
		}
		database.EnableAutoSnapshot(cfg.SnapshotPath, func(err error) {
			app.Logger.Error("snapshot_export_failed", "path", cfg.SnapshotPath, "error", err)
		})
	}

	srv := server.NewServer(database,
		server.WithLogger(app.Logger),
		server.WithLatency(cfg.Latency),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	app.Logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
