package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldi/taskboard/internal/config"
	"github.com/ldi/taskboard/internal/logging"
	"github.com/ldi/taskboard/internal/ui"
)

// App is the state shared by every subcommand: the resolved configuration
// and the logger built from it.
type App struct {
	ConfigPath string

	addr         string
	dbPath       string
	dbDriver     string
	latency      time.Duration
	snapshotPath string
	serverURL    string
	fetchMode    string
	logLevel     string
	logFormat    string

	Config config.Config
	Logger *slog.Logger
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	def := config.Default()

	cmd := &cobra.Command{
		Use:          "taskboard",
		Short:        "Task list server and N+1 fetching client",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Pick a command from the menu
  taskboard

  # Serve the API on :3000 with a fresh seed dataset
  taskboard serve

  # Browse tasks, fetching details in one batch request
  taskboard tui --mode batched

  # One refresh cycle, printed
  taskboard fetch --q milk --tag shopping
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runMenu(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", envOr(config.EnvConfig, ""), "Path to a YAML config file")
	flags.StringVar(&app.addr, "addr", def.Addr, "Listen address for serve")
	flags.StringVar(&app.dbPath, "db", def.DBPath, "Path to the SQLite database file")
	flags.StringVar(&app.dbDriver, "driver", def.DBDriver, "SQLite driver (sqlite|sqlite3)")
	flags.DurationVar(&app.latency, "latency", def.Latency, "Artificial delay on list and detail reads")
	flags.StringVar(&app.snapshotPath, "snapshot-path", def.SnapshotPath, "Write a JSONL snapshot here after every change")
	flags.StringVar(&app.serverURL, "server", def.ServerURL, "Base URL of the task API for client commands")
	flags.StringVar(&app.fetchMode, "mode", def.FetchMode, "Detail fetch mode (nplusone|batched)")
	flags.StringVar(&app.logLevel, "log-level", def.LogLevel, "Log level (debug|info|warn|error)")
	flags.StringVar(&app.logFormat, "log-format", def.LogFormat, "Log format (json|text)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newFetchCmd(app))
	cmd.AddCommand(newTagsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newMCPCmd(app))

	return cmd
}

// load resolves the configuration: defaults, then the YAML file, then the
// environment, then any flag given explicitly on the command line.
func (app *App) load(cmd *cobra.Command) error {
	cfg, err := config.Load(app.ConfigPath, func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("addr") {
			cfg.Addr = app.addr
		}
		if flags.Changed("db") {
			cfg.DBPath = app.dbPath
		}
		if flags.Changed("driver") {
			cfg.DBDriver = app.dbDriver
		}
		if flags.Changed("latency") {
			cfg.Latency = app.latency
		}
		if flags.Changed("snapshot-path") {
			cfg.SnapshotPath = app.snapshotPath
		}
		if flags.Changed("server") {
			cfg.ServerURL = app.serverURL
		}
		if flags.Changed("mode") {
			cfg.FetchMode = app.fetchMode
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = app.logLevel
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = app.logFormat
		}
	})
	if err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	app.Config = cfg
	app.Logger = logger
	return nil
}

func runMenu(cmd *cobra.Command) error {
	selected, err := ui.RunMenu()
	if err != nil {
		return fmt.Errorf("failed to run menu: %w", err)
	}
	if selected == "" {
		return nil
	}

	sub, _, err := cmd.Find([]string{selected})
	if err != nil || sub == cmd {
		return fmt.Errorf("unknown command: %s", selected)
	}
	sub.SetContext(cmd.Context())
	return sub.RunE(sub, nil)
}
