package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Mtzions/Agentbackend/internal/agentd"
	"github.com/Mtzions/Agentbackend/internal/commands"
	"github.com/Mtzions/Agentbackend/internal/core/config"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/core/logging"
	"github.com/Mtzions/Agentbackend/internal/planner"
	"github.com/Mtzions/Agentbackend/internal/store/jsonfile"
	"github.com/Mtzions/Agentbackend/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		busCancel context.CancelFunc
		watcher   *jsonfile.Watcher
		bus       *eventbus.EventBus
		backend   = &agentd.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "agentd",
		Usage:     "Orchestrate agent tasks and runs against a project workspace",
		UsageText: "agentd [global options] command [command options]",
		Description: `Agentd tracks the tasks of a project and the agent runs executed
against them. State lives in one JSON document per project under the
data directory; documents are human-readable and editable while the
tool is running.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("AGENTD_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/agentd.log)",
				Sources:     cli.EnvVars("AGENTD_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("AGENTD_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("AGENTD_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; stdout stays clean for command output
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "agentd.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			bus = eventbus.New()
			eventbus.RegisterDebugLogger(bus, cfg, log.With().Str("component", "bus").Logger())

			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			bus.Start(busCtx)

			var plannerClient agentd.PlannerClient
			if cfg.Planner.BaseURL != "" {
				plannerClient = planner.New(cfg.Planner, log.With().Str("component", "planner").Logger())
			}

			store := jsonfile.NewProjectStore(cfg.DataDir)
			*backend = *agentd.NewApp(store, cfg, bus, plannerClient, log.Logger)

			// Pick up documents edited outside the tool
			watcher, err = jsonfile.NewWatcher(cfg.DataDir)
			if err != nil {
				log.Warn().Err(err).Msg("document watcher unavailable, out-of-band edits need a restart")
			} else {
				backend.AttachWatcher(watcher)
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if watcher != nil {
				_ = watcher.Close()
			}

			if busCancel != nil {
				busCancel()
				bus.Wait()
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewProjectCmd(flags, backend).Register(app)
	app = commands.NewTasksCmd(flags, backend).Register(app)
	app = commands.NewRunsCmd(flags, backend).Register(app)
	app = commands.NewEventsCmd(flags, backend).Register(app)
	app = commands.NewMsgCmd(flags, backend).Register(app)
	app = commands.NewSnapshotCmd(flags, backend).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Println()
		fmt.Println(err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
