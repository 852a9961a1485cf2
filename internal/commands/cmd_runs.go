package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Mtzions/Agentbackend/internal/agentd"
	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/Mtzions/Agentbackend/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type RunsCmd struct {
	flags *Flags
	app   *agentd.App

	project string

	// start flags
	startMode string

	// ls flags
	lsTask     string
	lsStatus   string
	jsonOutput bool

	// patch flags
	patchStatus string
	patchAgent  string
	patchMeta   []string

	// log flags
	logType string

	// result flags
	resultStatus  string
	resultSummary string
	resultTask    string
	resultMeta    []string
	resultRepo    []string
}

// NewRunsCmd creates a new run command.
func NewRunsCmd(flags *Flags, app *agentd.App) *RunsCmd {
	return &RunsCmd{flags: flags, app: app}
}

// Register adds the run command to the application.
func (cmd *RunsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "run",
		Usage: "Start and track execution runs against tasks",
		Description: `Run commands manage execution attempts.

Starting a run hands the task off to the execution agent and marks it
in_progress. The agent reports back with 'run result', which closes the
run and mirrors the outcome onto the task.`,
		Flags: []cli.Flag{projectFlag(&cmd.project)},
		Commands: []*cli.Command{
			cmd.startCmd(),
			cmd.lsCmd(),
			cmd.patchCmd(),
			cmd.logCmd(),
			cmd.logsCmd(),
			cmd.resultCmd(),
		},
	})

	return app
}

func (cmd *RunsCmd) startCmd() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a run for a task",
		UsageText: "agentd run start [--mode <mode>] <task-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "run mode (normal, dry_run, debug)",
				Destination: &cmd.startMode,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			taskID := c.Args().First()
			if taskID == "" {
				return fmt.Errorf("run start requires a task id argument")
			}

			result, err := cmd.app.Runs.Start(ctx, cmd.project, taskID, run.Mode(cmd.startMode))
			if err != nil {
				return fmt.Errorf("start run: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, result)
		},
	}
}

func (cmd *RunsCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List runs",
		UsageText: "agentd run ls [--task <task-id>] [--status <status>] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "task",
				Usage:       "only runs for this task",
				Destination: &cmd.lsTask,
			},
			&cli.StringFlag{
				Name:        "status",
				Usage:       "only runs in this status",
				Destination: &cmd.lsStatus,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			runs := cmd.app.Runs.List(ctx, cmd.project, agentd.ListFilter{
				TaskID: cmd.lsTask,
				Status: run.Status(cmd.lsStatus),
			})
			out := c.Root().Writer

			if cmd.jsonOutput {
				for _, r := range runs {
					if err := iojson.WriteLine(out, r); err != nil {
						return fmt.Errorf("encode run: %w", err)
					}
				}
				return nil
			}

			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTASK\tAGENT\tMODE\tSTATUS\tSTARTED")
			for _, r := range runs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.TaskID, r.Agent, r.Mode, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func (cmd *RunsCmd) patchCmd() *cli.Command {
	return &cli.Command{
		Name:      "patch",
		Usage:     "Update fields of a run",
		UsageText: "agentd run patch [options] <run-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "status",
				Usage:       "new status, validated against the transition table",
				Destination: &cmd.patchStatus,
			},
			&cli.StringFlag{
				Name:        "agent",
				Usage:       "new agent name",
				Destination: &cmd.patchAgent,
			},
			&cli.StringSliceFlag{
				Name:        "meta",
				Usage:       "metadata entry as key=value (repeatable)",
				Destination: &cmd.patchMeta,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("run patch requires a run id argument")
			}

			meta, err := parseMeta(cmd.patchMeta)
			if err != nil {
				return err
			}

			patch := run.Patch{Metadata: meta}
			if cmd.patchStatus != "" {
				status := run.Status(cmd.patchStatus)
				patch.Status = &status
			}
			if cmd.patchAgent != "" {
				patch.Agent = &cmd.patchAgent
			}

			updated, err := cmd.app.Runs.Patch(ctx, cmd.project, id, patch)
			if err != nil {
				return fmt.Errorf("patch run: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, updated)
		},
	}
}

func (cmd *RunsCmd) logCmd() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Append a log entry to a run",
		UsageText: "agentd run log [--type <type>] <run-id> <message>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "type",
				Usage:       "entry type (info, summary, file, command, criteria, notes, error)",
				Destination: &cmd.logType,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			msg := strings.Join(c.Args().Tail(), " ")
			if id == "" || msg == "" {
				return fmt.Errorf("run log requires a run id and a message")
			}

			updated, err := cmd.app.Runs.AppendLog(ctx, cmd.project, id, run.LogEntry{
				Type:    run.LogType(cmd.logType),
				Message: msg,
			})
			if err != nil {
				return fmt.Errorf("append log: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, updated.Logs[len(updated.Logs)-1])
		},
	}
}

func (cmd *RunsCmd) logsCmd() *cli.Command {
	return &cli.Command{
		Name:      "logs",
		Usage:     "Show a run's log entries in order",
		UsageText: "agentd run logs <run-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("run logs requires a run id argument")
			}

			logs, err := cmd.app.Runs.Logs(ctx, cmd.project, id)
			if err != nil {
				return fmt.Errorf("get logs: %w", err)
			}

			out := c.Root().Writer
			for _, entry := range logs {
				if err := iojson.WriteLine(out, entry); err != nil {
					return fmt.Errorf("encode log entry: %w", err)
				}
			}
			return nil
		},
	}
}

func (cmd *RunsCmd) resultCmd() *cli.Command {
	return &cli.Command{
		Name:      "result",
		Usage:     "Record the execution agent's result for a run",
		UsageText: "agentd run result --status <status> [options] <run-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "status",
				Usage:       "terminal status reported by the agent (success, failed, cancelled)",
				Destination: &cmd.resultStatus,
			},
			&cli.StringFlag{
				Name:        "summary",
				Usage:       "short outcome summary",
				Destination: &cmd.resultSummary,
			},
			&cli.StringFlag{
				Name:        "task",
				Usage:       "task id override (defaults to the run's task)",
				Destination: &cmd.resultTask,
			},
			&cli.StringSliceFlag{
				Name:        "meta",
				Usage:       "metadata entry as key=value (repeatable)",
				Destination: &cmd.resultMeta,
			},
			&cli.StringSliceFlag{
				Name:        "repo",
				Usage:       "repo snapshot entry as key=value (repeatable)",
				Destination: &cmd.resultRepo,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("run result requires a run id argument")
			}

			meta, err := parseMeta(cmd.resultMeta)
			if err != nil {
				return err
			}
			repo, err := parseMeta(cmd.resultRepo)
			if err != nil {
				return err
			}

			outcome, err := cmd.app.Runs.RecordResult(ctx, cmd.project, id, cmd.resultTask, agentd.AgentResult{
				Status:   cmd.resultStatus,
				Summary:  cmd.resultSummary,
				Metadata: meta,
				Repo:     repo,
			})
			if err != nil {
				return fmt.Errorf("record result: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, outcome)
		},
	}
}

// parseMeta turns repeated key=value flags into a metadata map.
func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata entry %q, expected key=value", pair)
		}
		meta[key] = value
	}
	return meta, nil
}
