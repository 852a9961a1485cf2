package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Mtzions/Agentbackend/internal/agentd"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/Mtzions/Agentbackend/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type TasksCmd struct {
	flags *Flags
	app   *agentd.App

	project string

	// add flags
	addDescription string
	addType        string
	addPriority    int
	addDependsOn   []string
	addAgentHint   string

	// ls flags
	jsonOutput bool

	// patch flags
	patchTitle    string
	patchStatus   string
	patchPriority int
	patchType     string
}

// NewTasksCmd creates a new task command.
func NewTasksCmd(flags *Flags, app *agentd.App) *TasksCmd {
	return &TasksCmd{flags: flags, app: app}
}

// Register adds the task command to the application.
func (cmd *TasksCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "task",
		Usage: "Create, list, and update tasks",
		Description: `Task commands manage the work items of a project.

Tasks are never deleted. Status moves through todo, in_progress, and a
final done, failed, or blocked as runs execute against them.`,
		Flags: []cli.Flag{projectFlag(&cmd.project)},
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.lsCmd(),
			cmd.getCmd(),
			cmd.patchCmd(),
			cmd.planCmd(),
		},
	})

	return app
}

func (cmd *TasksCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		UsageText: "agentd task add [options] <title>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "desc",
				Usage:       "task description",
				Destination: &cmd.addDescription,
			},
			&cli.StringFlag{
				Name:        "type",
				Usage:       "task type (analysis, frontend, backend, infra, research, testing)",
				Destination: &cmd.addType,
			},
			&cli.IntFlag{
				Name:        "priority",
				Usage:       "priority 1 (most urgent) to 5",
				Destination: &cmd.addPriority,
			},
			&cli.StringSliceFlag{
				Name:        "depends-on",
				Usage:       "task id this task depends on (repeatable)",
				Destination: &cmd.addDependsOn,
			},
			&cli.StringFlag{
				Name:        "agent-hint",
				Usage:       "preferred agent for this task",
				Destination: &cmd.addAgentHint,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			title := c.Args().First()
			if title == "" {
				return fmt.Errorf("task add requires a title argument")
			}

			spec := task.Spec{
				Title:       title,
				Description: cmd.addDescription,
				Type:        task.Type(cmd.addType),
				DependsOn:   cmd.addDependsOn,
				AgentHint:   cmd.addAgentHint,
			}
			if cmd.addPriority != 0 {
				spec.Priority = &cmd.addPriority
			}

			created, err := cmd.app.Tasks.Add(ctx, cmd.project, spec)
			if err != nil {
				return fmt.Errorf("add task: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, created)
		},
	}
}

func (cmd *TasksCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List tasks sorted by priority",
		UsageText: "agentd task ls [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			tasks := cmd.app.Tasks.List(ctx, cmd.project)
			out := c.Root().Writer

			if cmd.jsonOutput {
				for _, t := range tasks {
					if err := iojson.WriteLine(out, t); err != nil {
						return fmt.Errorf("encode task: %w", err)
					}
				}
				return nil
			}

			if len(tasks) == 0 {
				fmt.Fprintln(os.Stderr, "No tasks found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tPRI\tSTATUS\tTYPE\tTITLE")
			for _, t := range tasks {
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", t.ID, t.Priority, t.Status, t.Type, t.Title)
			}
			return w.Flush()
		},
	}
}

func (cmd *TasksCmd) getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a single task",
		UsageText: "agentd task get <task-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("task get requires a task id argument")
			}

			t, err := cmd.app.Tasks.Get(ctx, cmd.project, id)
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, t)
		},
	}
}

func (cmd *TasksCmd) patchCmd() *cli.Command {
	return &cli.Command{
		Name:      "patch",
		Usage:     "Update fields of a task",
		UsageText: "agentd task patch [options] <task-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Usage:       "new title",
				Destination: &cmd.patchTitle,
			},
			&cli.StringFlag{
				Name:        "status",
				Usage:       "new status (todo, in_progress, done, blocked, failed)",
				Destination: &cmd.patchStatus,
			},
			&cli.IntFlag{
				Name:        "priority",
				Usage:       "new priority",
				Destination: &cmd.patchPriority,
			},
			&cli.StringFlag{
				Name:        "type",
				Usage:       "new type",
				Destination: &cmd.patchType,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("task patch requires a task id argument")
			}

			var patch task.Patch
			if cmd.patchTitle != "" {
				patch.Title = &cmd.patchTitle
			}
			if cmd.patchStatus != "" {
				status := task.Status(cmd.patchStatus)
				patch.Status = &status
			}
			if cmd.patchPriority != 0 {
				patch.Priority = &cmd.patchPriority
			}
			if cmd.patchType != "" {
				typ := task.Type(cmd.patchType)
				patch.Type = &typ
			}

			updated, err := cmd.app.Tasks.Patch(ctx, cmd.project, id, patch)
			if err != nil {
				return fmt.Errorf("patch task: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, updated)
		},
	}
}

func (cmd *TasksCmd) planCmd() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Ask the planning service to propose tasks for a goal",
		UsageText: "agentd task plan <goal>",
		Action: func(ctx context.Context, c *cli.Command) error {
			goal := c.Args().First()
			if goal == "" {
				return fmt.Errorf("task plan requires a goal argument")
			}

			created, err := cmd.app.Tasks.Plan(ctx, cmd.project, goal)
			if err != nil {
				return fmt.Errorf("plan tasks: %w", err)
			}

			out := c.Root().Writer
			for _, t := range created {
				if err := iojson.WriteLine(out, t); err != nil {
					return fmt.Errorf("encode task: %w", err)
				}
			}
			return nil
		},
	}
}
