package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Mtzions/Agentbackend/internal/agentd"
	"github.com/Mtzions/Agentbackend/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type ProjectCmd struct {
	flags *Flags
	app   *agentd.App

	project string
}

// NewProjectCmd creates a new project command.
func NewProjectCmd(flags *Flags, app *agentd.App) *ProjectCmd {
	return &ProjectCmd{flags: flags, app: app}
}

// Register adds the project command to the application.
func (cmd *ProjectCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "project",
		Usage: "Show and list projects",
		Description: `Projects are created lazily on first reference; 'project show' against
a new id creates it.`,
		Flags: []cli.Flag{projectFlag(&cmd.project)},
		Commands: []*cli.Command{
			cmd.showCmd(),
			cmd.lsCmd(),
		},
	})

	return app
}

func (cmd *ProjectCmd) showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the project summary",
		UsageText: "agentd project show [-p <id>]",
		Action: func(ctx context.Context, c *cli.Command) error {
			summary := cmd.app.Projects.GetOrCreate(ctx, cmd.project)
			return iojson.WriteWith(c.Root().Writer, os.Stderr, summary)
		},
	}
}

func (cmd *ProjectCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List persisted projects",
		UsageText: "agentd project ls",
		Action: func(ctx context.Context, c *cli.Command) error {
			ids, err := cmd.app.Projects.List(ctx)
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}

			if len(ids) == 0 {
				fmt.Fprintln(os.Stderr, "No projects found")
				return nil
			}

			w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID")
			for _, id := range ids {
				_, _ = fmt.Fprintf(w, "%s\n", id)
			}
			return w.Flush()
		},
	}
}
