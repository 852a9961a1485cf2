package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/Mtzions/Agentbackend/internal/agentd"
	"github.com/Mtzions/Agentbackend/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type SnapshotCmd struct {
	flags *Flags
	app   *agentd.App

	project string

	// merge flags
	mergeFields []string
}

// NewSnapshotCmd creates a new snapshot command.
func NewSnapshotCmd(flags *Flags, app *agentd.App) *SnapshotCmd {
	return &SnapshotCmd{flags: flags, app: app}
}

// Register adds the snapshot command to the application.
func (cmd *SnapshotCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "snapshot",
		Usage: "Inspect and update the repo snapshot",
		Description: `The snapshot is advisory repository metadata attached to a project. It
informs planning but never gates task or run operations.`,
		Flags: []cli.Flag{projectFlag(&cmd.project)},
		Commands: []*cli.Command{
			cmd.mergeCmd(),
			cmd.refreshCmd(),
		},
	})

	return app
}

func (cmd *SnapshotCmd) mergeCmd() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge fields into the snapshot",
		UsageText: "agentd snapshot merge --set key=value [--set key=value]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "set",
				Usage:       "snapshot entry as key=value (repeatable)",
				Destination: &cmd.mergeFields,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			fields, err := parseMeta(cmd.mergeFields)
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				return fmt.Errorf("snapshot merge requires at least one --set entry")
			}

			snap, err := cmd.app.Snapshots.Merge(ctx, cmd.project, fields)
			if err != nil {
				return fmt.Errorf("merge snapshot: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, snap)
		},
	}
}

func (cmd *SnapshotCmd) refreshCmd() *cli.Command {
	return &cli.Command{
		Name:      "refresh",
		Usage:     "Refresh the snapshot from the inspection service",
		UsageText: "agentd snapshot refresh",
		Action: func(ctx context.Context, c *cli.Command) error {
			snap, updated, err := cmd.app.Snapshots.Refresh(ctx, cmd.project)
			if err != nil {
				return fmt.Errorf("refresh snapshot: %w", err)
			}
			if !updated {
				fmt.Fprintln(os.Stderr, "Inspection service unavailable, snapshot unchanged")
			}
			if snap == nil {
				fmt.Fprintln(os.Stderr, "No snapshot recorded yet")
				return nil
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, snap)
		},
	}
}
