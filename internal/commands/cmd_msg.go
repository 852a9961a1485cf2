package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Mtzions/Agentbackend/internal/agentd"
	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/Mtzions/Agentbackend/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type MsgCmd struct {
	flags *Flags
	app   *agentd.App

	project string

	// add flags
	addRole   string
	addSource string
	addTask   string
	addRun    string
}

// NewMsgCmd creates a new msg command.
func NewMsgCmd(flags *Flags, app *agentd.App) *MsgCmd {
	return &MsgCmd{flags: flags, app: app}
}

// Register adds the msg command to the application.
func (cmd *MsgCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "msg",
		Usage: "Append and read the project conversation",
		Flags: []cli.Flag{projectFlag(&cmd.project)},
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.lsCmd(),
		},
	})

	return app
}

func (cmd *MsgCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Append a message",
		UsageText: "agentd msg add [options] <content>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "role",
				Usage:       "message role (user, assistant, system)",
				Destination: &cmd.addRole,
			},
			&cli.StringFlag{
				Name:        "source",
				Usage:       "message source (ui, planner, coder)",
				Destination: &cmd.addSource,
			},
			&cli.StringFlag{
				Name:        "task",
				Usage:       "related task id",
				Destination: &cmd.addTask,
			},
			&cli.StringFlag{
				Name:        "run",
				Usage:       "related run id",
				Destination: &cmd.addRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			content := strings.Join(c.Args().Slice(), " ")

			msg, err := cmd.app.Messages.Append(ctx, cmd.project, agentd.MessageSpec{
				Role:    project.Role(cmd.addRole),
				Source:  project.MessageSource(cmd.addSource),
				Content: content,
				TaskID:  cmd.addTask,
				RunID:   cmd.addRun,
			})
			if err != nil {
				return fmt.Errorf("append message: %w", err)
			}
			return iojson.WriteWith(c.Root().Writer, os.Stderr, msg)
		},
	}
}

func (cmd *MsgCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "Show recent messages as JSON lines",
		UsageText: "agentd msg ls",
		Action: func(ctx context.Context, c *cli.Command) error {
			msgs := cmd.app.Messages.Recent(ctx, cmd.project)
			out := c.Root().Writer
			for _, m := range msgs {
				if err := iojson.WriteLine(out, m); err != nil {
					return fmt.Errorf("encode message: %w", err)
				}
			}
			return nil
		},
	}
}
