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

type EventsCmd struct {
	flags *Flags
	app   *agentd.App

	project    string
	jsonOutput bool
}

// NewEventsCmd creates a new events command.
func NewEventsCmd(flags *Flags, app *agentd.App) *EventsCmd {
	return &EventsCmd{flags: flags, app: app}
}

// Register adds the events command to the application.
func (cmd *EventsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "events",
		Usage:     "Show the project timeline",
		UsageText: "agentd events [--json]",
		Description: `Displays the newest timeline entries, oldest first. The window size
is the recent_events limit from configuration; the full timeline stays
in the project document.`,
		Flags: []cli.Flag{
			projectFlag(&cmd.project),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *EventsCmd) run(ctx context.Context, c *cli.Command) error {
	events := cmd.app.Events.Recent(ctx, cmd.project)
	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, e := range events {
			if err := iojson.WriteLine(out, e); err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
		}
		return nil
	}

	if len(events) == 0 {
		fmt.Fprintln(os.Stderr, "No events found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TS\tTYPE\tID")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.TS.Format("2006-01-02 15:04:05"), e.Type, e.ID)
	}
	return w.Flush()
}
