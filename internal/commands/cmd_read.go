package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type ReadCmd struct {
	flags *Flags

	// flags
	all bool
}

// NewReadCmd creates a new read command
func NewReadCmd(flags *Flags) *ReadCmd {
	return &ReadCmd{flags: flags}
}

// Register adds the read command to the application
func (cmd *ReadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "read",
		Usage:       "Mark notifications as read",
		UsageText:   "beacon read [--all | ID...]",
		Description: `Marks the given notifications as read. Unknown IDs are ignored.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "mark every notification as read",
				Destination: &cmd.all,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ReadCmd) run(ctx context.Context, c *cli.Command) error {
	store := openStore(cmd.flags)

	if cmd.all {
		store.MarkAllRead()
		return nil
	}

	ids := c.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("provide notification IDs or --all")
	}

	for _, id := range ids {
		store.MarkRead(id)
	}

	return nil
}
