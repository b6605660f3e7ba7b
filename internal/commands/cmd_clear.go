package commands

import (
	"context"

	"github.com/urfave/cli/v3"
)

type ClearCmd struct {
	flags *Flags

	// flags
	expiredOnly bool
}

// NewClearCmd creates a new clear command
func NewClearCmd(flags *Flags) *ClearCmd {
	return &ClearCmd{flags: flags}
}

// Register adds the clear command to the application
func (cmd *ClearCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "clear",
		Usage:       "Clear notifications",
		UsageText:   "beacon clear [--expired]",
		Description: `Empties the feed, or with --expired only removes records past the expiry window.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "expired",
				Usage:       "only clear expired notifications",
				Destination: &cmd.expiredOnly,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ClearCmd) run(ctx context.Context, c *cli.Command) error {
	store := openStore(cmd.flags)

	if cmd.expiredOnly {
		store.ClearExpired()
		return nil
	}

	store.ClearAll()
	return nil
}
