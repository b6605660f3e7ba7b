package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/core/styles"
	"github.com/transitops/beacon/pkg/iojson"
)

type LsCmd struct {
	flags *Flags

	// flags
	unreadOnly bool
	kind       string
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List notifications",
		UsageText: "beacon ls [--unread] [--kind KIND] [--json]",
		Description: `Displays the persisted notification feed, newest first.

Use --json for machine-readable output, one record per line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "unread",
				Usage:       "only show unread notifications",
				Destination: &cmd.unreadOnly,
			},
			&cli.StringFlag{
				Name:        "kind",
				Usage:       "filter by kind (line_delay, low_balance, info, success, warning, error)",
				Destination: &cmd.kind,
			},
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

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	store := openStore(cmd.flags)

	var records []notify.Record
	switch {
	case cmd.kind != "":
		kind, err := notify.ParseKind(cmd.kind)
		if err != nil {
			return err
		}
		records = store.ListByKind(kind)
	case cmd.unreadOnly:
		records = store.ListUnread()
	default:
		records = store.List()
	}

	if cmd.unreadOnly && cmd.kind != "" {
		filtered := records[:0]
		for _, r := range records {
			if !r.Read {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if len(records) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintln(os.Stderr, "No notifications")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, r := range records {
			if err := iojson.WriteLine(out, r); err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
		}
		return nil
	}

	for _, r := range records {
		fmt.Fprintln(out, styles.RenderRecord(r))
	}

	return nil
}
