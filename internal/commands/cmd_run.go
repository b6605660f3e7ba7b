package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/transitops/beacon/internal/service"
	"github.com/transitops/beacon/internal/stream"
)

type RunCmd struct {
	flags *Flags

	// flags
	token string
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags) *RunCmd {
	return &RunCmd{flags: flags}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run the notification engine",
		UsageText: "beacon run [--token TOKEN]",
		Description: `Starts the engine: loads the persisted feed, sweeps expired records,
connects to the push stream (reconnecting forever at a fixed delay),
performs an initial poll, and keeps the periodic line-delay checks
running until interrupted.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "token",
				Usage:       "stream credential (overrides config)",
				Sources:     cli.EnvVars("BEACON_TOKEN"),
				Destination: &cmd.token,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cmd.token != "" {
		cfg.Server.Token = cmd.token
	}

	svc := service.New(cfg, service.Options{Transport: stream.NewWebsocketTransport()})
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("host", cfg.Server.Host).Msg("starting notification engine")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
