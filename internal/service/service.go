// Package service is the composition root: it wires the feed store, the
// ingestion adapters, and the stream machine, and owns their lifecycle.
// There is no ambient global; hosts hold the Service they construct.
package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/transitops/beacon/internal/core/config"
	"github.com/transitops/beacon/internal/core/logging"
	"github.com/transitops/beacon/internal/data/jsonfile"
	"github.com/transitops/beacon/internal/feed"
	"github.com/transitops/beacon/internal/ingest"
	"github.com/transitops/beacon/internal/sink"
	"github.com/transitops/beacon/internal/stream"
)

// notificationsFile is the name of the durable feed slot under the data
// directory.
const notificationsFile = "notifications.json"

// NotificationsPath returns the feed slot location for the given config.
// CLI commands that operate on the persisted feed share it.
func NotificationsPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, notificationsFile)
}

// Options override production wiring, mainly for tests.
type Options struct {
	Transport stream.Transport
	Now       func() time.Time
}

// Service owns the notification engine for the lifetime of the host
// process.
type Service struct {
	cfg     *config.Config
	store   *feed.Store
	poller  *ingest.Poller
	checker *ingest.Checker
	machine *stream.Machine
	log     zerolog.Logger

	closeOnce sync.Once
}

// New wires a Service from configuration.
func New(cfg *config.Config, opts Options) *Service {
	if opts.Transport == nil {
		opts.Transport = stream.NewWebsocketTransport()
	}

	store := feed.New(
		jsonfile.New(filepath.Join(cfg.DataDir, notificationsFile)),
		feed.Options{
			MaxRecords: cfg.MaxNotifications,
			Expiry:     cfg.Expiry.Std(),
			Now:        opts.Now,
		},
	)

	if cfg.EnableSound {
		store.AddHook(sink.Sound())
	}
	if cfg.EnableDesktop {
		store.AddHook(sink.Desktop())
	}

	machine := stream.New(
		store,
		opts.Transport,
		stream.EndpointURL(cfg.Server.Secure, cfg.Server.Host, cfg.Server.Token),
		stream.Options{ReconnectDelay: cfg.ReconnectDelay.Std()},
	)

	return &Service{
		cfg:    cfg,
		store:  store,
		poller: ingest.NewPoller(store, cfg.NotificationsURL()),
		checker: ingest.NewChecker(store, cfg.LinesURL(), ingest.CheckerOptions{
			MinBalance: cfg.MinBalance,
			Now:        opts.Now,
		}),
		machine: machine,
		log:     logging.Component("service"),
	}
}

// Store exposes the feed for presentation sinks and host integration.
func (s *Service) Store() *feed.Store {
	return s.store
}

// Connected reports whether push delivery is active.
func (s *Service) Connected() bool {
	return s.machine.Connected()
}

// CheckLowBalance runs the balance threshold check with a host-supplied
// balance.
func (s *Service) CheckLowBalance(balance float64) {
	s.checker.CheckLowBalance(balance)
}

// Run starts the engine and blocks until ctx is cancelled: it sweeps
// expired records, starts the reconnecting stream, performs the initial
// poll, and drives the periodic checks.
func (s *Service) Run(ctx context.Context) error {
	s.store.ClearExpired()

	s.machine.Start(ctx)

	if err := s.poller.Sync(ctx); err != nil {
		s.log.Warn().Err(err).Msg("initial poll failed")
	}

	delayTicker := time.NewTicker(s.cfg.CheckDelaysInterval.Std())
	defer delayTicker.Stop()

	var pollC <-chan time.Time
	if s.cfg.PollInterval > 0 {
		pollTicker := time.NewTicker(s.cfg.PollInterval.Std())
		defer pollTicker.Stop()
		pollC = pollTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-delayTicker.C:
			s.checker.CheckLineDelays(ctx)
		case <-pollC:
			if err := s.poller.Sync(ctx); err != nil {
				s.log.Warn().Err(err).Msg("poll failed")
			}
		}
	}
}

// Close tears down the stream connection and any pending reconnect. Safe
// to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.machine.Close()
	})
}
