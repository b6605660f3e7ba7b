package commands

import (
	"github.com/transitops/beacon/internal/data/jsonfile"
	"github.com/transitops/beacon/internal/feed"
	"github.com/transitops/beacon/internal/service"
)

// openStore builds a feed store over the persisted slot for the read and
// maintenance commands. No hooks are attached: CLI mutations should not
// re-fire desktop notices.
func openStore(flags *Flags) *feed.Store {
	cfg := flags.Config
	return feed.New(
		jsonfile.New(service.NotificationsPath(cfg)),
		feed.Options{
			MaxRecords: cfg.MaxNotifications,
			Expiry:     cfg.Expiry.Std(),
		},
	)
}
