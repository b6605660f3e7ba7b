// Package sink provides the optional desktop side effects fired when a
// record lands in the feed.
package sink

import (
	"github.com/gen2brain/beeep"

	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/feed"
)

// Desktop returns a hook raising a desktop notification for each added
// record. Failures (no notification daemon, permission denied) surface as
// errors and are logged by the store, never propagated.
func Desktop() feed.Hook {
	return func(r notify.Record) error {
		return beeep.Notify(notify.Sanitize(r.Title), notify.Sanitize(r.Message), "")
	}
}

// Sound returns a hook playing the system alert tone for each added
// record.
func Sound() feed.Hook {
	return func(notify.Record) error {
		return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
	}
}
