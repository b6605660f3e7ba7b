// Package notify defines the notification record model shared by the feed
// store and every ingestion adapter.
package notify

import (
	"fmt"
	"time"

	"github.com/transitops/beacon/pkg/randid"
)

// AttrBackendID is the attribute key carrying the upstream identifier used
// to dedup records that originate from the polling endpoint.
const AttrBackendID = "backend_id"

const idTiebreakerLen = 6

// Record is one notification held by the feed. The JSON tags are the
// persisted snapshot contract; changing them breaks saved feeds.
type Record struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Kind        Kind              `json:"type"`
	DisplayTime string            `json:"time"`
	Read        bool              `json:"read"`
	CreatedAt   int64             `json:"timestamp"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// NewRecord builds an unread record created at the given instant. The ID
// combines the creation time with a random tiebreaker, so it sorts roughly
// by age and cannot recur after removal within a process lifetime.
func NewRecord(now time.Time, title, message string, kind Kind, attrs map[string]string) Record {
	return Record{
		ID:          fmt.Sprintf("%d-%s", now.UnixMilli(), randid.Generate(idTiebreakerLen)),
		Title:       title,
		Message:     message,
		Kind:        kind,
		DisplayTime: now.Format("15:04"),
		CreatedAt:   now.UnixMilli(),
		Attributes:  attrs,
	}
}

// CreatedTime returns the creation instant in the local time zone.
func (r Record) CreatedTime() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Age returns how long ago the record was created, relative to now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedTime())
}

// BackendID returns the upstream identifier recorded by the polling
// adapter, or "" when the record did not come from the polling source.
func (r Record) BackendID() string {
	return r.Attributes[AttrBackendID]
}
