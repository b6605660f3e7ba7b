// Package feed owns the ordered, bounded, persisted collection of
// notification records and its mutation API.
package feed

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/transitops/beacon/internal/core/logging"
	"github.com/transitops/beacon/internal/core/notify"
)

// Defaults mirror the dashboard's shipped configuration.
const (
	DefaultMaxRecords = 50
	DefaultExpiry     = 7 * 24 * time.Hour
)

// Persister is the single durable slot holding the feed snapshot. It is
// read once at construction and overwritten wholesale after every mutation.
type Persister interface {
	Load() ([]notify.Record, error)
	Save(records []notify.Record) error
}

// Hook is a side effect fired once per added record (sound, desktop
// notice). Hook failures are logged and never reach the caller of Add.
type Hook func(r notify.Record) error

// Event describes a feed mutation delivered to subscribers. Record is set
// only for insertions; Unread always carries the badge count after the
// mutation.
type Event struct {
	Record *notify.Record
	Unread int
}

// Subscriber receives feed events synchronously, in mutation order.
type Subscriber func(Event)

// Store holds the in-memory feed: newest first, capped, expiring.
// Mutations run to completion under the lock, so no two of them can
// interleave mid-operation.
type Store struct {
	mu          sync.Mutex
	records     []notify.Record
	persister   Persister
	subscribers []Subscriber
	hooks       []Hook

	max    int
	expiry time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// Options tune a Store. Zero values fall back to the defaults above.
type Options struct {
	MaxRecords int
	Expiry     time.Duration
	Now        func() time.Time
}

// New builds a Store and loads the persisted snapshot. A load failure
// leaves the feed empty rather than failing construction: persistence is
// best effort throughout.
func New(p Persister, opts Options) *Store {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		persister: p,
		max:       opts.MaxRecords,
		expiry:    opts.Expiry,
		now:       opts.Now,
		log:       logging.Component("feed"),
	}

	if p != nil {
		records, err := p.Load()
		if err != nil {
			s.log.Error().Err(err).Msg("load persisted notifications")
		} else {
			s.records = records
		}
	}

	return s
}

// Subscribe registers a callback invoked after every mutation.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// AddHook registers a side effect fired once per added record.
func (s *Store) AddHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Add constructs a record, prepends it, evicts past the cap, persists, and
// fires subscribers and hooks before returning. Add never fails; duplicate
// suppression is the caller's responsibility.
func (s *Store) Add(title, message string, kind notify.Kind, attrs map[string]string) notify.Record {
	s.mu.Lock()

	record := notify.NewRecord(s.now(), title, message, kind, attrs)
	s.records = append([]notify.Record{record}, s.records...)
	if len(s.records) > s.max {
		s.records = s.records[:s.max]
	}
	s.persistLocked()

	event := Event{Record: &record, Unread: s.unreadLocked()}
	subs, hooks := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
	for _, h := range hooks {
		if err := h(record); err != nil {
			s.log.Debug().Err(err).Str("id", record.ID).Msg("notification side effect failed")
		}
	}

	return record
}

// MarkRead flags the matching record as read. Missing IDs are a no-op.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	found := false
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Read = true
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.persistLocked()
	s.publishBadgeLocked()
}

// MarkAllRead flags every record as read.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	for i := range s.records {
		s.records[i].Read = true
	}
	s.persistLocked()
	s.publishBadgeLocked()
}

// Remove deletes the matching record. Missing IDs are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.persistLocked()
	s.publishBadgeLocked()
}

// ClearExpired drops every record older than the expiry window. Running it
// twice in a row is the same as running it once.
func (s *Store) ClearExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := make([]notify.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Age(now) < s.expiry {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.persistLocked()
}

// ClearAll empties the feed.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.records = nil
	s.persistLocked()
	s.publishBadgeLocked()
}

// List returns a snapshot of the feed, newest first.
func (s *Store) List() []notify.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Record(nil), s.records...)
}

// ListUnread returns a snapshot of the unread records, newest first.
func (s *Store) ListUnread() []notify.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notify.Record
	for _, r := range s.records {
		if !r.Read {
			out = append(out, r)
		}
	}
	return out
}

// ListByKind returns a snapshot of the records with the given kind.
func (s *Store) ListByKind(kind notify.Kind) []notify.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notify.Record
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// UnreadCount returns the badge count.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked()
}

// HasBackendID reports whether any record carries the given upstream
// identifier. The polling adapter uses it as the cross-source dedup check.
func (s *Store) HasBackendID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.BackendID() == id {
			return true
		}
	}
	return false
}

// persistLocked writes the snapshot through the persister. Failures are
// logged and the in-memory state stays authoritative.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	snapshot := append([]notify.Record(nil), s.records...)
	if err := s.persister.Save(snapshot); err != nil {
		s.log.Error().Err(err).Msg("persist notifications")
	}
}

func (s *Store) unreadLocked() int {
	n := 0
	for _, r := range s.records {
		if !r.Read {
			n++
		}
	}
	return n
}

func (s *Store) snapshotLocked() ([]Subscriber, []Hook) {
	subs := append([]Subscriber(nil), s.subscribers...)
	hooks := append([]Hook(nil), s.hooks...)
	return subs, hooks
}

// publishBadgeLocked dispatches a badge-count event. It releases the lock:
// subscribers run outside it so they may call back into the store.
func (s *Store) publishBadgeLocked() {
	event := Event{Unread: s.unreadLocked()}
	subs, _ := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
}
