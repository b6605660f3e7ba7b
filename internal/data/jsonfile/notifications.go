// Package jsonfile implements feed persistence as a single JSON document
// on disk.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/transitops/beacon/internal/core/notify"
)

// NotificationStore persists the feed snapshot to one file holding a JSON
// array of record snapshots. The file is overwritten wholesale on every
// save; there is no partial update.
type NotificationStore struct {
	path string
}

// New creates a store writing to the given path.
func New(path string) *NotificationStore {
	return &NotificationStore{path: path}
}

// Load reads the persisted snapshot. A missing or empty file is an empty
// feed, not an error.
func (s *NotificationStore) Load() ([]notify.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read notifications file: %w", err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var records []notify.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse notifications file: %w", err)
	}

	return records, nil
}

// Save writes the snapshot atomically via a temp file rename.
func (s *NotificationStore) Save(records []notify.Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	if records == nil {
		records = []notify.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notifications: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write notifications file: %w", err)
	}

	return os.Rename(tmp, s.path)
}
