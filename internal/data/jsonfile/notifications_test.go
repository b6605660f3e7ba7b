package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitops/beacon/internal/core/notify"
)

func newTestStore(t *testing.T) *NotificationStore {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "notifications.json"))
}

func TestNotificationStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.Local)
	records := []notify.Record{
		notify.NewRecord(now, "b", "newer", notify.KindLineDelay, nil),
		notify.NewRecord(now.Add(-time.Hour), "a", "older", notify.KindLowBalance, map[string]string{notify.AttrBackendID: "7"}),
	}
	records[1].Read = true

	require.NoError(t, store.Save(records))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, records, loaded)
}

func TestNotificationStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNotificationStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	records, err := New(path).Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNotificationStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path).Load()
	assert.Error(t, err)
}

func TestNotificationStore_SaveOverwritesWholesale(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	require.NoError(t, store.Save([]notify.Record{notify.NewRecord(now, "a", "m", notify.KindInfo, nil)}))
	require.NoError(t, store.Save(nil))

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNotificationStore_SaveCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "notifications.json")
	store := New(path)

	require.NoError(t, store.Save([]notify.Record{notify.NewRecord(time.Now(), "a", "m", notify.KindInfo, nil)}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
